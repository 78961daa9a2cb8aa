// Package policy decides which stored messages a user may see.
package policy

import (
	"strings"

	"github.com/hookbox/hookbox/pkg/storage"
)

// IsRecipient reports whether the email is addressed to the user, either via
// the To header or the envelope recipient, considering aliases.
func IsRecipient(user *storage.User, email *storage.Email) bool {
	for _, addr := range user.Addresses() {
		for _, to := range email.To {
			if strings.ToLower(to.Email) == addr {
				return true
			}
		}
		if strings.ToLower(email.Envelope.Recipient) == addr {
			return true
		}
	}
	return false
}

// CanViewInbox reports whether the user may open an inbox message. Admins
// may open any message.
func CanViewInbox(user *storage.User, email *storage.Email) bool {
	return user.IsAdmin() || IsRecipient(user, email)
}

// OwnsSent reports whether the user may open a sent message.
func OwnsSent(user *storage.User, sent *storage.SentEmail) bool {
	return user.IsAdmin() || sent.UserID == user.ID
}

// OwnsDraft reports whether the user may open or modify a draft.
func OwnsDraft(user *storage.User, draft *storage.Draft) bool {
	return user.IsAdmin() || draft.UserID == user.ID
}
