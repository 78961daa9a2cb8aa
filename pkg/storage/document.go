package storage

import (
	"encoding/json"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles assignable to a User.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Address is a mail address with an optional display name.
type Address struct {
	Name  string `bson:"name,omitempty" json:"name"`
	Email string `bson:"email" json:"email"`
}

// Envelope holds the delivery-level addresses reported by the inbound relay,
// distinct from the message headers.
type Envelope struct {
	From      string `bson:"from,omitempty" json:"from"`
	Recipient string `bson:"recipient,omitempty" json:"recipient"`
}

// Attachment is a base64 encoded message part. CID is set for inline parts
// referenced from the HTML body.
type Attachment struct {
	Name    string `bson:"name" json:"name"`
	Type    string `bson:"type" json:"type"`
	Content string `bson:"content" json:"content"`
	CID     string `bson:"cid,omitempty" json:"cid,omitempty"`
}

// Email is an inbound message as delivered by the forwarding provider.
// Fields the webhook payload carries beyond these are preserved in Extra so
// documents round-trip without loss.
type Email struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	From        Address            `bson:"from" json:"from"`
	To          []Address          `bson:"to" json:"to"`
	CC          []Address          `bson:"cc,omitempty" json:"cc,omitempty"`
	Subject     string             `bson:"subject" json:"subject"`
	Text        string             `bson:"text,omitempty" json:"text"`
	HTML        string             `bson:"html,omitempty" json:"html"`
	Headers     map[string]string  `bson:"headers,omitempty" json:"headers,omitempty"`
	MessageID   string             `bson:"message-id,omitempty" json:"message-id,omitempty"`
	Envelope    Envelope           `bson:"envelope,omitempty" json:"envelope"`
	Attachments []Attachment       `bson:"attachments,omitempty" json:"attachments,omitempty"`
	Inlines     []Attachment       `bson:"inlines,omitempty" json:"inlines,omitempty"`
	ReceivedAt  time.Time          `bson:"received_at" json:"received_at"`
	Processed   bool               `bson:"processed" json:"processed"`

	Extra map[string]interface{} `bson:",inline" json:"-"`
}

// MarshalJSON folds the Extra fields back into the rendered document, so API
// responses return everything the webhook delivered. Known fields win on a
// key collision.
func (e *Email) MarshalJSON() ([]byte, error) {
	type emailAlias Email
	base, err := json.Marshal((*emailAlias)(e))
	if err != nil || len(e.Extra) == 0 {
		return base, err
	}
	doc := make(map[string]interface{})
	if err := json.Unmarshal(base, &doc); err != nil {
		return nil, err
	}
	for k, v := range e.Extra {
		if _, ok := doc[k]; !ok {
			doc[k] = v
		}
	}
	return json.Marshal(doc)
}

// RelayCredentials authenticate a user against the outbound SMTP relay.
type RelayCredentials struct {
	Username string `bson:"username" json:"username"`
	Password string `bson:"password" json:"-"`
}

// User is a webmail account.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	DisplayName  string             `bson:"display_name,omitempty" json:"display_name"`
	Role         string             `bson:"role" json:"role"`
	Aliases      []string           `bson:"aliases,omitempty" json:"aliases,omitempty"`
	Relay        *RelayCredentials  `bson:"relay,omitempty" json:"-"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Addresses returns the user's primary address plus aliases, lower cased.
func (u *User) Addresses() []string {
	out := make([]string, 0, len(u.Aliases)+1)
	out = append(out, strings.ToLower(u.Email))
	for _, a := range u.Aliases {
		out = append(out, strings.ToLower(a))
	}
	return out
}

// SentEmail is a copy of an outbound message, immutable once stored.
type SentEmail struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID  primitive.ObjectID `bson:"user_id" json:"user_id"`
	From    string             `bson:"from" json:"from"`
	To      []string           `bson:"to" json:"to"`
	CC      []string           `bson:"cc,omitempty" json:"cc,omitempty"`
	BCC     []string           `bson:"bcc,omitempty" json:"-"`
	Subject string             `bson:"subject" json:"subject"`
	HTML    string             `bson:"html" json:"html"`
	SentAt  time.Time          `bson:"sent_at" json:"sent_at"`
}

// Draft is an unsent message, updated in place as the user saves it.
type Draft struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	To        []string           `bson:"to,omitempty" json:"to,omitempty"`
	CC        []string           `bson:"cc,omitempty" json:"cc,omitempty"`
	BCC       []string           `bson:"bcc,omitempty" json:"bcc,omitempty"`
	Subject   string             `bson:"subject" json:"subject"`
	HTML      string             `bson:"html" json:"html"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
