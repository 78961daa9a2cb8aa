// Package storage contains implementation independent document store logic.
package storage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hookbox/hookbox/pkg/config"
)

var (
	// ErrNotExist indicates the requested document does not exist.
	ErrNotExist = errors.New("document does not exist")

	// ErrDuplicate indicates a unique field collision, e.g. user email.
	ErrDuplicate = errors.New("document already exists")
)

// Store is the interface the rest of hookbox uses to persist documents. It
// fronts four collections: inbound emails, users, sent emails and drafts.
type Store interface {
	// Inbound emails.
	AddEmail(ctx context.Context, email *Email) (id string, err error)
	GetEmail(ctx context.Context, id string) (*Email, error)
	QueryEmails(ctx context.Context, q EmailQuery) (emails []*Email, total int64, err error)
	MarkProcessed(ctx context.Context, id string) error

	// Users.
	AddUser(ctx context.Context, user *User) (id string, err error)
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]*User, error)
	CountUsers(ctx context.Context) (int64, error)

	// Sent emails.
	AddSent(ctx context.Context, sent *SentEmail) (id string, err error)
	GetSent(ctx context.Context, id string) (*SentEmail, error)
	QuerySent(ctx context.Context, q OwnedQuery) (sent []*SentEmail, total int64, err error)

	// Drafts.
	AddDraft(ctx context.Context, draft *Draft) (id string, err error)
	GetDraft(ctx context.Context, id string) (*Draft, error)
	UpdateDraft(ctx context.Context, draft *Draft) error
	DeleteDraft(ctx context.Context, id string) error
	QueryDrafts(ctx context.Context, q OwnedQuery) (drafts []*Draft, total int64, err error)

	// Ping verifies store connectivity, used by health checks.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close(ctx context.Context) error
}

// EmailQuery filters and pages the inbound email collection. Zero values
// leave the corresponding filter off.
type EmailQuery struct {
	// Recipients lists addresses to match against to[].email and
	// envelope.recipient; empty means no recipient filter.
	Recipients []string

	// UnreadOnly restricts results to processed == false.
	UnreadOnly bool

	// Search is a case-insensitive substring matched across subject,
	// sender name/address, body text and recipient addresses.
	Search string

	// FromEmail matches the sender address exactly.
	FromEmail string

	// Subject is a case-insensitive substring match on the subject alone.
	Subject string

	Skip  int64
	Limit int64
}

// OwnedQuery pages a user-owned collection (sent or drafts).
type OwnedQuery struct {
	UserID primitive.ObjectID
	Search string
	Skip   int64
	Limit  int64
}

// Constructor builds a Store from the supplied configuration.
type Constructor func(config.Root) (Store, error)

// Constructors tracks registered storage implementations.
var Constructors = make(map[string]Constructor)

// FromConfig creates an instance of the configured store type.
func FromConfig(c config.Root) (Store, error) {
	ctor, ok := Constructors[c.Storage.Type]
	if !ok {
		return nil, fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
	return ctor(c)
}
