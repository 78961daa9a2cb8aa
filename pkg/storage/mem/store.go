// Package mem implements an in-memory document store, used by unit tests
// and local development.
package mem

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hookbox/hookbox/pkg/config"
	"github.com/hookbox/hookbox/pkg/storage"
)

// Store implements an in-memory document store.
type Store struct {
	sync.RWMutex
	emails map[string]*storage.Email
	users  map[string]*storage.User
	sent   map[string]*storage.SentEmail
	drafts map[string]*storage.Draft
}

var _ storage.Store = &Store{}

// New returns an empty memory store.
func New(_ config.Root) (storage.Store, error) {
	return NewStore(), nil
}

// NewStore returns an empty memory store without requiring configuration,
// for use in tests.
func NewStore() *Store {
	return &Store{
		emails: make(map[string]*storage.Email),
		users:  make(map[string]*storage.User),
		sent:   make(map[string]*storage.SentEmail),
		drafts: make(map[string]*storage.Draft),
	}
}

// AddEmail stores an inbound email document.
func (s *Store) AddEmail(_ context.Context, email *storage.Email) (string, error) {
	s.Lock()
	defer s.Unlock()
	if email.ID.IsZero() {
		email.ID = primitive.NewObjectID()
	}
	c := *email
	s.emails[email.ID.Hex()] = &c
	return email.ID.Hex(), nil
}

// GetEmail fetches an inbound email by identifier.
func (s *Store) GetEmail(_ context.Context, id string) (*storage.Email, error) {
	s.RLock()
	defer s.RUnlock()
	email, ok := s.emails[id]
	if !ok {
		return nil, storage.ErrNotExist
	}
	c := *email
	return &c, nil
}

// matchRecipient reports whether the email is addressed to any of the given
// addresses, via the To header or the envelope recipient. Comparison is
// exact, mirroring the Mongo $in filter; ingest lower cases stored
// recipients to line up with User.Addresses.
func matchRecipient(email *storage.Email, recipients []string) bool {
	for _, r := range recipients {
		for _, to := range email.To {
			if to.Email == r {
				return true
			}
		}
		if email.Envelope.Recipient == r {
			return true
		}
	}
	return false
}

// matchSearch mirrors the Mongo substring search over subject, sender,
// body text and recipients.
func matchSearch(email *storage.Email, term string) bool {
	term = strings.ToLower(term)
	fields := []string{email.Subject, email.From.Name, email.From.Email, email.Text}
	for _, to := range email.To {
		fields = append(fields, to.Email)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// QueryEmails returns a page of inbound emails, newest first, plus the
// total count of matching documents.
func (s *Store) QueryEmails(_ context.Context, q storage.EmailQuery) ([]*storage.Email, int64, error) {
	s.RLock()
	defer s.RUnlock()
	var matched []*storage.Email
	for _, email := range s.emails {
		if len(q.Recipients) > 0 && !matchRecipient(email, q.Recipients) {
			continue
		}
		if q.UnreadOnly && email.Processed {
			continue
		}
		if q.FromEmail != "" && email.From.Email != q.FromEmail {
			continue
		}
		if q.Subject != "" &&
			!strings.Contains(strings.ToLower(email.Subject), strings.ToLower(q.Subject)) {
			continue
		}
		if q.Search != "" && !matchSearch(email, q.Search) {
			continue
		}
		matched = append(matched, email)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].ReceivedAt.Equal(matched[j].ReceivedAt) {
			return matched[i].ReceivedAt.After(matched[j].ReceivedAt)
		}
		return matched[i].ID.Hex() > matched[j].ID.Hex()
	})
	total := int64(len(matched))
	matched = page(matched, q.Skip, q.Limit)
	out := make([]*storage.Email, len(matched))
	for i, email := range matched {
		c := *email
		out[i] = &c
	}
	return out, total, nil
}

// page applies skip and limit to a sorted result slice.
func page[T any](in []T, skip, limit int64) []T {
	if skip >= int64(len(in)) {
		return nil
	}
	in = in[skip:]
	if limit > 0 && limit < int64(len(in)) {
		in = in[:limit]
	}
	return in
}

// MarkProcessed flips the read flag on an inbound email.
func (s *Store) MarkProcessed(_ context.Context, id string) error {
	s.Lock()
	defer s.Unlock()
	email, ok := s.emails[id]
	if !ok {
		return storage.ErrNotExist
	}
	email.Processed = true
	return nil
}

// AddUser stores a user document.
func (s *Store) AddUser(_ context.Context, user *storage.User) (string, error) {
	s.Lock()
	defer s.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.Email = strings.ToLower(user.Email)
	c := *user
	s.users[user.ID.Hex()] = &c
	return user.ID.Hex(), nil
}

// GetUser fetches a user by identifier.
func (s *Store) GetUser(_ context.Context, id string) (*storage.User, error) {
	s.RLock()
	defer s.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotExist
	}
	c := *user
	return &c, nil
}

// GetUserByEmail fetches a user by primary address.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*storage.User, error) {
	s.RLock()
	defer s.RUnlock()
	email = strings.ToLower(email)
	for _, user := range s.users {
		if user.Email == email {
			c := *user
			return &c, nil
		}
	}
	return nil, storage.ErrNotExist
}

// UpdateUser replaces a user document.
func (s *Store) UpdateUser(_ context.Context, user *storage.User) error {
	s.Lock()
	defer s.Unlock()
	if _, ok := s.users[user.ID.Hex()]; !ok {
		return storage.ErrNotExist
	}
	user.Email = strings.ToLower(user.Email)
	c := *user
	s.users[user.ID.Hex()] = &c
	return nil
}

// DeleteUser removes a user document.
func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.Lock()
	defer s.Unlock()
	if _, ok := s.users[id]; !ok {
		return storage.ErrNotExist
	}
	delete(s.users, id)
	return nil
}

// ListUsers returns all users ordered by address.
func (s *Store) ListUsers(_ context.Context) ([]*storage.User, error) {
	s.RLock()
	defer s.RUnlock()
	users := make([]*storage.User, 0, len(s.users))
	for _, user := range s.users {
		c := *user
		users = append(users, &c)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

// CountUsers returns the number of user documents.
func (s *Store) CountUsers(_ context.Context) (int64, error) {
	s.RLock()
	defer s.RUnlock()
	return int64(len(s.users)), nil
}

// AddSent stores a copy of an outbound message.
func (s *Store) AddSent(_ context.Context, sent *storage.SentEmail) (string, error) {
	s.Lock()
	defer s.Unlock()
	if sent.ID.IsZero() {
		sent.ID = primitive.NewObjectID()
	}
	c := *sent
	s.sent[sent.ID.Hex()] = &c
	return sent.ID.Hex(), nil
}

// GetSent fetches a sent email by identifier.
func (s *Store) GetSent(_ context.Context, id string) (*storage.SentEmail, error) {
	s.RLock()
	defer s.RUnlock()
	sent, ok := s.sent[id]
	if !ok {
		return nil, storage.ErrNotExist
	}
	c := *sent
	return &c, nil
}

// matchOwnedSearch mirrors the Mongo substring search for owned collections.
func matchOwnedSearch(term, subject, html string, to []string) bool {
	term = strings.ToLower(term)
	if strings.Contains(strings.ToLower(subject), term) ||
		strings.Contains(strings.ToLower(html), term) {
		return true
	}
	for _, addr := range to {
		if strings.Contains(strings.ToLower(addr), term) {
			return true
		}
	}
	return false
}

// QuerySent returns a page of the user's sent mail, newest first.
func (s *Store) QuerySent(_ context.Context, q storage.OwnedQuery) ([]*storage.SentEmail, int64, error) {
	s.RLock()
	defer s.RUnlock()
	var matched []*storage.SentEmail
	for _, sent := range s.sent {
		if sent.UserID != q.UserID {
			continue
		}
		if q.Search != "" && !matchOwnedSearch(q.Search, sent.Subject, sent.HTML, sent.To) {
			continue
		}
		matched = append(matched, sent)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].SentAt.After(matched[j].SentAt)
	})
	total := int64(len(matched))
	matched = page(matched, q.Skip, q.Limit)
	out := make([]*storage.SentEmail, len(matched))
	for i, sent := range matched {
		c := *sent
		out[i] = &c
	}
	return out, total, nil
}

// AddDraft stores a new draft.
func (s *Store) AddDraft(_ context.Context, draft *storage.Draft) (string, error) {
	s.Lock()
	defer s.Unlock()
	if draft.ID.IsZero() {
		draft.ID = primitive.NewObjectID()
	}
	c := *draft
	s.drafts[draft.ID.Hex()] = &c
	return draft.ID.Hex(), nil
}

// GetDraft fetches a draft by identifier.
func (s *Store) GetDraft(_ context.Context, id string) (*storage.Draft, error) {
	s.RLock()
	defer s.RUnlock()
	draft, ok := s.drafts[id]
	if !ok {
		return nil, storage.ErrNotExist
	}
	c := *draft
	return &c, nil
}

// UpdateDraft replaces a draft document in place.
func (s *Store) UpdateDraft(_ context.Context, draft *storage.Draft) error {
	s.Lock()
	defer s.Unlock()
	if _, ok := s.drafts[draft.ID.Hex()]; !ok {
		return storage.ErrNotExist
	}
	c := *draft
	s.drafts[draft.ID.Hex()] = &c
	return nil
}

// DeleteDraft removes a draft.
func (s *Store) DeleteDraft(_ context.Context, id string) error {
	s.Lock()
	defer s.Unlock()
	if _, ok := s.drafts[id]; !ok {
		return storage.ErrNotExist
	}
	delete(s.drafts, id)
	return nil
}

// QueryDrafts returns a page of the user's drafts, most recently updated
// first.
func (s *Store) QueryDrafts(_ context.Context, q storage.OwnedQuery) ([]*storage.Draft, int64, error) {
	s.RLock()
	defer s.RUnlock()
	var matched []*storage.Draft
	for _, draft := range s.drafts {
		if draft.UserID != q.UserID {
			continue
		}
		if q.Search != "" && !matchOwnedSearch(q.Search, draft.Subject, draft.HTML, draft.To) {
			continue
		}
		matched = append(matched, draft)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})
	total := int64(len(matched))
	matched = page(matched, q.Skip, q.Limit)
	out := make([]*storage.Draft, len(matched))
	for i, draft := range matched {
		c := *draft
		out[i] = &c
	}
	return out, total, nil
}

// Ping always succeeds for the memory store.
func (s *Store) Ping(_ context.Context) error {
	return nil
}

// Close releases nothing for the memory store.
func (s *Store) Close(_ context.Context) error {
	return nil
}
