// Package message implements the operations controllers perform on stored
// mail: webhook ingest, folder listings, single message views, compose and
// drafts.
package message

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hookbox/hookbox/pkg/msghub"
	"github.com/hookbox/hookbox/pkg/policy"
	"github.com/hookbox/hookbox/pkg/relay"
	"github.com/hookbox/hookbox/pkg/storage"
)

var (
	// ErrAccessDenied indicates the user may not view the message.
	ErrAccessDenied = errors.New("access denied")

	// ErrNoRelay indicates the user has no outbound relay credentials.
	ErrNoRelay = errors.New("no outbound relay credentials configured")
)

// Folder names accepted by Folder listings.
const (
	FolderInbox  = "inbox"
	FolderUnread = "unread"
	FolderAll    = "all"
	FolderSent   = "sent"
	FolderDrafts = "drafts"
)

// FolderRequest selects a page of a logical folder.
type FolderRequest struct {
	Folder  string
	Search  string
	Page    int
	PerPage int
}

// Row is one line of a folder listing.
type Row struct {
	ID             string
	Subject        string
	FromName       string
	FromEmail      string
	ToEmail        string
	Date           time.Time
	Unread         bool
	HasAttachments bool
	Snippet        string
}

// FolderPage is a rendered folder listing with pagination totals.
type FolderPage struct {
	Folder     string
	Rows       []Row
	Page       int
	PerPage    int
	TotalCount int64
	TotalPages int64
}

// Outgoing is a message being composed, either to send or to save as a
// draft.
type Outgoing struct {
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	HTML    string
	DraftID string
}

// Manager is the interface controllers use to interact with messages.
type Manager interface {
	Ingest(ctx context.Context, email *storage.Email) (id string, err error)
	ListEmails(ctx context.Context, q storage.EmailQuery) ([]*storage.Email, int64, error)
	GetEmail(ctx context.Context, id string) (*storage.Email, error)
	Attachment(ctx context.Context, id, name string) (att *storage.Attachment, content []byte, disposition string, err error)
	Folder(ctx context.Context, user *storage.User, req FolderRequest) (*FolderPage, error)
	OpenMessage(ctx context.Context, user *storage.User, id string) (*storage.Email, error)
	OpenSent(ctx context.Context, user *storage.User, id string) (*storage.SentEmail, error)
	OpenDraft(ctx context.Context, user *storage.User, id string) (*storage.Draft, error)
	Send(ctx context.Context, user *storage.User, out Outgoing) (id string, err error)
	SaveDraft(ctx context.Context, user *storage.User, out Outgoing) (id string, err error)
	DeleteDraft(ctx context.Context, user *storage.User, id string) error
	Ping(ctx context.Context) error
}

// StoreManager is a message Manager backed by the document store.
type StoreManager struct {
	Store  storage.Store
	Sender relay.Sender
	Hub    *msghub.Hub
}

var _ Manager = &StoreManager{}

// Ingest stamps and stores an inbound email, returning the generated
// identifier. Duplicate deliveries produce duplicate documents; there is no
// idempotency key.
func (s *StoreManager) Ingest(ctx context.Context, email *storage.Email) (string, error) {
	email.ReceivedAt = time.Now().UTC()
	email.Processed = false
	// Recipient addresses are stored lower cased; the folder scope filter
	// compares them to User.Addresses with Mongo's exact $in match.
	for i := range email.To {
		email.To[i].Email = strings.ToLower(email.To[i].Email)
	}
	for i := range email.CC {
		email.CC[i].Email = strings.ToLower(email.CC[i].Email)
	}
	email.Envelope.Recipient = strings.ToLower(email.Envelope.Recipient)
	id, err := s.Store.AddEmail(ctx, email)
	if err != nil {
		return "", err
	}
	log.Info().Str("module", "message").Str("id", id).Str("from", email.From.Email).
		Str("subject", email.Subject).Msg("Email stored")
	if s.Hub != nil {
		to := make([]string, len(email.To))
		for i, a := range email.To {
			to[i] = a.Email
		}
		s.Hub.Dispatch(msghub.Message{
			ID:         id,
			From:       email.From.Email,
			To:         to,
			Subject:    email.Subject,
			ReceivedAt: email.ReceivedAt,
		})
	}
	return id, nil
}

// ListEmails returns a page of inbound emails for the webhook API.
func (s *StoreManager) ListEmails(ctx context.Context, q storage.EmailQuery) ([]*storage.Email, int64, error) {
	return s.Store.QueryEmails(ctx, q)
}

// GetEmail fetches an inbound email without access checks, for the
// key-guarded webhook API.
func (s *StoreManager) GetEmail(ctx context.Context, id string) (*storage.Email, error) {
	return s.Store.GetEmail(ctx, id)
}

// Attachment locates a named part on an email, searching attachments before
// inlines, and returns its decoded content plus the disposition to serve it
// with.
func (s *StoreManager) Attachment(ctx context.Context, id, name string) (*storage.Attachment, []byte, string, error) {
	email, err := s.Store.GetEmail(ctx, id)
	if err != nil {
		return nil, nil, "", err
	}
	for i := range email.Attachments {
		if email.Attachments[i].Name == name {
			content, err := base64.StdEncoding.DecodeString(email.Attachments[i].Content)
			if err != nil {
				return nil, nil, "", fmt.Errorf("decode attachment %q: %w", name, err)
			}
			return &email.Attachments[i], content, "attachment", nil
		}
	}
	for i := range email.Inlines {
		if email.Inlines[i].Name == name {
			content, err := base64.StdEncoding.DecodeString(email.Inlines[i].Content)
			if err != nil {
				return nil, nil, "", fmt.Errorf("decode inline %q: %w", name, err)
			}
			return &email.Inlines[i], content, "inline", nil
		}
	}
	return nil, nil, "", storage.ErrNotExist
}

// Folder returns one page of the requested logical folder. Folders are
// query filters, not stored attributes.
func (s *StoreManager) Folder(ctx context.Context, user *storage.User, req FolderRequest) (*FolderPage, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage < 1 {
		req.PerPage = 20
	}
	skip := int64(req.Page-1) * int64(req.PerPage)
	limit := int64(req.PerPage)

	var rows []Row
	var total int64
	switch req.Folder {
	case FolderSent:
		sent, n, err := s.Store.QuerySent(ctx, storage.OwnedQuery{
			UserID: user.ID, Search: req.Search, Skip: skip, Limit: limit})
		if err != nil {
			return nil, err
		}
		total = n
		for _, m := range sent {
			rows = append(rows, Row{
				ID:        m.ID.Hex(),
				Subject:   m.Subject,
				FromEmail: m.From,
				ToEmail:   first(m.To),
				Date:      m.SentAt,
				Snippet:   snippet(m.HTML),
			})
		}
	case FolderDrafts:
		drafts, n, err := s.Store.QueryDrafts(ctx, storage.OwnedQuery{
			UserID: user.ID, Search: req.Search, Skip: skip, Limit: limit})
		if err != nil {
			return nil, err
		}
		total = n
		for _, m := range drafts {
			rows = append(rows, Row{
				ID:        m.ID.Hex(),
				Subject:   m.Subject,
				FromEmail: user.Email,
				ToEmail:   first(m.To),
				Date:      m.UpdatedAt,
				Snippet:   snippet(m.HTML),
			})
		}
	case FolderInbox, FolderUnread, FolderAll, "":
		q := storage.EmailQuery{
			Search: req.Search,
			Skip:   skip,
			Limit:  limit,
		}
		// Admins see every stored email in the "all" folder; everyone
		// else is always scoped to their own addresses.
		if !(req.Folder == FolderAll && user.IsAdmin()) {
			q.Recipients = user.Addresses()
		}
		if req.Folder == FolderUnread {
			q.UnreadOnly = true
		}
		emails, n, err := s.Store.QueryEmails(ctx, q)
		if err != nil {
			return nil, err
		}
		total = n
		for _, m := range emails {
			rows = append(rows, Row{
				ID:             m.ID.Hex(),
				Subject:        m.Subject,
				FromName:       m.From.Name,
				FromEmail:      m.From.Email,
				ToEmail:        recipientOf(m),
				Date:           m.ReceivedAt,
				Unread:         !m.Processed,
				HasAttachments: len(m.Attachments) > 0,
				Snippet:        snippet(m.Text),
			})
		}
	default:
		return nil, fmt.Errorf("unknown folder %q", req.Folder)
	}

	totalPages := (total + int64(req.PerPage) - 1) / int64(req.PerPage)
	return &FolderPage{
		Folder:     req.Folder,
		Rows:       rows,
		Page:       req.Page,
		PerPage:    req.PerPage,
		TotalCount: total,
		TotalPages: totalPages,
	}, nil
}

// OpenMessage fetches an inbox message for viewing. The viewer must be a
// recipient or an admin. Viewing marks the message read.
func (s *StoreManager) OpenMessage(ctx context.Context, user *storage.User, id string) (*storage.Email, error) {
	email, err := s.Store.GetEmail(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewInbox(user, email) {
		return nil, ErrAccessDenied
	}
	if err := s.Store.MarkProcessed(ctx, id); err != nil {
		log.Warn().Str("module", "message").Str("id", id).Err(err).
			Msg("Failed to mark message read")
	} else {
		email.Processed = true
	}
	return email, nil
}

// OpenSent fetches a sent message; the viewer must own it or be an admin.
func (s *StoreManager) OpenSent(ctx context.Context, user *storage.User, id string) (*storage.SentEmail, error) {
	sent, err := s.Store.GetSent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.OwnsSent(user, sent) {
		return nil, ErrAccessDenied
	}
	return sent, nil
}

// OpenDraft fetches a draft; the viewer must own it or be an admin.
func (s *StoreManager) OpenDraft(ctx context.Context, user *storage.User, id string) (*storage.Draft, error) {
	draft, err := s.Store.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.OwnsDraft(user, draft) {
		return nil, ErrAccessDenied
	}
	return draft, nil
}

// Send relays an outbound message with the user's relay credentials, then
// stores a copy in the sent collection. Nothing is persisted when the relay
// fails. Bcc recipients receive the message but the stored copy never
// displays them.
func (s *StoreManager) Send(ctx context.Context, user *storage.User, out Outgoing) (string, error) {
	if user.Relay == nil {
		return "", ErrNoRelay
	}
	msg := &relay.Message{
		FromName: user.DisplayName,
		FromAddr: user.Email,
		To:       out.To,
		Cc:       out.Cc,
		Bcc:      out.Bcc,
		Subject:  out.Subject,
		HTML:     out.HTML,
	}
	creds := relay.Credentials{
		Username: user.Relay.Username,
		Password: user.Relay.Password,
	}
	if err := s.Sender.Send(ctx, creds, msg); err != nil {
		return "", err
	}
	id, err := s.Store.AddSent(ctx, &storage.SentEmail{
		UserID:  user.ID,
		From:    user.Email,
		To:      out.To,
		CC:      out.Cc,
		BCC:     out.Bcc,
		Subject: out.Subject,
		HTML:    out.HTML,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		// Delivered but not recorded; surface the storage error.
		return "", fmt.Errorf("message sent but storing copy failed: %w", err)
	}
	if out.DraftID != "" {
		if err := s.DeleteDraft(ctx, user, out.DraftID); err != nil && err != storage.ErrNotExist {
			log.Warn().Str("module", "message").Str("draft", out.DraftID).Err(err).
				Msg("Failed to remove draft after send")
		}
	}
	return id, nil
}

// SaveDraft creates the draft, or updates it in place when out.DraftID
// names an existing draft owned by the user.
func (s *StoreManager) SaveDraft(ctx context.Context, user *storage.User, out Outgoing) (string, error) {
	now := time.Now().UTC()
	if out.DraftID == "" {
		return s.Store.AddDraft(ctx, &storage.Draft{
			UserID:    user.ID,
			To:        out.To,
			CC:        out.Cc,
			BCC:       out.Bcc,
			Subject:   out.Subject,
			HTML:      out.HTML,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	draft, err := s.OpenDraft(ctx, user, out.DraftID)
	if err != nil {
		return "", err
	}
	draft.To = out.To
	draft.CC = out.Cc
	draft.BCC = out.Bcc
	draft.Subject = out.Subject
	draft.HTML = out.HTML
	draft.UpdatedAt = now
	if err := s.Store.UpdateDraft(ctx, draft); err != nil {
		return "", err
	}
	return draft.ID.Hex(), nil
}

// DeleteDraft removes a draft owned by the user.
func (s *StoreManager) DeleteDraft(ctx context.Context, user *storage.User, id string) error {
	if _, err := s.OpenDraft(ctx, user, id); err != nil {
		return err
	}
	return s.Store.DeleteDraft(ctx, id)
}

// Ping verifies store connectivity for health checks.
func (s *StoreManager) Ping(ctx context.Context) error {
	return s.Store.Ping(ctx)
}

// snippet returns the first 150 characters of text, with an ellipsis when
// truncated.
func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= 150 {
		return text
	}
	return string(runes[:150]) + "..."
}

// recipientOf picks the display recipient: the first To address, falling
// back to the envelope recipient.
func recipientOf(email *storage.Email) string {
	if len(email.To) > 0 {
		return email.To[0].Email
	}
	return email.Envelope.Recipient
}

func first(list []string) string {
	if len(list) > 0 {
		return list[0]
	}
	return ""
}
