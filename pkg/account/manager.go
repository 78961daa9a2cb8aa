// Package account manages webmail users: authentication, password changes
// and the admin CRUD operations.
package account

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/hookbox/hookbox/pkg/storage"
)

var (
	// ErrInvalidCredentials indicates a failed login attempt.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrDuplicateEmail indicates the address is already registered.
	ErrDuplicateEmail = errors.New("a user with that email already exists")

	// ErrSelfDelete indicates an admin attempted to delete their own
	// account.
	ErrSelfDelete = errors.New("cannot delete your own account")
)

// Manager performs user operations against the document store.
type Manager struct {
	Store storage.Store
}

// Authenticate verifies the address and password, returning the user on
// success.
func (m *Manager) Authenticate(ctx context.Context, email, password string) (*storage.User, error) {
	user, err := m.Store.GetUserByEmail(ctx, email)
	if err == storage.ErrNotExist {
		// Burn a comparison to keep timing consistent with the
		// wrong-password path.
		_ = bcrypt.CompareHashAndPassword(
			[]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"),
			[]byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Create registers a new user. The duplicate check and insert are separate
// store operations; concurrent admin writes can race.
func (m *Manager) Create(ctx context.Context, user *storage.User, password string) (string, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if _, err := m.Store.GetUserByEmail(ctx, user.Email); err == nil {
		return "", ErrDuplicateEmail
	} else if err != storage.ErrNotExist {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	user.PasswordHash = string(hash)
	if user.Role == "" {
		user.Role = storage.RoleUser
	}
	id, err := m.Store.AddUser(ctx, user)
	if err != nil {
		return "", err
	}
	log.Info().Str("module", "account").Str("email", user.Email).Str("role", user.Role).
		Msg("User created")
	return id, nil
}

// Update replaces the user's editable fields. An empty password leaves the
// current hash in place.
func (m *Manager) Update(ctx context.Context, user *storage.User, password string) error {
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user.PasswordHash = string(hash)
	}
	return m.Store.UpdateUser(ctx, user)
}

// SetPassword changes the user's own password after verifying the current
// one.
func (m *Manager) SetPassword(ctx context.Context, user *storage.User, current, next string) error {
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	return m.Store.UpdateUser(ctx, user)
}

// Delete removes a user. Admins cannot delete themselves.
func (m *Manager) Delete(ctx context.Context, actor *storage.User, id string) error {
	if actor.ID.Hex() == id {
		return ErrSelfDelete
	}
	return m.Store.DeleteUser(ctx, id)
}

// ToggleRole flips a user between the admin and user roles.
func (m *Manager) ToggleRole(ctx context.Context, id string) error {
	user, err := m.Store.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		user.Role = storage.RoleUser
	} else {
		user.Role = storage.RoleAdmin
	}
	return m.Store.UpdateUser(ctx, user)
}

// Get fetches a user by identifier.
func (m *Manager) Get(ctx context.Context, id string) (*storage.User, error) {
	return m.Store.GetUser(ctx, id)
}

// List returns all users.
func (m *Manager) List(ctx context.Context) ([]*storage.User, error) {
	return m.Store.ListUsers(ctx)
}

// Bootstrap creates the initial admin account when the users collection is
// empty. It is a no-op when users exist or the bootstrap address is unset.
func (m *Manager) Bootstrap(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	count, err := m.Store.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err = m.Create(ctx, &storage.User{
		Email: email,
		Role:  storage.RoleAdmin,
	}, password)
	if err != nil {
		return err
	}
	log.Info().Str("module", "account").Str("email", email).
		Msg("Bootstrapped initial admin account")
	return nil
}
