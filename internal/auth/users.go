package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/itirp/gateway/internal/apierr"
)

// User is a directory entry: a login identity with a single fixed role.
type User struct {
	UserID       string
	Username     string
	PasswordHash string
	Role         Role
}

// Directory is an in-memory user store, seeded at startup. The gateway has
// no persistence layer of its own; user identity is out of scope beyond
// authenticating the seeded trading desk accounts.
type Directory struct {
	mu    sync.RWMutex
	users map[string]*User // keyed by username
}

// NewDirectory builds a Directory seeded with the desk's three standing
// accounts: a trader, a risk manager, and an admin.
func NewDirectory() (*Directory, error) {
	d := &Directory{users: make(map[string]*User)}

	seed := []struct {
		username string
		password string
		role     Role
	}{
		{"trader1", "trader123", RoleTrader},
		{"risk1", "risk123", RoleRiskManager},
		{"admin", "admin123", RoleAdmin},
	}

	for _, s := range seed {
		if err := d.add(s.username, s.password, s.role); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Directory) add(username, password string, role Role) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[username] = &User{
		UserID:       username,
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	}
	return nil
}

// Authenticate verifies username/password and returns the matching user.
func (d *Directory) Authenticate(username, password string) (*User, error) {
	d.mu.RLock()
	user, ok := d.users[username]
	d.mu.RUnlock()

	if !ok {
		return nil, apierr.New(apierr.KindAuthenticationFailed, "invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apierr.New(apierr.KindAuthenticationFailed, "invalid username or password")
	}
	return user, nil
}
