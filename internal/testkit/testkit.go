// Package testkit provides fixtures shared by package tests: a migrated
// SQLite database, a controllable clock and account seeding.
package testkit

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/auth"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/database"
)

// Secret signs tokens in tests.
const Secret = "test-secret"

// NewDB opens a fresh SQLite database under t.TempDir and applies migrations.
func NewDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Connect(database.Config{
		Driver: database.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "catalog.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = database.Migrate(context.Background(), db)
	require.NoError(t, err)
	return db
}

// TTL is the access token lifetime used by Tokens.
const TTL = 30 * time.Minute

// Tokens returns a token service signing with Secret.
func Tokens(t *testing.T) *auth.TokenService {
	t.Helper()
	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: Secret, Algorithm: "HS256", TTL: TTL})
	require.NoError(t, err)
	return tokens
}

// Session seeds an account and returns a resolver on clock together with a
// token for that account issued at the clock's current time.
func Session(t *testing.T, db *sqlx.DB, clock *Clock) (*auth.Resolver, string) {
	t.Helper()
	tokens := Tokens(t)
	a, _ := SeedAccount(t, db)
	tok, err := tokens.Issue(a.Email, clock.Now())
	require.NoError(t, err)
	return auth.NewResolver(tokens, clock), tok
}

// Clock is a manually advanced clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock freezes time at t0.
func NewClock(t0 time.Time) *Clock { return &Clock{now: t0} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// T0 is a fixed instant used as the default frozen time.
var T0 = time.Date(2024, time.August, 5, 21, 52, 10, 0, time.UTC)

var seq atomic.Int64

// SeedAccount inserts an account whose password is "<username>-passwd" and
// returns it with Password still holding the hash.
func SeedAccount(t *testing.T, db *sqlx.DB) (*entity.Account, string) {
	t.Helper()
	n := seq.Add(1)
	username := fmt.Sprintf("user%d", n)
	plain := username + "-passwd"
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)

	a := &entity.Account{
		ID:        1000 + n,
		Username:  username,
		Email:     username + "@email.com",
		Password:  string(hash),
		CreatedAt: T0,
		UpdatedAt: T0,
	}
	require.NoError(t, repo.NewAccountRepo(db).Create(context.Background(), a))
	return a, plain
}
