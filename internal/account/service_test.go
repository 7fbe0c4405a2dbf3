package account_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/account"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/auth"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/testkit"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

type fixture struct {
	db     *sqlx.DB
	clock  *testkit.Clock
	hasher auth.BcryptHasher
	auth   *auth.Service
	svc    *account.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testkit.NewDB(t)
	clock := testkit.NewClock(testkit.T0)
	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: testkit.Secret, Algorithm: "HS256", TTL: 30 * time.Minute})
	require.NoError(t, err)
	ids, err := utilities.NewIDGenerator(1)
	require.NoError(t, err)
	hasher := auth.BcryptHasher{Cost: bcrypt.MinCost}
	sessions := auth.NewResolver(tokens, clock)
	authSvc, err := auth.NewService(db, hasher, tokens, sessions)
	require.NoError(t, err)
	return &fixture{
		db:     db,
		clock:  clock,
		hasher: hasher,
		auth:   authSvc,
		svc:    account.NewService(db, ids, hasher, sessions),
	}
}

// register creates an account and returns a fresh token for it.
func (f *fixture) register(t *testing.T, username, email, password string) string {
	t.Helper()
	_, err := f.svc.Register(context.Background(), account.Input{Username: username, Email: email, Password: password})
	require.NoError(t, err)
	tok, err := f.auth.Login(context.Background(), email, password)
	require.NoError(t, err)
	return tok.AccessToken
}

func TestRegisterLoginResolve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a, err := f.svc.Register(ctx, account.Input{Username: "Sbroubous", Email: "sbroubous@x.com", Password: "passwd"})
	require.NoError(t, err)
	assert.Equal(t, "sbroubous", a.Username)
	assert.NotEqual(t, "passwd", a.Password)
	assert.Equal(t, testkit.T0, a.CreatedAt)

	stored, err := repo.NewAccountRepo(f.db).FindOneBy(ctx, "id", a.ID)
	require.NoError(t, err)
	ok, err := f.hasher.Verify("passwd", stored.Password)
	require.NoError(t, err)
	assert.True(t, ok)

	tok, err := f.auth.Login(ctx, "sbroubous@x.com", "passwd")
	require.NoError(t, err)

	me, err := f.auth.CurrentIdentity(ctx, tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, a.ID, me.ID)
	assert.Equal(t, "sbroubous@x.com", me.Email)

	_, err = f.auth.Login(ctx, "sbroubous@x.com", "wrong")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	cases := map[string]account.Input{
		"blank username": {Username: " ?! ", Email: "a@x.com", Password: "p"},
		"bad email":      {Username: "a", Email: "not-an-email", Password: "p"},
		"no password":    {Username: "a", Email: "a@x.com"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), in)
			assert.ErrorIs(t, err, apperr.ErrInvalidInput)
		})
	}
}

func TestRegisterDuplicates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Register(ctx, account.Input{Username: "alice", Email: "alice@x.com", Password: "p"})
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, account.Input{Username: "  ALICE ", Email: "other@x.com", Password: "p"})
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "Username already exists", err.Error())

	_, err = f.svc.Register(ctx, account.Input{Username: "bob", Email: "Alice@X.com", Password: "p"})
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "Email already exists", err.Error())
}

func TestConcurrentRegistrationOneWins(t *testing.T) {
	f := newFixture(t)

	const n = 2
	errs := make([]error, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.svc.Register(context.Background(), account.Input{
				Username: "racer",
				Email:    []string{"racer1@x.com", "racer2@x.com"}[i],
				Password: "p",
			})
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, apperr.ErrConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
}

func TestUpdateOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tokA := f.register(t, "alice", "alice@x.com", "pa")
	f.register(t, "bob", "bob@x.com", "pb")

	alice, err := f.auth.CurrentIdentity(ctx, tokA)
	require.NoError(t, err)
	bob, err := repo.NewAccountRepo(f.db).FindOneBy(ctx, "username", "bob")
	require.NoError(t, err)

	t.Run("own record", func(t *testing.T) {
		f.clock.Advance(time.Minute)
		updated, err := f.svc.Update(ctx, tokA, alice.ID, account.Input{Username: "Alice Two", Email: "alice@x.com", Password: "new"})
		require.NoError(t, err)
		assert.Equal(t, "alice two", updated.Username)
		assert.Equal(t, testkit.T0.Add(time.Minute), updated.UpdatedAt)

		_, err = f.auth.Login(ctx, "alice@x.com", "new")
		require.NoError(t, err)
	})

	t.Run("someone else's record is forbidden", func(t *testing.T) {
		_, err := f.svc.Update(ctx, tokA, bob.ID, account.Input{Username: "pwned", Email: "bob@x.com", Password: "x"})
		assert.ErrorIs(t, err, apperr.ErrForbidden)

		still, err := repo.NewAccountRepo(f.db).FindOneBy(ctx, "id", bob.ID)
		require.NoError(t, err)
		assert.Equal(t, "bob", still.Username)
	})

	t.Run("taking another username conflicts", func(t *testing.T) {
		_, err := f.svc.Update(ctx, tokA, alice.ID, account.Input{Username: "bob", Email: "alice@x.com", Password: "x"})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("ownership is checked before validation", func(t *testing.T) {
		_, err := f.svc.Update(ctx, tokA, bob.ID, account.Input{})
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("anonymous", func(t *testing.T) {
		_, err := f.svc.Update(ctx, "", alice.ID, account.Input{Username: "x", Email: "x@x.com", Password: "x"})
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	})
}

func TestDeleteOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tokA := f.register(t, "alice", "alice@x.com", "pa")
	tokB := f.register(t, "bob", "bob@x.com", "pb")
	alice, err := f.svc.Me(ctx, tokA)
	require.NoError(t, err)
	bob, err := f.svc.Me(ctx, tokB)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, tokA, bob.ID), apperr.ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, tokA, alice.ID))

	// the token outlives the account but no longer resolves
	_, err = f.svc.Me(ctx, tokA)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	_, err = f.svc.Me(ctx, tokB)
	assert.NoError(t, err)
}
