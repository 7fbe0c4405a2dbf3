package router_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/auth"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/router"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/testkit"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type api struct {
	t     *testing.T
	srv   *httptest.Server
	clock *testkit.Clock
}

func newAPI(t *testing.T) *api {
	t.Helper()
	db := testkit.NewDB(t)
	clock := testkit.NewClock(testkit.T0)
	h, err := router.New(zap.NewNop().Sugar(), db, router.Options{
		Token:         auth.TokenConfig{Secret: testkit.Secret, Algorithm: "HS256", TTLMinutes: 30},
		BcryptCost:    bcrypt.MinCost,
		SnowflakeNode: 7,
		Clock:         clock,
	})
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &api{t: t, srv: srv, clock: clock}
}

func (a *api) do(method, path, bearer, contentType, body string) (*http.Response, string) {
	a.t.Helper()
	req, err := http.NewRequest(method, a.srv.URL+path, strings.NewReader(body))
	require.NoError(a.t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := a.srv.Client().Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp, string(b)
}

func (a *api) json(method, path, bearer, body string) (*http.Response, string) {
	return a.do(method, path, bearer, "application/json", body)
}

func (a *api) register(username, email, password string) int64 {
	a.t.Helper()
	resp, body := a.json(http.MethodPost, "/accounts", "", fmt.Sprintf(`{"username":%q,"email":%q,"password":%q}`, username, email, password))
	require.Equal(a.t, http.StatusCreated, resp.StatusCode, body)
	var out struct {
		ID int64 `json:"id"`
	}
	require.NoError(a.t, json.Unmarshal([]byte(body), &out))
	return out.ID
}

func (a *api) login(email, password string) (*http.Response, string) {
	form := url.Values{"username": {email}, "password": {password}}
	return a.do(http.MethodPost, "/auth/token", "", "application/x-www-form-urlencoded", form.Encode())
}

func (a *api) token(email, password string) string {
	a.t.Helper()
	resp, body := a.login(email, password)
	require.Equal(a.t, http.StatusOK, resp.StatusCode, body)
	var tok auth.Token
	require.NoError(a.t, json.Unmarshal([]byte(body), &tok))
	require.Equal(a.t, "Bearer", tok.TokenType)
	return tok.AccessToken
}

func TestRegisterLoginMe(t *testing.T) {
	a := newAPI(t)
	id := a.register("Sbroubous", "sbroubous@x.com", "passwd")
	tok := a.token("sbroubous@x.com", "passwd")

	resp, body := a.json(http.MethodGet, "/accounts/me", tok, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"username":"sbroubous","email":"sbroubous@x.com"}`, id), body)
	assert.NotContains(t, body, "password")
}

func TestWrongPassword(t *testing.T) {
	a := newAPI(t)
	a.register("Sbroubous", "sbroubous@x.com", "passwd")

	resp, body := a.login("sbroubous@x.com", "nope")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"detail":"Incorrect email or password"}`, body)
	assert.NotContains(t, body, "access_token")
}

func TestExpiredToken(t *testing.T) {
	a := newAPI(t)
	a.register("alice", "alice@x.com", "pa")
	tok := a.token("alice@x.com", "pa")

	a.clock.Advance(testkit.TTL + time.Second)
	resp, body := a.json(http.MethodPost, "/auth/refresh_token", tok, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
	assert.JSONEq(t, `{"detail":"Could not validate credentials"}`, body)

	resp, _ = a.json(http.MethodGet, "/accounts/me", tok, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOwnerOnlyUpdates(t *testing.T) {
	a := newAPI(t)
	aliceID := a.register("alice", "alice@x.com", "pa")
	bobID := a.register("bob", "bob@x.com", "pb")
	tok := a.token("alice@x.com", "pa")

	resp, body := a.json(http.MethodPut, fmt.Sprintf("/accounts/%d", aliceID), tok, `{"username":"alice2","email":"alice@x.com","password":"pa2"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, `"username":"alice2"`)

	resp, body = a.json(http.MethodPut, fmt.Sprintf("/accounts/%d", bobID), tok, `{"username":"x","email":"bob@x.com","password":"x"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.JSONEq(t, `{"detail":"Not enough permission"}`, body)

	resp, _ = a.json(http.MethodDelete, fmt.Sprintf("/accounts/%d", bobID), tok, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = a.json(http.MethodDelete, fmt.Sprintf("/accounts/%d", aliceID), tok, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"User successfully removed"}`, body)
}

func TestConcurrentRegistration(t *testing.T) {
	a := newAPI(t)

	const n = 4
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf(`{"username":"Sbroubous","email":"s%d@x.com","password":"p"}`, i)
			req, err := http.NewRequest(http.MethodPost, a.srv.URL+"/accounts", strings.NewReader(body))
			if err != nil {
				return
			}
			resp, err := a.srv.Client().Do(req)
			if err != nil {
				return
			}
			resp.Body.Close()
			codes[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	var created, conflicts int
	for _, c := range codes {
		switch c {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, conflicts)
}

func TestCatalogFlow(t *testing.T) {
	a := newAPI(t)
	a.register("alice", "alice@x.com", "pa")
	tok := a.token("alice@x.com", "pa")

	resp, body := a.json(http.MethodPost, "/authors", tok, `{"name":"Tolkien"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	var author struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &author))

	resp, body = a.json(http.MethodPost, "/books", tok, fmt.Sprintf(`{"year":1937,"title":"The Hobbit","author_id":%d}`, author.ID))
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	var book struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &book))

	resp, body = a.json(http.MethodPatch, fmt.Sprintf("/books/%d", book.ID), tok, `{"year":1938}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, `"year":1938`)
	assert.Contains(t, body, `"title":"the hobbit"`)

	resp, body = a.json(http.MethodGet, "/books?title=hobbit", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"books":[{`)

	resp, body = a.json(http.MethodDelete, fmt.Sprintf("/authors/%d", author.ID), tok, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Author successfully removed"}`, body)

	resp, body = a.json(http.MethodGet, fmt.Sprintf("/books/%d", book.ID), "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"detail":"Book does not exist"}`, body)

	resp, _ = a.json(http.MethodPost, "/authors", "", `{"name":"Anon"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestInfrastructureEndpoints(t *testing.T) {
	a := newAPI(t)

	resp, body := a.do(http.MethodGet, "/health", "", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Len(t, resp.Header.Get(router.RequestIDHeader), 27)

	req, err := http.NewRequest(http.MethodGet, a.srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set(router.RequestIDHeader, "abc-123")
	resp, err = a.srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(router.RequestIDHeader))

	resp, body = a.do(http.MethodGet, "/metrics", "", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `catalog_http_requests_total{method="GET",route="GET /health",status="200"} 2`)

	resp, _ = a.do(http.MethodPost, "/health", "", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
