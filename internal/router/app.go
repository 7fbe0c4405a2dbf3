package router

import (
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/account"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/auth"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/author"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/book"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

// Options configures New.
type Options struct {
	Token         auth.TokenConfig
	BcryptCost    int
	SnowflakeNode int64
	// Clock defaults to the wall clock.
	Clock auth.Clock
}

// New builds the services over db and returns the fully wired HTTP handler.
func New(logger *zap.SugaredLogger, db *sqlx.DB, opts Options) (http.Handler, error) {
	tokens, err := auth.NewTokenService(opts.Token)
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}
	ids, err := utilities.NewIDGenerator(opts.SnowflakeNode)
	if err != nil {
		return nil, fmt.Errorf("id generator: %w", err)
	}
	hasher := auth.BcryptHasher{Cost: opts.BcryptCost}
	sessions := auth.NewResolver(tokens, opts.Clock)

	authSvc, err := auth.NewService(db, hasher, tokens, sessions)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	h := Handlers{
		Auth:     auth.NewHandler(authSvc, logger),
		Accounts: account.NewHandler(account.NewService(db, ids, hasher, sessions), logger),
		Authors:  author.NewHandler(author.NewService(db, ids, sessions), logger),
		Books:    book.NewHandler(book.NewService(db, ids, sessions), logger),
	}
	return RegisterRoutes(logger, db, h, NewMetrics()), nil
}
