package database

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Postgres wraps the PostgreSQL connection pool
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a new PostgreSQL connection pool. When useDirect is set
// a managed-pooler URL is rewritten to the direct database host first.
func NewPostgres(databaseURL string, useDirect bool, logger *zap.Logger) (*Postgres, error) {
	if useDirect {
		databaseURL = RewritePoolerURL(databaseURL, logger)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	// Transaction poolers reject prepared statements held across sessions.
	if isPoolerURL(databaseURL) {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &Postgres{pool: pool}, nil
}

// RewritePoolerURL converts a Supabase transaction-pooler URL into the direct
// database host on port 5432, extracting the project ref from the pooler
// username "postgres.<ref>". URLs that are not pooler URLs, or where the ref
// cannot be determined, are returned unchanged.
func RewritePoolerURL(databaseURL string, logger *zap.Logger) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return databaseURL
	}
	if !isPoolerURL(databaseURL) {
		return databaseURL
	}

	username := u.User.Username()
	parts := strings.SplitN(username, ".", 2)
	if len(parts) != 2 || parts[1] == "" {
		logger.Info("pooler URL detected but could not extract project ref, using pooler as-is")
		return databaseURL
	}
	ref := parts[1]

	password, _ := u.User.Password()
	u.User = url.UserPassword("postgres", password)
	u.Host = net.JoinHostPort("db."+ref+".supabase.co", "5432")

	rewritten := u.String()
	logger.Info("rewrote pooler URL to direct database host", zap.String("host", u.Host))
	return rewritten
}

func isPoolerURL(databaseURL string) bool {
	return strings.Contains(databaseURL, "pooler.supabase.com") || strings.Contains(databaseURL, ":6543")
}

// Pool returns the underlying connection pool
func (p *Postgres) Pool() *pgxpool.Pool {
	return p.pool
}

// Close closes the database connection pool
func (p *Postgres) Close() {
	p.pool.Close()
}
