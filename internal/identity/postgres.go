package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"placementprep/internal/types"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash BYTEA NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	first_name TEXT NOT NULL DEFAULT '',
	last_name  TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	photo      TEXT NOT NULL DEFAULT ''
);`

// OpenPostgres connects to databaseURL through the pgx driver and creates the tables
func OpenPostgres(ctx context.Context, databaseURL string) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("identity.databaseUrl is required for the postgres store")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create identity tables: %w", err)
	}
	return db, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

type PostgresAccountStore struct {
	db *sql.DB
}

func NewPostgresAccountStore(db *sql.DB) *PostgresAccountStore {
	return &PostgresAccountStore{db: db}
}

func (s *PostgresAccountStore) Create(ctx context.Context, account Account) error {
	query := `INSERT INTO accounts (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`
	_, err := s.db.ExecContext(ctx, query, account.ID, normalizeEmail(account.Email), account.PasswordHash, account.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateAccount
	}
	return err
}

func (s *PostgresAccountStore) FindByEmail(ctx context.Context, email string) (Account, error) {
	query := `SELECT id, email, password_hash, created_at FROM accounts WHERE email = $1`
	var account Account
	err := s.db.QueryRowContext(ctx, query, normalizeEmail(email)).
		Scan(&account.ID, &account.Email, &account.PasswordHash, &account.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

func (s *PostgresAccountStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	return err
}

type PostgresProfileStore struct {
	db *sql.DB
}

func NewPostgresProfileStore(db *sql.DB) *PostgresProfileStore {
	return &PostgresProfileStore{db: db}
}

// Put replaces the whole document
func (s *PostgresProfileStore) Put(ctx context.Context, userID string, profile types.Profile) error {
	query := `INSERT INTO users (id, first_name, last_name, email, photo) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
		email = EXCLUDED.email, photo = EXCLUDED.photo`
	_, err := s.db.ExecContext(ctx, query, userID, profile.FirstName, profile.LastName, profile.Email, profile.Photo)
	return err
}

func (s *PostgresProfileStore) Get(ctx context.Context, userID string) (types.Profile, error) {
	query := `SELECT first_name, last_name, email, photo FROM users WHERE id = $1`
	var profile types.Profile
	err := s.db.QueryRowContext(ctx, query, userID).
		Scan(&profile.FirstName, &profile.LastName, &profile.Email, &profile.Photo)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Profile{}, ErrProfileNotFound
	}
	if err != nil {
		return types.Profile{}, err
	}
	return profile, nil
}
