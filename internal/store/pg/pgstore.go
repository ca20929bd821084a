package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tunewave.org/internal/auth"
	"tunewave.org/internal/ids"
)

// Store implements auth.AccountStore on PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ auth.AccountStore = (*Store)(nil)

// Open connects to PostgreSQL with pool defaults tuned for short
// request-scoped queries.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing database handle (used by tests and cmd/migrate).
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the raw handle for readiness pings.
func (s *Store) DB() *sql.DB { return s.db }

const accountColumns = `id, username, display_name, password_hash, role, refresh_token, last_login_at, created_at, updated_at`

func (s *Store) Create(ctx context.Context, account *auth.Account) error {
	if account.ID == "" {
		account.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into accounts(id, username, display_name, password_hash, role)
		values ($1, $2, $3, $4, $5)
		returning created_at, updated_at`,
		account.ID, account.Username, account.DisplayName, account.PasswordHash, account.Role,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *Store) Find(ctx context.Context, id string) (*auth.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where id = $1`, id)
	return scanAccount(row)
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*auth.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where username = $1`, username)
	return scanAccount(row)
}

func (s *Store) List(ctx context.Context) ([]*auth.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+accountColumns+` from accounts order by created_at asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*auth.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, account)
	}
	return res, rows.Err()
}

func (s *Store) UpdateRole(ctx context.Context, id, role string) error {
	return s.exec(ctx,
		`update accounts set role = $2, updated_at = now() where id = $1`, id, role)
}

func (s *Store) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return s.exec(ctx,
		`update accounts set password_hash = $2, updated_at = now() where id = $1`, id, passwordHash)
}

// SetRefreshToken persists token and login timestamp in one statement;
// the row update is atomic, so concurrent logins race to last write wins.
func (s *Store) SetRefreshToken(ctx context.Context, id, token string, loginAt time.Time) error {
	return s.exec(ctx,
		`update accounts set refresh_token = $2, last_login_at = $3, updated_at = now() where id = $1`,
		id, token, loginAt)
}

func (s *Store) ReplaceRefreshToken(ctx context.Context, id, token string) error {
	return s.exec(ctx,
		`update accounts set refresh_token = $2, updated_at = now() where id = $1`, id, token)
}

func (s *Store) ClearRefreshToken(ctx context.Context, id string) error {
	return s.exec(ctx,
		`update accounts set refresh_token = null, updated_at = now() where id = $1`, id)
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return auth.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*auth.Account, error) {
	var (
		account      auth.Account
		refreshToken sql.NullString
		lastLoginAt  sql.NullTime
	)
	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.DisplayName,
		&account.PasswordHash,
		&account.Role,
		&refreshToken,
		&lastLoginAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	if refreshToken.Valid {
		account.RefreshToken = refreshToken.String
	}
	if lastLoginAt.Valid {
		t := lastLoginAt.Time
		account.LastLoginAt = &t
	}
	return &account, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
