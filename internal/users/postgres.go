package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/yourusername/session-auth/internal/users/migrations"
)

const pgUniqueViolation = "23505"

// PostgresStore は PostgreSQL の users テーブルにユーザーを保存します。
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres は pgx ドライバで接続を開き、疎通を確認します。
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}

// gooseUpContext はテストで差し替えるための継ぎ目です。
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations は埋め込みマイグレーションを適用します。
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// NewPostgresStore は PostgresStore を作成します。
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// FindByEmail はメールアドレスでユーザーを検索します。
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	query :=
		`SELECT id, fullname, email, password, created_at FROM users
		 WHERE email = $1
		 `

	user := &User{}
	err := s.db.QueryRowContext(ctx, query, NormalizeEmail(email)).
		Scan(&user.ID, &user.Fullname, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "find", Err: err}
	}
	return user, nil
}

// Create はユーザーを挿入します。users_email_key 制約違反は ErrDuplicateEmail になります。
func (s *PostgresStore) Create(ctx context.Context, user *User) (*User, error) {
	if user == nil {
		return nil, fmt.Errorf("user is nil")
	}
	record := *user
	record.Email = NormalizeEmail(record.Email)
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query :=
		`INSERT INTO users (id, fullname, email, password, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 `

	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.Fullname, record.Email, record.PasswordHash, record.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicateEmail
		}
		return nil, &PersistenceError{Op: "create", Err: err}
	}
	return &record, nil
}
