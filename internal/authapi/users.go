package authapi

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrUserNotFound = errors.New("authapi: user not found")
	ErrEmailTaken   = errors.New("authapi: email already registered")
)

// User is a registered account. Email is the login name.
type User struct {
	ID           int64
	Firstname    string
	Lastname     string
	Email        string
	PasswordHash string
	Role         string
}

// UserStore is what the HTTP layer needs from persistence.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, u *User) error
}

const usersSchema = `CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	firstname TEXT NOT NULL DEFAULT '',
	lastname TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'USER'
)`

// SQLUserStore keeps users in a SQLite database.
type SQLUserStore struct {
	db *sql.DB
}

func NewSQLUserStore(db *sql.DB) *SQLUserStore {
	return &SQLUserStore{db: db}
}

// Migrate creates the users table when missing.
func (s *SQLUserStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, usersSchema); err != nil {
		return fmt.Errorf("authapi: migrate users: %w", err)
	}
	return nil
}

func (s *SQLUserStore) FindByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, firstname, lastname, email, password, role FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Firstname, &u.Lastname, &u.Email, &u.PasswordHash, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("authapi: find user: %w", err)
	}
	return u, nil
}

// Create inserts u and sets u.ID.
func (s *SQLUserStore) Create(ctx context.Context, u *User) error {
	if u.Role == "" {
		u.Role = "USER"
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (firstname, lastname, email, password, role) VALUES (?, ?, ?, ?, ?)`,
		u.Firstname, u.Lastname, u.Email, u.PasswordHash, u.Role)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrEmailTaken
		}
		return fmt.Errorf("authapi: create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("authapi: create user: %w", err)
	}
	u.ID = id
	return nil
}
