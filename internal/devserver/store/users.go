package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrUserNotFound = errors.New("user not found")
)

// User is a registered account row.
type User struct {
	ID           int64
	Nombre       string
	Apellido     string
	DNI          string
	Email        string
	PasswordHash string
	Tipo         string
}

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *User) error {
	query := `INSERT INTO usuarios (nombre, apellido, dni, email, password_hash, tipo)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := r.db.QueryRow(ctx, query,
		u.Nombre, u.Apellido, u.DNI, u.Email, u.PasswordHash, u.Tipo).Scan(&u.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT id, nombre, apellido, dni, email, password_hash, tipo
		FROM usuarios WHERE email = $1`
	var u User
	err := r.db.QueryRow(ctx, query, email).Scan(
		&u.ID, &u.Nombre, &u.Apellido, &u.DNI, &u.Email, &u.PasswordHash, &u.Tipo)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user by email: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) ByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT id, nombre, apellido, dni, email, password_hash, tipo
		FROM usuarios WHERE id = $1`
	var u User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.Nombre, &u.Apellido, &u.DNI, &u.Email, &u.PasswordHash, &u.Tipo)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user by id: %w", err)
	}
	return &u, nil
}
