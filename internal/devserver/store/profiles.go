package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Profile is a worker's public card: what shows when a marker is tapped.
type Profile struct {
	UserID      int64
	Titulo      string
	Descripcion string
	Telefono    string
	FotoURL     string
}

// Posting is a service offer published by a worker.
type Posting struct {
	ID          int64
	UserID      int64
	Titulo      string
	Descripcion string
	Precio      float64
}

type ProfileRepository struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Save(ctx context.Context, p *Profile) error {
	query := `INSERT INTO perfiles (user_id, titulo, descripcion, telefono, foto_url, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (user_id) DO UPDATE
		SET titulo = EXCLUDED.titulo, descripcion = EXCLUDED.descripcion,
		    telefono = EXCLUDED.telefono, foto_url = EXCLUDED.foto_url, updated_at = now()`
	if _, err := r.db.Exec(ctx, query, p.UserID, p.Titulo, p.Descripcion, p.Telefono, p.FotoURL); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) CreatePosting(ctx context.Context, p *Posting) error {
	query := `INSERT INTO publicaciones (user_id, titulo, descripcion, precio)
		VALUES ($1, $2, $3, $4) RETURNING id`
	err := r.db.QueryRow(ctx, query, p.UserID, p.Titulo, p.Descripcion, p.Precio).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert posting: %w", err)
	}
	return nil
}

func (r *ProfileRepository) PostingsByUser(ctx context.Context, userID int64) ([]Posting, error) {
	query := `SELECT id, user_id, titulo, descripcion, precio
		FROM publicaciones WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("select postings: %w", err)
	}
	defer rows.Close()

	var out []Posting
	for rows.Next() {
		var p Posting
		if err := rows.Scan(&p.ID, &p.UserID, &p.Titulo, &p.Descripcion, &p.Precio); err != nil {
			return nil, fmt.Errorf("scan posting row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posting rows: %w", err)
	}
	return out, nil
}
