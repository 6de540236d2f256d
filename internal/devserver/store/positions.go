package store

import (
	"context"
	"fmt"

	"workmap/internal/domain/geo"
	"workmap/internal/domain/nearby"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PositionRepository struct {
	db *pgxpool.Pool
}

func NewPositionRepository(db *pgxpool.Pool) *PositionRepository {
	return &PositionRepository{db: db}
}

// Upsert records the latest known position of a user. One row per user,
// last write wins.
func (r *PositionRepository) Upsert(ctx context.Context, userID int64, p geo.Point) error {
	query := `INSERT INTO posiciones (user_id, latitude, longitude, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id) DO UPDATE
		SET latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude, updated_at = now()`
	if _, err := r.db.Exec(ctx, query, userID, p.Lat, p.Lng); err != nil {
		return fmt.Errorf("upsert position: %w", err)
	}
	return nil
}

// Nearby returns broadcasters within radiusKm of center, joined with
// their profile when one exists. A bounding box narrows the scan, the
// exact haversine cut happens in Go.
func (r *PositionRepository) Nearby(ctx context.Context, center geo.Point, radiusKm float64) ([]nearby.Entity, error) {
	latDelta := radiusKm / 111.0
	lngDelta := radiusKm / 85.0

	query := `SELECT u.id, u.nombre, u.apellido,
			COALESCE(pf.descripcion, ''), COALESCE(pf.foto_url, ''),
			po.latitude, po.longitude
		FROM posiciones po
		JOIN usuarios u ON u.id = po.user_id
		LEFT JOIN perfiles pf ON pf.user_id = u.id
		WHERE u.tipo = 'trabajador'
		  AND po.latitude  BETWEEN $1 AND $2
		  AND po.longitude BETWEEN $3 AND $4`
	rows, err := r.db.Query(ctx, query,
		center.Lat-latDelta, center.Lat+latDelta,
		center.Lng-lngDelta, center.Lng+lngDelta)
	if err != nil {
		return nil, fmt.Errorf("select nearby: %w", err)
	}
	defer rows.Close()

	var out []nearby.Entity
	for rows.Next() {
		var e nearby.Entity
		if err := rows.Scan(&e.ID, &e.DisplayName, &e.LastName,
			&e.Description, &e.PhotoURL, &e.Coordinate.Lat, &e.Coordinate.Lng); err != nil {
			return nil, fmt.Errorf("scan nearby row: %w", err)
		}
		if geo.DistanceKm(center, e.Coordinate) <= radiusKm {
			out = append(out, e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nearby rows: %w", err)
	}
	return out, nil
}
