package contracts

import (
	"workmap/internal/domain/geo"
	"workmap/internal/domain/nearby"
)

// RegisterRequest is POST /usuarios. Field names follow the backend's
// Spanish API surface.
type RegisterRequest struct {
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	DNI      string `json:"dni"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Tipo     string `json:"tipo"` // "trabajador" | "cliente"
}

// LoginRequest is POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the signed access token.
type LoginResponse struct {
	Token string `json:"token"`
}

// ErrorResponse is the backend's error body when one is present at all;
// non-2xx responses carry no guaranteed shape.
type ErrorResponse struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NearbyEntityWire is one record of GET /usuarios/cerca. Coordenadas is a
// [longitude, latitude] pair — reversed relative to the internal
// representation, GeoJSON style.
type NearbyEntityWire struct {
	ID          int64      `json:"id"`
	Nombre      string     `json:"nombre"`
	Apellido    string     `json:"apellido,omitempty"`
	Descripcion string     `json:"descripcion,omitempty"`
	FotoURL     string     `json:"fotoUrl,omitempty"`
	Coordenadas [2]float64 `json:"coordenadas"`
}

// PointFromPair converts a wire [lng, lat] pair to an internal Point.
func PointFromPair(pair [2]float64) geo.Point {
	return geo.Point{Lat: pair[1], Lng: pair[0]}
}

// PairFromPoint converts an internal Point to the wire [lng, lat] pair.
func PairFromPoint(p geo.Point) [2]float64 {
	return [2]float64{p.Lng, p.Lat}
}

// Entity converts a wire record to the domain entity, flipping the axis
// order exactly once.
func (w NearbyEntityWire) Entity() nearby.Entity {
	return nearby.Entity{
		ID:          w.ID,
		DisplayName: w.Nombre,
		LastName:    w.Apellido,
		Description: w.Descripcion,
		PhotoURL:    w.FotoURL,
		Coordinate:  PointFromPair(w.Coordenadas),
	}
}

// Wire converts a domain entity to its REST representation.
func WireFromEntity(e nearby.Entity) NearbyEntityWire {
	return NearbyEntityWire{
		ID:          e.ID,
		Nombre:      e.DisplayName,
		Apellido:    e.LastName,
		Descripcion: e.Description,
		FotoURL:     e.PhotoURL,
		Coordenadas: PairFromPoint(e.Coordinate),
	}
}

// ProfileRequest creates or updates a worker profile.
type ProfileRequest struct {
	Titulo      string `json:"titulo"`
	Descripcion string `json:"descripcion"`
	Telefono    string `json:"telefono,omitempty"`
	FotoURL     string `json:"fotoUrl,omitempty"`
}

// PostingRequest publishes a service posting.
type PostingRequest struct {
	Titulo      string  `json:"titulo"`
	Descripcion string  `json:"descripcion"`
	Precio      float64 `json:"precio,omitempty"`
}
