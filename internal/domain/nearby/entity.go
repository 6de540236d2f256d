// Package nearby holds the entities shown as markers on the map: the
// workers (or postings) returned by a proximity query.
package nearby

import "workmap/internal/domain/geo"

// Entity is one nearby result. Both the REST query and the realtime
// query produce these; whichever arrives last replaces the displayed set
// wholesale, with no merging across sources.
type Entity struct {
	ID          int64
	DisplayName string
	LastName    string
	Description string
	PhotoURL    string
	Coordinate  geo.Point
}
