package models

import (
	"encoding/json"
	"fmt"

	dErrors "titleguard/pkg/domain-errors"
)

// MinPolygonVertices is the smallest boundary the overlap check accepts.
const MinPolygonVertices = 3

// PolygonSchemaVersion is the current wire schema version for claim polygons.
const PolygonSchemaVersion = 1

// Vertex is a single polygon corner in WGS84 degrees.
type Vertex struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Polygon is a claim boundary: an ordered vertex list, closed implicitly
// (the last vertex connects back to the first). Validated at the ingestion
// boundary so downstream geometry never sees malformed input.
type Polygon struct {
	Version  int      `json:"version"`
	Vertices []Vertex `json:"vertices"`
}

// Validate enforces the polygon schema invariants.
func (p *Polygon) Validate() error {
	if p == nil {
		return nil
	}
	if p.Version != PolygonSchemaVersion {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unsupported polygon schema version %d", p.Version))
	}
	if len(p.Vertices) < MinPolygonVertices {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("polygon requires at least %d vertices, got %d", MinPolygonVertices, len(p.Vertices)))
	}
	for i, v := range p.Vertices {
		if v.Lat < -90 || v.Lat > 90 || v.Lng < -180 || v.Lng > 180 {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("polygon vertex %d out of range: (%f, %f)", i, v.Lat, v.Lng))
		}
	}
	return nil
}

// ParsePolygon decodes and validates a polygon JSON document. Empty input is
// a legal "no polygon" result.
func ParsePolygon(raw []byte) (*Polygon, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var p Polygon
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "malformed polygon document")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Marshal encodes the polygon for storage.
func (p *Polygon) Marshal() ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}
