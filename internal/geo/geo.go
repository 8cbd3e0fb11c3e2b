// Package geo converts intersection coordinates between WGS84 and the
// web-mercator points stored in the database.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/shubham78763/trafficSignal/pkg/core"
	"github.com/wroge/wgs84"
)

// Points are always stored as EPSG:3857 WKB, since SQLite has no spatial
// awareness and both backends share the same column type.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// ParseCoordinates parses "lat,lng". An empty string yields the zero
// coordinate pair.
func ParseCoordinates(s string) (core.Coordinates, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Coordinates{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return core.Coordinates{}, fmt.Errorf("%w: %q", ErrInvalidCoordinates, s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return core.Coordinates{}, fmt.Errorf("%w: latitude %q", ErrInvalidCoordinates, parts[0])
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return core.Coordinates{}, fmt.Errorf("%w: longitude %q", ErrInvalidCoordinates, parts[1])
	}
	c := core.Coordinates{Lat: lat, Lng: lng}
	if err := Validate(c); err != nil {
		return core.Coordinates{}, err
	}
	return c, nil
}

// Validate checks the WGS84 ranges. Web mercator is undefined at the poles,
// so latitude is limited to +-85.06.
func Validate(c core.Coordinates) error {
	switch {
	case math.IsNaN(c.Lat) || math.IsNaN(c.Lng):
		return fmt.Errorf("%w: NaN", ErrInvalidCoordinates)
	case c.Lat < -85.06 || c.Lat > 85.06:
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinates, c.Lat)
	case c.Lng < -180 || c.Lng > 180:
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinates, c.Lng)
	}
	return nil
}

// Coords3857From4326 creates a web-mercator point from a longitude and latitude
func Coords3857From4326(longitude, latitude float64) (geom.Point, error) {
	if err := Validate(core.Coordinates{Lat: latitude, Lng: longitude}); err != nil {
		return geom.Point{}, err
	}
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: x, Y: y}}), nil
}

// PointFromCoordinates converts intersection coordinates to a stored point.
func PointFromCoordinates(c core.Coordinates) (geom.Point, error) {
	return Coords3857From4326(c.Lng, c.Lat)
}

// CoordinatesFromPoint converts a stored web-mercator point back to WGS84.
// An empty point yields the zero pair.
func CoordinatesFromPoint(p geom.Point) core.Coordinates {
	xy, ok := p.XY()
	if !ok {
		return core.Coordinates{}
	}
	f := wgs84.EPSG().Transform(3857, 4326)
	lng, lat, _ := f(xy.X, xy.Y, 0)
	return core.Coordinates{Lat: lat, Lng: lng}
}

// FormatCoordinates renders c as "lat,lng".
func FormatCoordinates(c core.Coordinates) string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}
