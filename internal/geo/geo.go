package geo

import (
	"math"
	"unicode/utf16"

	"github.com/wroge/wgs84"

	"github.com/fleetlive/tracker/internal/model/core"
	"github.com/fleetlive/tracker/internal/store"
)

// Map defaults.
const (
	ZoomAll    = 10
	ZoomSingle = 15

	// DefaultBoundsPadding widens a fitted rectangle by this share of its
	// span on every side.
	DefaultBoundsPadding = 0.1

	// minSpanMeters keeps a rectangle around co-located points from
	// collapsing to a line.
	minSpanMeters = 100.0

	// maxMercatorLatitude is where Web Mercator's square extent ends.
	maxMercatorLatitude = 85.05112878

	// mercatorExtent is half the width of the Web Mercator plane in meters.
	mercatorExtent = 20037508.342789244
)

// DefaultCenter is used when nothing is known about any driver.
var DefaultCenter = Point{Latitude: 40.7128, Longitude: -74.0060}

// DriverPalette is the fixed color set drivers are assigned from.
var DriverPalette = []string{
	"#FF5722", "#2196F3", "#4CAF50", "#FF9800", "#9C27B0",
	"#00BCD4", "#795548", "#607D8B", "#E91E63", "#3F51B5",
}

// Point is a WGS84 position.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Bounds is a latitude/longitude rectangle.
type Bounds struct {
	South float64
	West  float64
	North float64
	East  float64
}

// Contains reports whether p lies inside the rectangle.
func (b Bounds) Contains(p Point) bool {
	return p.Latitude >= b.South && p.Latitude <= b.North &&
		p.Longitude >= b.West && p.Longitude <= b.East
}

// Center returns the midpoint of the rectangle.
func (b Bounds) Center() Point {
	return Point{Latitude: (b.South + b.North) / 2, Longitude: (b.West + b.East) / 2}
}

func pointOf(s core.LocationSample) Point {
	return Point{Latitude: s.Latitude, Longitude: s.Longitude}
}

// MapCenter picks the map focus: the selected driver's latest position in
// single mode, otherwise the mean of every live position, otherwise
// DefaultCenter.
func MapCenter(st *store.State) Point {
	if loc, ok := st.SelectedLocation(); ok {
		return pointOf(loc)
	}
	live := st.LiveLocations()
	if len(live) == 0 {
		return DefaultCenter
	}
	var lat, lon float64
	for _, loc := range live {
		lat += loc.Latitude
		lon += loc.Longitude
	}
	n := float64(len(live))
	return Point{Latitude: lat / n, Longitude: lon / n}
}

// DriverColor maps a device id onto the palette by summing its UTF-16 code
// units, so ids color the same as in the web dashboard. The same id always
// gets the same color.
func DriverColor(deviceID string, palette []string) string {
	if len(palette) == 0 {
		return ""
	}
	sum := 0
	for _, u := range utf16.Encode([]rune(deviceID)) {
		sum += int(u)
	}
	return palette[sum%len(palette)]
}

// ActivePoints returns the positions of drivers whose roster entry is active.
func ActivePoints(st *store.State) []Point {
	var out []Point
	for _, loc := range st.LiveLocations() {
		if d, ok := st.Driver(loc.DeviceID); ok && d.IsActive {
			out = append(out, pointOf(loc))
		}
	}
	return out
}

// FitBounds returns the padded rectangle around points. With fewer than two
// points there is nothing to fit and false is returned. Padding is applied
// in Web Mercator so it matches what the map shows. Latitudes beyond the
// Mercator limit are clamped before projecting and the padded rectangle never
// crosses the poles or the antimeridian.
func FitBounds(points []Point, padding float64) (Bounds, bool) {
	if len(points) < 2 {
		return Bounds{}, false
	}

	epsg := wgs84.EPSG()
	toMercator := epsg.Transform(4326, 3857)
	fromMercator := epsg.Transform(3857, 4326)

	raw := Bounds{South: 90, West: 180, North: -90, East: -180}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		raw.South, raw.North = min(raw.South, p.Latitude), max(raw.North, p.Latitude)
		raw.West, raw.East = min(raw.West, p.Longitude), max(raw.East, p.Longitude)

		lat := clamp(p.Latitude, -maxMercatorLatitude, maxMercatorLatitude)
		x, y, _ := toMercator(p.Longitude, lat, 0)
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
	}

	padX := max((maxX-minX)*padding, minSpanMeters/2)
	padY := max((maxY-minY)*padding, minSpanMeters/2)

	west, south, _ := fromMercator(clamp(minX-padX, -mercatorExtent, mercatorExtent), clamp(minY-padY, -mercatorExtent, mercatorExtent), 0)
	east, north, _ := fromMercator(clamp(maxX+padX, -mercatorExtent, mercatorExtent), clamp(maxY+padY, -mercatorExtent, mercatorExtent), 0)

	// The inverse projection may wrap the extent edges to the opposite sign.
	return Bounds{
		South: clamp(min(south, raw.South), -90, 90),
		West:  clamp(min(west, raw.West), -180, 180),
		North: clamp(max(north, raw.North), -90, 90),
		East:  clamp(max(east, raw.East), -180, 180),
	}, true
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}

// Zoom returns the zoom level for the view mode.
func Zoom(mode core.ViewMode) int {
	if mode == core.ViewSingle {
		return ZoomSingle
	}
	return ZoomAll
}

// Viewport is what the map should show.
type Viewport struct {
	Center Point
	Zoom   int
	// Bounds is set when the fleet view has enough drivers to fit.
	Bounds *Bounds
}

// ViewportFor derives the viewport from a snapshot.
func ViewportFor(st *store.State) Viewport {
	vp := Viewport{
		Center: MapCenter(st),
		Zoom:   Zoom(st.View.ViewMode),
	}
	if st.View.ViewMode == core.ViewAll {
		if b, ok := FitBounds(ActivePoints(st), DefaultBoundsPadding); ok {
			vp.Bounds = &b
		}
	}
	return vp
}

// Marker is one driver drawn on the map.
type Marker struct {
	DeviceID   string
	DriverName string
	Position   Point
	Color      string
	// AccuracyRadius is zero when the accuracy circle is hidden.
	AccuracyRadius float64
	Sample         core.LocationSample
}

// Markers returns the drivers to draw. Only devices with an active roster
// entry are shown; in single mode only the selected one.
func Markers(st *store.State) []Marker {
	var out []Marker
	for _, loc := range st.LiveLocations() {
		if st.View.ViewMode == core.ViewSingle && loc.DeviceID != st.View.SelectedDriverID {
			continue
		}
		d, ok := st.Driver(loc.DeviceID)
		if !ok || !d.IsActive {
			continue
		}
		name := d.DriverName
		if name == "" {
			name = "Unknown"
		}
		m := Marker{
			DeviceID:   loc.DeviceID,
			DriverName: name,
			Position:   pointOf(loc),
			Color:      DriverColor(loc.DeviceID, DriverPalette),
			Sample:     loc,
		}
		if st.View.ShowAccuracyCircle {
			m.AccuracyRadius = loc.Accuracy
		}
		out = append(out, m)
	}
	return out
}
