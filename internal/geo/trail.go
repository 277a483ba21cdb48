package geo

import (
	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/fleetlive/tracker/internal/model/core"
	"github.com/fleetlive/tracker/internal/queue"
)

// Trail builds the selected driver's path from the newest-first history
// as a line ordered oldest to newest, with X as longitude and Y as latitude.
// Fewer than two samples yield false.
func Trail(history queue.Bounded[core.LocationSample]) (geom.LineString, bool) {
	n := history.Len()
	if n < 2 {
		return geom.LineString{}, false
	}

	flatCoords := make([]float64, 0, n*2)
	for i := n - 1; i >= 0; i-- {
		s := history.At(i)
		flatCoords = append(flatCoords, s.Longitude, s.Latitude)
	}

	seq := geom.NewSequence(flatCoords, geom.DimXY)
	return geom.NewLineString(seq), true
}

// TrailPoints returns the trail vertices oldest to newest.
func TrailPoints(ls geom.LineString) []Point {
	seq := ls.Coordinates()
	out := make([]Point, 0, seq.Length())
	for i := 0; i < seq.Length(); i++ {
		c := seq.Get(i)
		out = append(out, Point{Latitude: c.Y, Longitude: c.X})
	}
	return out
}
