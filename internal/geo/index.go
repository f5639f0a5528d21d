package geo

import (
	"math"

	"github.com/uber/h3-go/v4"
)

// Index holds accepted points in insertion order and finds the earliest one
// strictly closer than a threshold to a probe point.
type Index interface {
	Insert(p Point)
	// FirstWithin returns the insertion ordinal and distance of the earliest
	// inserted point whose distance to p is strictly less than km.
	FirstWithin(p Point, km float64) (ord int, distKm float64, ok bool)
	Len() int
}

// Linear scans every accepted point. It is the reference behavior.
type Linear struct{ pts []Point }

func NewLinear() *Linear { return &Linear{} }

func (l *Linear) Insert(p Point) { l.pts = append(l.pts, p) }
func (l *Linear) Len() int       { return len(l.pts) }

func (l *Linear) FirstWithin(p Point, km float64) (int, float64, bool) {
	for i, q := range l.pts {
		if d := DistanceKm(p, q); d < km {
			return i, d, true
		}
	}
	return 0, 0, false
}

// h3Resolution gives cells a few hundred meters wide; h3CellSpanKm is a lower
// bound on the distance covered by one ring step at that resolution.
const (
	h3Resolution = 8
	h3CellSpanKm = 0.25
)

// H3 buckets points by H3 cell and only measures points in the grid disk
// around the probe. Points that cannot be mapped to a cell (out-of-range
// coordinates) live in an overflow list that is always scanned, so results
// match Linear exactly.
type H3 struct {
	pts      []Point
	cells    map[h3.Cell][]int
	overflow []int
}

func NewH3() *H3 { return &H3{cells: make(map[h3.Cell][]int)} }

func (x *H3) Len() int { return len(x.pts) }

func (x *H3) Insert(p Point) {
	ord := len(x.pts)
	x.pts = append(x.pts, p)
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lon), h3Resolution)
	if err != nil {
		x.overflow = append(x.overflow, ord)
		return
	}
	x.cells[cell] = append(x.cells[cell], ord)
}

func (x *H3) FirstWithin(p Point, km float64) (int, float64, bool) {
	cands, ok := x.candidates(p, km)
	if !ok {
		// probe itself is not indexable: fall back to a full scan
		return (&Linear{pts: x.pts}).FirstWithin(p, km)
	}
	best, bestD, found := 0, 0.0, false
	for _, ord := range cands {
		if found && ord >= best {
			continue
		}
		if d := DistanceKm(p, x.pts[ord]); d < km {
			best, bestD, found = ord, d, true
		}
	}
	return best, bestD, found
}

func (x *H3) candidates(p Point, km float64) ([]int, bool) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lon), h3Resolution)
	if err != nil {
		return nil, false
	}
	k := int(math.Ceil(km/h3CellSpanKm)) + 1
	disk, err := h3.GridDisk(cell, k)
	if err != nil {
		return nil, false
	}
	out := append([]int(nil), x.overflow...)
	for _, c := range disk {
		out = append(out, x.cells[c]...)
	}
	return out, true
}

// NewIndex returns the index named by kind ("h3" or anything else for linear).
func NewIndex(kind string) Index {
	if kind == "h3" {
		return NewH3()
	}
	return NewLinear()
}
