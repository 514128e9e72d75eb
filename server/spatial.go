package main

import (
	"math"

	"github.com/solarlune/resolv"
)

const (
	spatialCellSize = 40
	tagObstacle     = "obstacle"
)

// ObstacleField indexes the static obstacles of an arena for overlap queries.
// The resolv space is the broad phase; candidates are narrowed with an exact
// AABB test. It is never mutated after NewObstacleField returns.
type ObstacleField struct {
	space *resolv.Space
	rects []Rect
}

// NewObstacleField builds the broad-phase space for a w×h arena
func NewObstacleField(w, h float64, obstacles []Rect) *ObstacleField {
	space := resolv.NewSpace(int(math.Ceil(w)), int(math.Ceil(h)), spatialCellSize, spatialCellSize)
	f := &ObstacleField{space: space, rects: make([]Rect, len(obstacles))}
	copy(f.rects, obstacles)
	for _, r := range obstacles {
		obj := resolv.NewObject(r.X, r.Y, r.W, r.H, tagObstacle)
		space.Add(obj)
	}
	return f
}

// Blocked reports whether r overlaps any obstacle
func (f *ObstacleField) Blocked(r Rect) bool {
	if f == nil || len(f.rects) == 0 {
		return false
	}
	// The probe only borrows the space reference; it is never added, so
	// concurrent queries do not touch the cells. resolv maps bounds to cells
	// with a one pixel inset, so the probe is grown by a pixel on every side.
	probe := resolv.NewObject(r.X-1, r.Y-1, r.W+2, r.H+2)
	probe.Space = f.space
	check := probe.Check(0, 0, tagObstacle)
	if check == nil {
		return false
	}
	for _, o := range check.Objects {
		if r.Overlaps(Rect{X: o.X, Y: o.Y, W: o.W, H: o.H}) {
			return true
		}
	}
	return false
}
