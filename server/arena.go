package main

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/lafriks/go-tiled"
)

const (
	DefaultArenaWidth  = 800.0
	DefaultArenaHeight = 600.0

	obstacleGroupName = "obstacles"
	wallLayerName     = "walls"
)

// Arena is the fixed playfield: its bounds and static obstacles.
type Arena struct {
	Width, Height float64
	Obstacles     []Rect
	field         *ObstacleField
}

// NewArena validates the obstacles and builds the collision field
func NewArena(w, h float64, obstacles []Rect) (*Arena, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("arena size %vx%v must be positive", w, h)
	}
	for i, r := range obstacles {
		if r.W <= 0 || r.H <= 0 {
			return nil, fmt.Errorf("obstacle %d has empty size %vx%v", i, r.W, r.H)
		}
		if !r.Overlaps(Rect{W: w, H: h}) {
			return nil, fmt.Errorf("obstacle %d at (%v,%v) lies outside the arena", i, r.X, r.Y)
		}
	}
	return &Arena{
		Width:     w,
		Height:    h,
		Obstacles: obstacles,
		field:     NewObstacleField(w, h, obstacles),
	}, nil
}

// DefaultArena is the built-in 800x600 layout: four corner blocks around a
// central cross, symmetric so no spawn side is favoured.
func DefaultArena() *Arena {
	a, err := NewArena(DefaultArenaWidth, DefaultArenaHeight, []Rect{
		{X: 140, Y: 120, W: 120, H: 40},
		{X: 540, Y: 120, W: 120, H: 40},
		{X: 140, Y: 440, W: 120, H: 40},
		{X: 540, Y: 440, W: 120, H: 40},
		{X: 380, Y: 220, W: 40, H: 160},
		{X: 320, Y: 280, W: 160, H: 40},
	})
	if err != nil {
		panic("default arena: " + err.Error())
	}
	return a
}

// LoadArena reads a Tiled .tmx map. Rectangles in the "obstacles" object group
// and every tile of the "walls" layer become obstacles.
func LoadArena(path string) (*Arena, error) {
	m, err := tiled.LoadFile(filepath.Base(path), tiled.WithFileSystem(os.DirFS(filepath.Dir(path))))
	if err != nil {
		return nil, fmt.Errorf("load tmx %s: %w", path, err)
	}

	w := float64(m.Width * m.TileWidth)
	h := float64(m.Height * m.TileHeight)
	var obstacles []Rect

	for _, og := range m.ObjectGroups {
		if og.Name != obstacleGroupName {
			continue
		}
		for _, o := range og.Objects {
			if o.Width <= 0 || o.Height <= 0 {
				continue // points and polylines carry no area
			}
			obstacles = append(obstacles, Rect{X: o.X, Y: o.Y, W: o.Width, H: o.Height})
		}
	}

	tw := float64(m.TileWidth)
	th := float64(m.TileHeight)
	for _, layer := range m.Layers {
		if layer.Name != wallLayerName {
			continue
		}
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				idx := y*m.Width + x
				if idx >= len(layer.Tiles) || layer.Tiles[idx].IsNil() {
					continue
				}
				obstacles = append(obstacles, Rect{X: float64(x) * tw, Y: float64(y) * th, W: tw, H: th})
			}
		}
	}

	a, err := NewArena(w, h, obstacles)
	if err != nil {
		return nil, fmt.Errorf("arena %s: %w", path, err)
	}
	log.Printf("Loaded arena %s: %vx%v, %d obstacles", path, w, h, len(obstacles))
	return a, nil
}

// Blocked reports whether r overlaps a static obstacle
func (a *Arena) Blocked(r Rect) bool {
	return a.field.Blocked(r)
}

// Free reports whether r lies inside the arena and clear of obstacles
func (a *Arena) Free(r Rect) bool {
	return r.Inside(a.Width, a.Height) && !a.field.Blocked(r)
}

// NearestFree scans a grid of half-tank steps for the free size×size spot
// whose top-left is closest to (x, y). ok is false when every cell is
// blocked.
func (a *Arena) NearestFree(x, y, size float64) (float64, float64, bool) {
	step := size / 2
	best := math.Inf(1)
	var bx, by float64
	for gy := 0.0; gy+size <= a.Height; gy += step {
		for gx := 0.0; gx+size <= a.Width; gx += step {
			d := math.Hypot(gx-x, gy-y)
			if d >= best || !a.Free(Rect{X: gx, Y: gy, W: size, H: size}) {
				continue
			}
			best, bx, by = d, gx, gy
		}
	}
	return bx, by, !math.IsInf(best, 1)
}

// Center returns the arena centre
func (a *Arena) Center() (float64, float64) {
	return a.Width / 2, a.Height / 2
}
