package pcd

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"

	"github.com/seqsense/pcalign/mat"
)

// Representation exposes the coordinates of a point type.
type Representation[P any] interface {
	Dim() int
	Coord(p P, axis int) float32
}

// IsValid reports whether every coordinate of p is finite.
func IsValid[P any](rep Representation[P], p P) bool {
	for i := 0; i < rep.Dim(); i++ {
		f := float64(rep.Coord(p, i))
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Coords writes the coordinates of p into dst and returns it.
func Coords[P any](rep Representation[P], p P, dst []float32) []float32 {
	dst = dst[:0]
	for i := 0; i < rep.Dim(); i++ {
		dst = append(dst, rep.Coord(p, i))
	}
	return dst
}

// DistSq returns the squared Euclidean distance between a and b.
func DistSq[P any](rep Representation[P], a, b P) float32 {
	var sum float32
	for i := 0; i < rep.Dim(); i++ {
		d := rep.Coord(a, i) - rep.Coord(b, i)
		sum += d * d
	}
	return sum
}

type Vec3Representation struct{}

func (Vec3Representation) Dim() int { return 3 }

func (Vec3Representation) Coord(p mat.Vec3, axis int) float32 { return p[axis] }

// R3Representation indexes github.com/golang/geo r3.Vector points.
type R3Representation struct{}

func (R3Representation) Dim() int { return 3 }

func (R3Representation) Coord(p r3.Vector, axis int) float32 {
	switch axis {
	case 0:
		return float32(p.X)
	case 1:
		return float32(p.Y)
	default:
		return float32(p.Z)
	}
}

// OrbRepresentation indexes planar orb.Point points.
type OrbRepresentation struct{}

func (OrbRepresentation) Dim() int { return 2 }

func (OrbRepresentation) Coord(p orb.Point, axis int) float32 { return float32(p[axis]) }
