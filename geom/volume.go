package geom

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidVolume is returned by Validate for malformed volumes.
var ErrInvalidVolume = errors.New("invalid bounding volume")

// Kind identifies the shape held by a Volume.
type Kind uint8

const (
	KindPoint Kind = iota
	KindSphere
	KindBox
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "Point"
	case KindSphere:
		return "Sphere"
	case KindBox:
		return "Box"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Volume is a bounding volume: a point, a sphere or an axis-aligned box.
//
// Center is used by points and spheres, Radius by spheres only, Min and Max by
// boxes only. Use the constructors rather than filling the fields by hand.
type Volume struct {
	Kind   Kind
	Center mgl64.Vec3
	Radius float64
	Min    mgl64.Vec3
	Max    mgl64.Vec3
}

// NewPoint returns a point volume.
func NewPoint(p mgl64.Vec3) Volume {
	return Volume{Kind: KindPoint, Center: p}
}

// NewSphere returns a sphere volume.
func NewSphere(center mgl64.Vec3, radius float64) Volume {
	return Volume{Kind: KindSphere, Center: center, Radius: radius}
}

// NewBox returns a box volume.
func NewBox(minP, maxP mgl64.Vec3) Volume {
	return Volume{Kind: KindBox, Min: minP, Max: maxP}
}

// Point2 returns a point on the z = 0 plane.
func Point2(x, y float64) Volume {
	return NewPoint(mgl64.Vec3{x, y, 0})
}

// Sphere2 returns a circle on the z = 0 plane.
func Sphere2(x, y, radius float64) Volume {
	return NewSphere(mgl64.Vec3{x, y, 0}, radius)
}

// Box2 returns a rectangle on the z = 0 plane.
func Box2(minX, minY, maxX, maxY float64) Volume {
	return NewBox(mgl64.Vec3{minX, minY, 0}, mgl64.Vec3{maxX, maxY, 0})
}

// Bounds returns the enclosing axis-aligned box of v.
func (v Volume) Bounds() Box {
	switch v.Kind {
	case KindPoint:
		return Box{Min: v.Center, Max: v.Center}
	case KindSphere:
		r := mgl64.Vec3{v.Radius, v.Radius, v.Radius}
		return Box{Min: v.Center.Sub(r), Max: v.Center.Add(r)}
	case KindBox:
		return Box{Min: v.Min, Max: v.Max}
	default:
		return EmptyBox()
	}
}

// Validate checks that v is well formed: a known kind, finite coordinates, a
// non-negative radius and Min <= Max on every axis.
func Validate(v Volume) error {
	switch v.Kind {
	case KindPoint:
		if !finite(v.Center) {
			return fmt.Errorf("%w: non-finite point %v", ErrInvalidVolume, v.Center)
		}
	case KindSphere:
		if !finite(v.Center) {
			return fmt.Errorf("%w: non-finite sphere center %v", ErrInvalidVolume, v.Center)
		}
		if math.IsNaN(v.Radius) || math.IsInf(v.Radius, 0) || v.Radius < 0 {
			return fmt.Errorf("%w: sphere radius %g", ErrInvalidVolume, v.Radius)
		}
	case KindBox:
		if !finite(v.Min) || !finite(v.Max) {
			return fmt.Errorf("%w: non-finite box %v..%v", ErrInvalidVolume, v.Min, v.Max)
		}
		for d := 0; d < Dims; d++ {
			if v.Min[d] > v.Max[d] {
				return fmt.Errorf("%w: box min %g > max %g on axis %d", ErrInvalidVolume, v.Min[d], v.Max[d], d)
			}
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidVolume, v.Kind)
	}
	return nil
}

func finite(p mgl64.Vec3) bool {
	for _, c := range p {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
