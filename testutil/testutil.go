package testutil

import (
	"math/rand"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hupe1980/coarsesearch/core"
	"github.com/hupe1980/coarsesearch/geom"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Space controls where random volumes are placed.
type Space struct {
	// Extent is the edge length of the cube [0, Extent)^3 holding all centres.
	Extent float64
	// MaxSize bounds sphere radii and box half-widths.
	MaxSize float64
	// Planar places every volume on the z = 0 plane.
	Planar bool
	// Kinds restricts the generated shapes. Empty means all kinds.
	Kinds []geom.Kind
}

// Volumes generates num random volumes inside s.
func (r *RNG) Volumes(num int, s Space) []geom.Volume {
	r.mu.Lock()
	defer r.mu.Unlock()

	kinds := s.Kinds
	if len(kinds) == 0 {
		kinds = []geom.Kind{geom.KindPoint, geom.KindSphere, geom.KindBox}
	}

	vols := make([]geom.Volume, num)
	for i := range vols {
		c := mgl64.Vec3{r.rand.Float64() * s.Extent, r.rand.Float64() * s.Extent, r.rand.Float64() * s.Extent}
		if s.Planar {
			c[2] = 0
		}
		size := r.rand.Float64() * s.MaxSize
		vols[i] = Generate(kinds[r.rand.Intn(len(kinds))], c.X(), c.Y(), c.Z(), size)
	}
	return vols
}

// Items generates num random items owned by proc with ids firstID, firstID+1, ...
func (r *RNG) Items(num int, firstID uint64, proc int, s Space) []core.Item {
	vols := r.Volumes(num, s)
	items := make([]core.Item, num)
	for i, v := range vols {
		items[i] = core.NewItem(v, firstID+uint64(i), proc)
	}
	return items
}

// Shuffle returns a shuffled copy of items.
func (r *RNG) Shuffle(items []core.Item) []core.Item {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]core.Item, len(items))
	copy(out, items)
	r.rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Generate builds a volume of the given kind centred on (x, y, z).
//
// For spheres radius is the radius, for boxes it is the half-width of the cube;
// points ignore it.
func Generate(kind geom.Kind, x, y, z, radius float64) geom.Volume {
	c := mgl64.Vec3{x, y, z}
	switch kind {
	case geom.KindSphere:
		return geom.NewSphere(c, radius)
	case geom.KindBox:
		h := mgl64.Vec3{radius, radius, radius}
		return geom.NewBox(c.Sub(h), c.Add(h))
	default:
		return geom.NewPoint(c)
	}
}

// Partition distributes items round-robin over n ranks. Identifiers are kept
// unchanged so results can be compared with a single-rank run.
func Partition(items []core.Item, n int) [][]core.Item {
	parts := make([][]core.Item, n)
	for i, it := range items {
		parts[i%n] = append(parts[i%n], it)
	}
	return parts
}
