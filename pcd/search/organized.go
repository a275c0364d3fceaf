package search

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/seqsense/pcalign/pcd"
)

var (
	ErrNotOrganized   = errors.New("cloud is not organized")
	ErrNotProjectable = errors.New("cloud is not projectable")
)

// OrganizedNeighbor is an exact Searcher for organized clouds captured by
// a pinhole camera at the origin looking along +z, with the principal
// point at the image center. Queries only scan the image window covering
// the projection of the search sphere.
type OrganizedNeighbor[P any] struct {
	rep   pcd.Representation[P]
	cloud *pcd.PointCloud[P]
	// valid marks indexed points with finite coordinates.
	valid    []bool
	size     int
	invFocal float64
}

func NewOrganizedNeighbor[P any](rep pcd.Representation[P]) *OrganizedNeighbor[P] {
	return &OrganizedNeighbor[P]{rep: rep}
}

func (o *OrganizedNeighbor[P]) SetInputCloud(cloud *pcd.PointCloud[P], indices []int) error {
	o.cloud, o.valid, o.size, o.invFocal = nil, nil, 0, 0
	if cloud.Len() == 0 || (indices != nil && len(indices) == 0) {
		return pcd.ErrEmptyCloud
	}
	if !cloud.IsOrganized() || cloud.Width < 2 || cloud.Width*cloud.Height != cloud.Len() {
		return errors.Wrapf(ErrNotOrganized, "%dx%d, %d points", cloud.Width, cloud.Height, cloud.Len())
	}
	if o.rep.Dim() != 3 {
		return errors.Wrapf(ErrNotProjectable, "%d dimensions", o.rep.Dim())
	}
	if err := cloud.CheckIndices(indices); err != nil {
		return err
	}

	valid := make([]bool, cloud.Len())
	mark := func(i int) {
		if pcd.IsValid(o.rep, cloud.Points[i]) && !valid[i] {
			valid[i] = true
			o.size++
		}
	}
	if indices == nil {
		for i := range valid {
			mark(i)
		}
	} else {
		for _, i := range indices {
			mark(i)
		}
	}

	invFocal, err := o.estimateInvFocal(cloud, valid)
	if err != nil {
		o.size = 0
		return err
	}
	o.cloud, o.valid, o.invFocal = cloud, valid, invFocal
	return nil
}

// estimateInvFocal averages x/(du*z) and y/(dv*z) over the valid points,
// du and dv being the pixel offsets from the image center.
func (o *OrganizedNeighbor[P]) estimateInvFocal(cloud *pcd.PointCloud[P], valid []bool) (float64, error) {
	cx, cy := cloud.Width/2, cloud.Height/2
	var sum float64
	var count int
	for row := 0; row < cloud.Height; row++ {
		for col := 0; col < cloud.Width; col++ {
			i := row*cloud.Width + col
			if !valid[i] {
				continue
			}
			x, y, z := o.xyz(cloud.Points[i])
			du, dv := float64(col-cx), float64(row-cy)
			if du*dv*z == 0 {
				continue
			}
			sum += x/(du*z) + y/(dv*z)
			count += 2
		}
	}
	if count == 0 {
		return 0, errors.Wrap(ErrNotProjectable, "no off-axis point")
	}
	inv := sum / float64(count)
	if !(inv > 0) || math.IsInf(inv, 0) {
		return 0, errors.Wrapf(ErrNotProjectable, "inverse focal length %g", inv)
	}
	return inv, nil
}

func (o *OrganizedNeighbor[P]) xyz(p P) (float64, float64, float64) {
	return float64(o.rep.Coord(p, 0)), float64(o.rep.Coord(p, 1)), float64(o.rep.Coord(p, 2))
}

func (o *OrganizedNeighbor[P]) Size() int {
	return o.size
}

// InvFocalLength returns the estimated inverse focal length in units per pixel.
func (o *OrganizedNeighbor[P]) InvFocalLength() float64 {
	return o.invFocal
}

type window struct {
	minX, maxX, minY, maxY int
}

func (o *OrganizedNeighbor[P]) fullWindow() window {
	return window{0, o.cloud.Width - 1, 0, o.cloud.Height - 1}
}

// pixelRange converts the projected interval [lo, hi] to pixels of an axis
// of n pixels, widened by one pixel for rounding.
func pixelRange(lo, hi float64, n int) (int, int) {
	if !(lo <= hi) {
		return 0, n - 1
	}
	return int(math.Max(math.Floor(lo)-1, 0)), int(math.Min(math.Ceil(hi)+1, float64(n-1)))
}

// sphereWindow returns the pixels covering the projection of the sphere of
// squared radius r2 around (x, y, z). Spheres reaching the camera plane get
// the whole image.
func (o *OrganizedNeighbor[P]) sphereWindow(x, y, z, r2 float64) window {
	z2 := z * z
	termX := x*x*r2 + z2*r2 - r2*r2
	termY := y*y*r2 + z2*r2 - r2*r2
	if z <= 0 || z2 <= r2 || termX < 0 || termY < 0 {
		return o.fullWindow()
	}
	scale := 1 / ((z2 - r2) * o.invFocal)
	sx, sy := math.Sqrt(termX), math.Sqrt(termY)
	cx, cy := float64(o.cloud.Width/2), float64(o.cloud.Height/2)
	var w window
	w.minX, w.maxX = pixelRange(cx+(x*z-sx)*scale, cx+(x*z+sx)*scale, o.cloud.Width)
	w.minY, w.maxY = pixelRange(cy+(y*z-sy)*scale, cy+(y*z+sy)*scale, o.cloud.Height)
	return w
}

// pixel returns the image pixel nearest to the projection of (x, y, z).
func (o *OrganizedNeighbor[P]) pixel(x, y, z float64) (int, int) {
	clamp := func(f float64, n int) int {
		if math.IsNaN(f) {
			return n / 2
		}
		return int(math.Min(math.Max(math.Round(f), 0), float64(n-1)))
	}
	return clamp(float64(o.cloud.Width/2)+x/(z*o.invFocal), o.cloud.Width),
		clamp(float64(o.cloud.Height/2)+y/(z*o.invFocal), o.cloud.Height)
}

// scan collects the valid points of w within squared distance r2 of p.
func (o *OrganizedNeighbor[P]) scan(p P, w window, r2 float32, nn []neighbor) []neighbor {
	for row := w.minY; row <= w.maxY; row++ {
		for col := w.minX; col <= w.maxX; col++ {
			i := row*o.cloud.Width + col
			if !o.valid[i] {
				continue
			}
			if d := pcd.DistSq(o.rep, p, o.cloud.Points[i]); d <= r2 {
				nn = append(nn, neighbor{index: i, distSq: d})
			}
		}
	}
	return nn
}

func sortNeighbors(nn []neighbor) {
	sort.Slice(nn, func(i, j int) bool {
		return Less(nn[i].distSq, nn[i].index, nn[j].distSq, nn[j].index)
	})
}

// NearestKSearch first collects at least k candidates from a growing window
// around the projected query, then rescans the window of the sphere
// reaching the k-th candidate.
func (o *OrganizedNeighbor[P]) NearestKSearch(p P, k int) ([]int, []float32, error) {
	if k < 1 {
		return nil, nil, errors.Wrapf(ErrInvalidK, "k = %d", k)
	}
	if !pcd.IsValid(o.rep, p) {
		return nil, nil, pcd.ErrInvalidPoint
	}
	if o.size == 0 {
		return []int{}, []float32{}, nil
	}
	if k > o.size {
		k = o.size
	}

	x, y, z := o.xyz(p)
	full := o.fullWindow()
	w := full
	half := 0
	for (2*half+1)*(2*half+1) < k {
		half++
	}
	var u, v int
	if z > 0 {
		u, v = o.pixel(x, y, z)
	}
	inf := float32(math.Inf(1))
	var nn []neighbor
	for {
		if z > 0 {
			w = window{u - half, u + half, v - half, v + half}
			w.minX, w.maxX = max(w.minX, full.minX), min(w.maxX, full.maxX)
			w.minY, w.maxY = max(w.minY, full.minY), min(w.maxY, full.maxY)
		}
		nn = o.scan(p, w, inf, nn[:0])
		if len(nn) >= k || w == full {
			break
		}
		half = 2*half + 1
	}
	sortNeighbors(nn)
	worst := nn[k-1].distSq

	nn = o.scan(p, o.sphereWindow(x, y, z, float64(worst)), worst, nn[:0])
	sortNeighbors(nn)
	indices, dists := split(nn[:k])
	return indices, dists, nil
}

// RadiusSearch returns the neighbors within radius sorted by distance.
// maxNN of 0 means unbounded.
func (o *OrganizedNeighbor[P]) RadiusSearch(p P, radius float64, maxNN int) ([]int, []float32, error) {
	if radius < 0 {
		return nil, nil, errors.Wrapf(ErrInvalidRadius, "radius = %g", radius)
	}
	if !pcd.IsValid(o.rep, p) {
		return nil, nil, pcd.ErrInvalidPoint
	}
	if o.size == 0 {
		return []int{}, []float32{}, nil
	}
	x, y, z := o.xyz(p)
	r2 := radius * radius
	nn := o.scan(p, o.sphereWindow(x, y, z, r2), float32(r2), nil)
	sortNeighbors(nn)
	if maxNN > 0 && maxNN < len(nn) {
		nn = nn[:maxNN]
	}
	indices, dists := split(nn)
	return indices, dists, nil
}

func (o *OrganizedNeighbor[P]) NearestKSearchAt(i, k int) ([]int, []float32, error) {
	p, err := o.cloud.Point(i)
	if err != nil {
		return nil, nil, err
	}
	return o.NearestKSearch(p, k)
}

func (o *OrganizedNeighbor[P]) RadiusSearchAt(i int, radius float64, maxNN int) ([]int, []float32, error) {
	p, err := o.cloud.Point(i)
	if err != nil {
		return nil, nil, err
	}
	return o.RadiusSearch(p, radius, maxNN)
}
