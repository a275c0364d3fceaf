package pcd

// RandomAccessor gives indexed read access to a sequence of points.
type RandomAccessor[P any] interface {
	At(int) P
	Len() int
}

type sliceRandomAccessor[P any] []P

func (s sliceRandomAccessor[P]) At(i int) P {
	return s[i]
}

func (s sliceRandomAccessor[P]) Len() int {
	return len(s)
}

// NewSliceRandomAccessor wraps a slice.
func NewSliceRandomAccessor[P any](pp []P) RandomAccessor[P] {
	return sliceRandomAccessor[P](pp)
}

// Collect copies all points of ra into a new slice.
func Collect[P any](ra RandomAccessor[P]) []P {
	out := make([]P, ra.Len())
	for i := range out {
		out[i] = ra.At(i)
	}
	return out
}
