package pcd

type indiceRandomAccessor[P any] struct {
	indice []int
	ra     RandomAccessor[P]
}

func (i *indiceRandomAccessor[P]) Len() int {
	return len(i.indice)
}

func (i *indiceRandomAccessor[P]) At(j int) P {
	return i.ra.At(i.indice[j])
}

// NewIndiceRandomAccessor returns a view of ra restricted to indice.
// A nil indice selects every point.
func NewIndiceRandomAccessor[P any](ra RandomAccessor[P], indice []int) RandomAccessor[P] {
	if indice == nil {
		return ra
	}
	return &indiceRandomAccessor[P]{
		ra:     ra,
		indice: indice,
	}
}
