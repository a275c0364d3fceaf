package transformation

import (
	"math"

	"github.com/pkg/errors"
)

// Kernel is a distance weighting function applied to residuals.
type Kernel int

const (
	KernelL2 Kernel = iota
	KernelL1
	KernelHuber
	KernelGedikli
)

var kernelNames = map[Kernel]string{
	KernelL2:      "l2",
	KernelL1:      "l1",
	KernelHuber:   "huber",
	KernelGedikli: "gedikli",
}

func (k Kernel) String() string {
	if s, ok := kernelNames[k]; ok {
		return s
	}
	return "unknown"
}

func ParseKernel(s string) (Kernel, error) {
	for k, name := range kernelNames {
		if name == s {
			return k, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownKernel, "%q", s)
}

// l1MinResidual bounds the L1 weights of vanishing residual components.
const l1MinResidual = 1e-6

// Rho returns the cost of a residual of length e.
// For KernelL1, e is the Manhattan length.
func (k Kernel) Rho(e, sigma float64) float64 {
	switch k {
	case KernelL1:
		return e
	case KernelHuber:
		if e < sigma {
			return e * e
		}
		return 2*sigma*e - sigma*sigma
	case KernelGedikli:
		r := e / (1.5 * sigma)
		return e * e / (1 + r*r*r*r)
	default:
		return e * e
	}
}

// weights returns the factors applied to the squared components of
// residual d during one reweighting pass.
func (k Kernel) weights(d [3]float64, sigma float64) [3]float64 {
	switch k {
	case KernelL1:
		var w [3]float64
		for i, v := range d {
			w[i] = 1 / math.Max(math.Abs(v), l1MinResidual)
		}
		return w
	case KernelHuber:
		e := math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
		if e <= sigma {
			return [3]float64{1, 1, 1}
		}
		w := sigma / e
		return [3]float64{w, w, w}
	case KernelGedikli:
		r := math.Sqrt(d[0]*d[0]+d[1]*d[1]+d[2]*d[2]) / (1.5 * sigma)
		w := 1 / (1 + r*r*r*r)
		return [3]float64{w, w, w}
	default:
		return [3]float64{1, 1, 1}
	}
}
