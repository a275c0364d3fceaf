package icp

type Status int

const (
	StatusInitialized Status = iota
	StatusIterating
	StatusConverged
	StatusMaxIterationsReached
	StatusDiverged
)

func (s Status) String() string {
	switch s {
	case StatusInitialized:
		return "initialized"
	case StatusIterating:
		return "iterating"
	case StatusConverged:
		return "converged"
	case StatusMaxIterationsReached:
		return "max_iterations_reached"
	case StatusDiverged:
		return "diverged"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends an alignment.
func (s Status) Terminal() bool {
	return s == StatusConverged || s == StatusMaxIterationsReached || s == StatusDiverged
}
