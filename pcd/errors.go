package pcd

import (
	"github.com/pkg/errors"
)

var (
	ErrEmptyCloud      = errors.New("empty point cloud")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrInvalidPoint    = errors.New("invalid point")
)
