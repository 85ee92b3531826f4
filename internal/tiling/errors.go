package tiling

import "github.com/pkg/errors"

// ErrInvalidTiling reports tiling parameters out of range or an array with
// no dimension that may be split.
var ErrInvalidTiling = errors.New("invalid tiling")
