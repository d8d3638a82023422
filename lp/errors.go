//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package lp

import (
	"errors"
)

// Errors.
var (
	ErrDimension      = errors.New("lp: dimension mismatch")
	ErrUnbounded      = errors.New("lp: problem is unbounded")
	ErrIterationLimit = errors.New("lp: iteration limit reached")
)
