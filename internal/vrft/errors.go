package vrft

import (
	"errors"

	"github.com/san-kum/vrft/internal/iddata"
)

var (
	// ErrDimensionMismatch indicates θ and basis sizes, or instrument and
	// regressor shapes, that do not agree.
	ErrDimensionMismatch = iddata.ErrDimensionMismatch

	// ErrInvalidParameter indicates a missing experiment or empty basis.
	ErrInvalidParameter = iddata.ErrInvalidParameter

	// ErrInsufficientHistory indicates an initial-condition vector shorter
	// than the largest filter order.
	ErrInsufficientHistory = errors.New("vrft: initial conditions shorter than filter order")

	// ErrInsufficientData indicates an experiment no longer than the warm-up.
	ErrInsufficientData = errors.New("vrft: experiment shorter than warm-up")

	// ErrRankDeficient indicates a regression matrix without full column rank.
	ErrRankDeficient = errors.New("vrft: regression matrix is rank deficient")

	// ErrIllConditioned indicates an instrumental-variable system too close
	// to singular for a stable solve.
	ErrIllConditioned = errors.New("vrft: ill-conditioned system")
)
