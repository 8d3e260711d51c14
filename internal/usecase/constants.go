package usecase

import "time"

const (
	// DefaultTransactionTimeout bounds a single store transaction so a
	// stuck write can not hold row locks indefinitely.
	DefaultTransactionTimeout = 10 * time.Second

	// rateDivisionPrecision is the scale used for inverse and chained
	// rate arithmetic before the final per-asset rounding.
	rateDivisionPrecision = 16
)
