package format

import "errors"

var (
	// ErrTypeMismatch is returned when a value list's type differs from
	// the data set it is formatted against.
	ErrTypeMismatch = errors.New("data set type does not match value list type")

	// ErrLineTooLong is returned when the line would exceed its bound.
	ErrLineTooLong = errors.New("formatted line exceeds maximum length")

	// ErrValueCount is returned when the number of values differs from
	// the number of data sources.
	ErrValueCount = errors.New("value count does not match data set")

	// ErrMissingRates is returned when rate mode is on but no rate was
	// supplied for a counter or derive slot.
	ErrMissingRates = errors.New("rates required but not supplied")
)
