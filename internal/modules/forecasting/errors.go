package forecasting

import "errors"

var (
	// ErrUnsupportedCombination is returned for option sets no dispatch path
	// can serve, such as the GEP solver with explanatory-power selection.
	ErrUnsupportedCombination = errors.New("forecasting: unsupported option combination")
	// ErrUnknownStrategy is returned for an unrecognised solver name.
	ErrUnknownStrategy = errors.New("forecasting: unknown solver strategy")
	// ErrInvalidData is returned when the request matrix is empty or ragged.
	ErrInvalidData = errors.New("forecasting: invalid data matrix")
	// ErrRunNotFound is returned when a stored run does not exist.
	ErrRunNotFound = errors.New("forecasting: run not found")
)
