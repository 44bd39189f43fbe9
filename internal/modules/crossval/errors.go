package crossval

import "errors"

var (
	ErrInvalidWindow  = errors.New("crossval: training window must satisfy 2 <= min < max <= n")
	ErrEmptySchedule  = errors.New("crossval: split strategy produced no folds")
	ErrEmptyGrid      = errors.New("crossval: parameter grid is empty")
	ErrInvalidGrid    = errors.New("crossval: parameter grid contains an invalid value")
	ErrUnknownSplit   = errors.New("crossval: unknown split strategy")
	ErrUnknownMetric  = errors.New("crossval: unknown error metric")
	ErrLengthMismatch = errors.New("crossval: prediction and observation lengths differ")
)
