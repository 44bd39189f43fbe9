package crossval

import (
	"fmt"
	"strings"
)

// Fold is one train/validation split: the model is fitted on instants
// [0, Train) and scored against instant Validation.
type Fold struct {
	Train      int `json:"train" msgpack:"train"`
	Validation int `json:"validation" msgpack:"validation"`
}

// SplitStrategy produces the folds for a series of n instants.
type SplitStrategy interface {
	Name() string
	Folds(n int) ([]Fold, error)
}

// SplitExpandingWindow is the tag of ExpandingWindow.
const SplitExpandingWindow = "expanding_window"

// ExpandingWindow trains on every prefix length in [MinTrain, MaxTrain) and
// validates on the single instant right after the prefix. Training sets are
// nested: each fold's prefix contains all earlier ones.
type ExpandingWindow struct {
	MinTrain int
	MaxTrain int
}

// Name implements SplitStrategy.
func (ExpandingWindow) Name() string { return SplitExpandingWindow }

// Folds implements SplitStrategy.
func (w ExpandingWindow) Folds(n int) ([]Fold, error) {
	if w.MinTrain < 2 || w.MinTrain >= w.MaxTrain || w.MaxTrain > n {
		return nil, fmt.Errorf("%w: min=%d max=%d n=%d", ErrInvalidWindow, w.MinTrain, w.MaxTrain, n)
	}
	folds := make([]Fold, 0, w.MaxTrain-w.MinTrain)
	for i := w.MinTrain; i < w.MaxTrain; i++ {
		folds = append(folds, Fold{Train: i, Validation: i})
	}
	return folds, nil
}

// NewSplitStrategy resolves a split strategy tag.
func NewSplitStrategy(tag string, minTrain, maxTrain int) (SplitStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "", SplitExpandingWindow, "augmenting_window":
		return ExpandingWindow{MinTrain: minTrain, MaxTrain: maxTrain}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSplit, tag)
	}
}
