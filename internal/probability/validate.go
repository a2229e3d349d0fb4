package probability

import (
	"errors"
	"math"
)

var (
	ErrInvalidWeight = errors.New("invalid weight; must be finite and >= 0")
	ErrPoolShape     = errors.New("pool ids and weights differ in length")
)

func validateWeight(w float64) error {
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return ErrInvalidWeight
	}
	if w < 0 {
		return ErrInvalidWeight
	}
	return nil
}

func (p Pool) validate() error {
	if len(p.IDs) != len(p.Weights) {
		return ErrPoolShape
	}
	for _, w := range p.Weights {
		if err := validateWeight(w); err != nil {
			return err
		}
	}
	return nil
}
