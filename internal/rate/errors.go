package rate

import (
	"errors"
	"time"
)

// ErrInvalidBudget is returned by Validate for non-positive budgets.
var ErrInvalidBudget = errors.New("rate: budget requires max requests > 0 and window > 0")

// Validate checks a (maxRequests, window) budget.
func Validate(maxRequests int, window time.Duration) error {
	if maxRequests <= 0 || window <= 0 {
		return ErrInvalidBudget
	}
	return nil
}
