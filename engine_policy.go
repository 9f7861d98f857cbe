package secureauthx

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

const maxEmailBytes = 254

// normalizeEmail trims and lowercases an address and rejects anything that is
// not a bare addr-spec.
func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || len(email) > maxEmailBytes {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func (e *Engine) checkPasswordPolicy(pw string) error {
	n := len(pw)
	if n < e.config.Policy.MinPasswordBytes || n > e.config.Policy.MaxPasswordBytes {
		return fmt.Errorf("%w: length must be %d-%d bytes",
			ErrPasswordPolicy, e.config.Policy.MinPasswordBytes, e.config.Policy.MaxPasswordBytes)
	}
	return nil
}

// allow runs the rate gate for op. Rejections are counted, audited and
// returned as *RateLimitError.
func (e *Engine) allow(ctx context.Context, op Operation, rejected MetricID) error {
	if !e.config.RateLimit.Enabled {
		return nil
	}
	budget := e.config.RateLimit.Budget(op)
	ok, retryAfter := e.rateLimiter.CheckAndRecord(string(op), clientIdentity(ctx), budget.MaxRequests, budget.Window)
	if ok {
		return nil
	}

	e.metricInc(rejected)
	e.emitRateLimit(ctx, op, retryAfter.Round(time.Second).String())
	return &RateLimitError{Operation: op, RetryAfter: retryAfter}
}
