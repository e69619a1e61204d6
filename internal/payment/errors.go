package payment

import (
	"errors"
	"fmt"
)

var (
	// ErrDeclined wraps a business rejection of a fiat leg. Terminal for the
	// attempt; retrying without changing inputs will not help.
	ErrDeclined = errors.New("payment declined")

	// ErrUnavailable wraps a transient payment-backend failure after the
	// dispatcher's retry budget was spent.
	ErrUnavailable = errors.New("payment unavailable")
)

// AsError maps a non-confirmed result onto the package sentinels so callers
// can errors.Is without inspecting outcomes.
func (r Result) AsError() error {
	switch r.Outcome {
	case Confirmed:
		return nil
	case Declined:
		if r.Err != nil {
			return fmt.Errorf("%w: %v", ErrDeclined, r.Err)
		}
		return ErrDeclined
	default:
		if r.Err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, r.Err)
		}
		return ErrUnavailable
	}
}
