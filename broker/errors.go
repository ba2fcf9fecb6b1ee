package broker

import (
	"errors"
	"fmt"
)

// AuthError means the broker session could not be established or renewed.
// The process cannot trade without a session, so callers escalate this.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("broker auth: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// DataUnavailableError means a requested candle or stream could not be
// retrieved within its deadline. Callers skip the affected session rather
// than retry indefinitely.
type DataUnavailableError struct {
	What string
	Err  error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("broker data unavailable: %s: %v", e.What, e.Err)
}
func (e *DataUnavailableError) Unwrap() error { return e.Err }

// OrderRejectedError means the broker refused an order submission.
type OrderRejectedError struct {
	OrderID string
	Reason  string
}

func (e *OrderRejectedError) Error() string {
	if e.OrderID == "" {
		return fmt.Sprintf("order rejected: %s", e.Reason)
	}
	return fmt.Sprintf("order %s rejected: %s", e.OrderID, e.Reason)
}

func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

func IsDataUnavailable(err error) bool {
	var de *DataUnavailableError
	return errors.As(err, &de)
}

func IsOrderRejected(err error) bool {
	var oe *OrderRejectedError
	return errors.As(err, &oe)
}
