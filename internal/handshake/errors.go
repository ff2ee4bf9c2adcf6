package handshake

import (
	"errors"
	"fmt"
)

var (
	ErrCancelled          = errors.New("payment cancelled by customer")
	ErrExpired            = errors.New("payment window expired")
	ErrVerificationFailed = errors.New("payment verification failed")
	ErrEmptyCart          = errors.New("cart is empty")
)

const (
	messageNotCompleted = "payment was not completed"
	messageTryAgain     = "something went wrong, try again"
)

// UserMessage turns a Run error into text safe to show the shopper.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrCancelled), errors.Is(err, ErrVerificationFailed), errors.Is(err, ErrExpired):
		return messageNotCompleted
	default:
		return messageTryAgain
	}
}

// StatusError is a non-2xx answer from the storefront backend.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("storefront api returned %d: %s", e.StatusCode, e.Message)
}
