package x402

import (
	"errors"
	"fmt"
)

// PaymentError represents a payment-specific error
type PaymentError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common error codes
const (
	ErrCodeNetwork            = "network_error"
	ErrCodeUnexpectedStatus   = "unexpected_status"
	ErrCodeSignerUnavailable  = "signer_unavailable"
	ErrCodeSignerRejected     = "signer_rejected"
	ErrCodePaymentRejected    = "payment_rejected"
	ErrCodeMalformedChallenge = "malformed_challenge"
	ErrCodeUnsupportedNetwork = "unsupported_network"
)

// NewPaymentError creates a new payment error
func NewPaymentError(code, message string, details map[string]interface{}) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// AsPaymentError unwraps err into a *PaymentError if possible.
func AsPaymentError(err error) (*PaymentError, bool) {
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsCode reports whether err is a *PaymentError with the given code.
func IsCode(err error, code string) bool {
	pe, ok := AsPaymentError(err)
	return ok && pe.Code == code
}
