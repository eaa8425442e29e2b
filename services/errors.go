package services

import "fmt"

// Machine-readable error codes surfaced to API clients. Each user-visible
// failure maps 1:1 onto one of these; only unexpected storage or network
// faults fall back to SERVICE_UNAVAILABLE.
const (
	CodeEmptyCart          = "EMPTY_CART"
	CodeProductUnavailable = "PRODUCT_UNAVAILABLE"
	CodeCouponNotFound     = "COUPON_NOT_FOUND"
	CodeCouponExpired      = "COUPON_EXPIRED"
	CodeCouponLimitReached = "COUPON_LIMIT_REACHED"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeOrderNotFound      = "ORDER_NOT_FOUND"
	CodeOrderStateConflict = "ORDER_STATE_CONFLICT"
	CodeGatewayError       = "GATEWAY_ERROR"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
)

// ServiceError is a typed error carrying an HTTP status and a stable code.
type ServiceError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func unavailable(err error) *ServiceError {
	return &ServiceError{StatusCode: 503, Code: CodeUnavailable, Message: "Service temporarily unavailable", Err: err}
}
