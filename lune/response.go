package lune

import (
	"fmt"
)

// ErrorCode is a machine readable Lune API error code.
type ErrorCode string

// Lune API error codes as of 2024-05-23.
const (
	ErrAccountSuspended                  ErrorCode = "account_suspended"
	ErrBundleSelectionRatiosInvalid      ErrorCode = "bundle_selection_ratios_invalid"
	ErrBundleSelectionBundleInvalid      ErrorCode = "bundle_selection_bundle_invalid"
	ErrOrderIdempotencyAlreadyExists     ErrorCode = "order_idempotency_already_exists"
	ErrOrderQuantityInvalid              ErrorCode = "order_quantity_invalid"
	ErrOrderValueInvalid                 ErrorCode = "order_value_invalid"
	ErrBundleIDInvalid                   ErrorCode = "bundle_id_invalid"
	ErrIDInvalid                         ErrorCode = "id_invalid"
	ErrTestAccountNameUpdateDisallowed   ErrorCode = "test_account_name_update_disallowed"
	ErrValidationError                   ErrorCode = "validation_error"
	ErrBundleSelectionRatiosInvalidFmt   ErrorCode = "bundle_selection_ratios_invalid_format"
	ErrAddressNotFound                   ErrorCode = "address_not_found"
	ErrLiveAccountRequired               ErrorCode = "live_account_required"
	ErrUnauthorised                      ErrorCode = "unauthorised"
	ErrSustainabilityPageSlugNotUnique   ErrorCode = "sustainability_page_slug_not_unique"
	ErrSustainabilityPageExists          ErrorCode = "sustainability_page_exists"
	ErrPaginationLimitInvalid            ErrorCode = "pagination_limit_invalid"
	ErrUnsupportedImageFormat            ErrorCode = "unsupported_image_format"
	ErrAccountScopeIncorrect             ErrorCode = "account_scope_incorrect"
	ErrServiceUnavailable                ErrorCode = "service_unavailable"
	ErrEstimateIdempotencyAlreadyExists  ErrorCode = "estimate_idempotency_already_exists"
)

// APIError is a response with a non-2xx status code. ErrorCode and Message are
// filled in when the API returned a structured error body.
type APIError struct {
	Status    int
	ErrorCode ErrorCode
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status %v, error code '%v', message '%v', request id '%v'", e.Status, e.ErrorCode, e.Message, e.RequestID)
}

// ConnError means no response was received at all.
type ConnError struct {
	Cause error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("connection error (%v)", e.Cause)
}

func (e *ConnError) Unwrap() error {
	return e.Cause
}

// ContractError means the API returned something this client cannot account
// for - an unexpected redirect or a payload that fails shape validation.
// It indicates a bug on one side or the other and is not recoverable by retry.
type ContractError struct {
	Detail    string
	RequestID string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("API contract error: %v, request id '%v'", e.Detail, e.RequestID)
}

// Result is the three-way outcome of an API call: a decoded payload, an
// *APIError or a *ConnError. Shape violations surface as a *ContractError.
type Result[T any] struct {
	data      T
	requestID string
	err       error
}

func success[T any](data T, requestID string) Result[T] {
	return Result[T]{data: data, requestID: requestID}
}

func failure[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// Expect returns the payload, or the error in full when the call did not
// succeed. Use it whenever anything other than success should end the run.
func (r Result[T]) Expect() (T, error) {
	return r.data, r.err
}

// RequestID returns the request correlation id reported by the API, if any.
func (r Result[T]) RequestID() string {
	return r.requestID
}

// APIError returns the remote error variant, for the few call sites that
// treat specific API errors as expected conditions.
func (r Result[T]) APIError() (*APIError, bool) {
	if e, ok := r.err.(*APIError); ok {
		return e, true
	}

	return nil, false
}
