package services

import "errors"

type ErrorCode string

const (
	ErrorInvalid    ErrorCode = "invalid"
	ErrorNotFound   ErrorCode = "not_found"
	ErrorBadGateway ErrorCode = "bad_gateway"
	ErrorInternal   ErrorCode = "internal"
)

// ServiceError carries a code the HTTP layer maps to a status. Err, when set,
// is the underlying cause and stays reachable through errors.As/Is.
type ServiceError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error { return e.Err }

func NewInvalidError(msg string) error  { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewNotFoundError(msg string) error { return &ServiceError{Code: ErrorNotFound, Message: msg} }

func NewBadGatewayError(msg string, cause error) error {
	return &ServiceError{Code: ErrorBadGateway, Message: msg, Err: cause}
}

func NewInternalError(msg string, cause error) error {
	return &ServiceError{Code: ErrorInternal, Message: msg, Err: cause}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// ErrNotFound is returned by an AnswerStore when no submission exists for the id.
var ErrNotFound = errors.New("submission not found")
