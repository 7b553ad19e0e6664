package stitchauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/stitch/pkg/httpx"
)

// ============================================================================
// Client Errors
// ============================================================================

// Client errors are local precondition failures. They are never retried.
var (
	ErrMustAuthenticateFirst         = errors.New("stitchauth: must authenticate first")
	ErrUserNoLongerValid             = errors.New("stitchauth: user is no longer the active user")
	ErrUserNotFound                  = errors.New("stitchauth: user not found")
	ErrUserNotLoggedIn               = errors.New("stitchauth: cannot switch to a logged out user")
	ErrCouldNotLoadPersistedAuthInfo = errors.New("stitchauth: could not load persisted auth info")
	ErrCouldNotPersistAuthInfo       = errors.New("stitchauth: could not persist auth info")
	ErrLoggedOutDuringRequest        = errors.New("stitchauth: logged out while a request was in flight")
)

// ============================================================================
// Request Errors
// ============================================================================

// RequestErrorCode says which step of a request failed.
type RequestErrorCode string

const (
	// RequestErrorTransport is a failure to reach the server.
	RequestErrorTransport RequestErrorCode = "transport"
	// RequestErrorDecoding is a reply that could not be parsed.
	RequestErrorDecoding RequestErrorCode = "decoding"
	// RequestErrorEncoding is a request document that could not be encoded.
	RequestErrorEncoding RequestErrorCode = "encoding"
)

// RequestError is a failure to send a request or to make sense of a reply.
type RequestError struct {
	Code RequestErrorCode
	Err  error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("stitchauth: %s error: %v", e.Code, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// ============================================================================
// Service Errors
// ============================================================================

// ServiceErrorCode is the error_code a Stitch server answers with.
type ServiceErrorCode string

// Service error codes. ErrorCodeUnknown stands in for any code this package
// does not recognise.
const (
	ErrorCodeMissingAuthReq             ServiceErrorCode = "MissingAuthReq"
	ErrorCodeInvalidSession             ServiceErrorCode = "InvalidSession"
	ErrorCodeUserAppDomainMismatch      ServiceErrorCode = "UserAppDomainMismatch"
	ErrorCodeDomainNotAllowed           ServiceErrorCode = "DomainNotAllowed"
	ErrorCodeReadSizeLimitExceeded      ServiceErrorCode = "ReadSizeLimitExceeded"
	ErrorCodeInvalidParameter           ServiceErrorCode = "InvalidParameter"
	ErrorCodeMissingParameter           ServiceErrorCode = "MissingParameter"
	ErrorCodeArgumentsNotAllowed        ServiceErrorCode = "ArgumentsNotAllowed"
	ErrorCodeFunctionExecutionError     ServiceErrorCode = "FunctionExecutionError"
	ErrorCodeFunctionNotFound           ServiceErrorCode = "FunctionNotFound"
	ErrorCodeExecutionTimeLimitExceeded ServiceErrorCode = "ExecutionTimeLimitExceeded"
	ErrorCodeNotCallable                ServiceErrorCode = "NotCallable"
	ErrorCodeInternalServerError        ServiceErrorCode = "InternalServerError"
	ErrorCodeAuthProviderNotFound       ServiceErrorCode = "AuthProviderNotFound"
	ErrorCodeAPIKeyNotFound             ServiceErrorCode = "APIKeyNotFound"
	ErrorCodeAPIKeyAlreadyExists        ServiceErrorCode = "APIKeyAlreadyExists"
	ErrorCodeInvalidPassword            ServiceErrorCode = "InvalidPassword"
	ErrorCodeAccountNameInUse           ServiceErrorCode = "AccountNameInUse"
	ErrorCodeUserNotFound               ServiceErrorCode = "UserNotFound"
	ErrorCodeUserDisabled               ServiceErrorCode = "UserDisabled"
	ErrorCodeRateLimitExceeded          ServiceErrorCode = "RateLimitExceeded"
	ErrorCodeUnknown                    ServiceErrorCode = "Unknown"
)

var knownServiceErrorCodes = map[ServiceErrorCode]struct{}{
	ErrorCodeMissingAuthReq:             {},
	ErrorCodeInvalidSession:             {},
	ErrorCodeUserAppDomainMismatch:      {},
	ErrorCodeDomainNotAllowed:           {},
	ErrorCodeReadSizeLimitExceeded:      {},
	ErrorCodeInvalidParameter:           {},
	ErrorCodeMissingParameter:           {},
	ErrorCodeArgumentsNotAllowed:        {},
	ErrorCodeFunctionExecutionError:     {},
	ErrorCodeFunctionNotFound:           {},
	ErrorCodeExecutionTimeLimitExceeded: {},
	ErrorCodeNotCallable:                {},
	ErrorCodeInternalServerError:        {},
	ErrorCodeAuthProviderNotFound:       {},
	ErrorCodeAPIKeyNotFound:             {},
	ErrorCodeAPIKeyAlreadyExists:        {},
	ErrorCodeInvalidPassword:            {},
	ErrorCodeAccountNameInUse:           {},
	ErrorCodeUserNotFound:               {},
	ErrorCodeUserDisabled:               {},
	ErrorCodeRateLimitExceeded:          {},
}

// ParseServiceErrorCode maps unrecognised codes to ErrorCodeUnknown.
func ParseServiceErrorCode(code string) ServiceErrorCode {
	c := ServiceErrorCode(code)
	if _, ok := knownServiceErrorCodes[c]; ok {
		return c
	}
	return ErrorCodeUnknown
}

// ServiceError is a structured error returned by the server. It is used on
// both sides: the client parses it and the dev backend writes it.
type ServiceError struct {
	StatusCode int
	Code       ServiceErrorCode
	Message    string
}

// NewServiceError builds the error the dev backend answers with.
func NewServiceError(statusCode int, code ServiceErrorCode, message string) *ServiceError {
	return &ServiceError{StatusCode: statusCode, Code: code, Message: message}
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("stitchauth: service error %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// WriteError writes e as the {error, error_code} envelope.
func (e *ServiceError) WriteError(w http.ResponseWriter) {
	httpx.WriteError(w, e.StatusCode, string(e.Code), e.Message)
}

// IsServiceError reports whether err is a ServiceError carrying code.
func IsServiceError(err error, code ServiceErrorCode) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Code == code
}

// parseServiceError turns a non-2xx response into a ServiceError. Bodies that
// are not the JSON envelope still produce an Unknown error carrying the text.
func parseServiceError(statusCode int, body []byte) *ServiceError {
	var envelope httpx.ErrorBody
	if err := json.Unmarshal(body, &envelope); err == nil && (envelope.Error != "" || envelope.ErrorCode != "") {
		return &ServiceError{
			StatusCode: statusCode,
			Code:       ParseServiceErrorCode(envelope.ErrorCode),
			Message:    envelope.Error,
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	return &ServiceError{StatusCode: statusCode, Code: ErrorCodeUnknown, Message: msg}
}
