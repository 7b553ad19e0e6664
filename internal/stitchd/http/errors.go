package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/aussiebroadwan/stitch/internal/stitchd/service"
	"github.com/aussiebroadwan/stitch/pkg/slogx"
	"github.com/aussiebroadwan/stitch/pkg/stitchauth"
)

var errorStatus = []struct {
	err    error
	status int
	code   stitchauth.ServiceErrorCode
}{
	{service.ErrInvalidSession, http.StatusUnauthorized, stitchauth.ErrorCodeInvalidSession},
	{service.ErrProviderNotFound, http.StatusNotFound, stitchauth.ErrorCodeAuthProviderNotFound},
	{service.ErrInvalidPassword, http.StatusUnauthorized, stitchauth.ErrorCodeInvalidPassword},
	{service.ErrAccountNameInUse, http.StatusConflict, stitchauth.ErrorCodeAccountNameInUse},
	{service.ErrIdentityLinked, http.StatusConflict, stitchauth.ErrorCodeInvalidParameter},
	{service.ErrInvalidParameter, http.StatusBadRequest, stitchauth.ErrorCodeInvalidParameter},
	{service.ErrMissingParameter, http.StatusBadRequest, stitchauth.ErrorCodeMissingParameter},
	{service.ErrUserNotFound, http.StatusNotFound, stitchauth.ErrorCodeUserNotFound},
	{service.ErrAPIKeyNotFound, http.StatusNotFound, stitchauth.ErrorCodeAPIKeyNotFound},
	{service.ErrAPIKeyAlreadyExists, http.StatusConflict, stitchauth.ErrorCodeAPIKeyAlreadyExists},
	{service.ErrFunctionNotFound, http.StatusNotFound, stitchauth.ErrorCodeFunctionNotFound},
	{service.ErrFunctionExecution, http.StatusBadRequest, stitchauth.ErrorCodeFunctionExecutionError},
	{service.ErrArgumentsNotAllowed, http.StatusBadRequest, stitchauth.ErrorCodeArgumentsNotAllowed},
}

// writeError answers with the Stitch error envelope for err. Unexpected errors
// are logged and hidden behind InternalServerError.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			stitchauth.NewServiceError(e.status, e.code, err.Error()).WriteError(w)
			return
		}
	}

	slogx.FromContext(r.Context()).Error("request failed", "error", err)
	stitchauth.NewServiceError(http.StatusInternalServerError,
		stitchauth.ErrorCodeInternalServerError, "internal server error").WriteError(w)
}

// decodeBody reads a JSON request body into v. An empty body leaves v alone.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return stitchauth.NewServiceError(http.StatusBadRequest, stitchauth.ErrorCodeInvalidParameter,
		"request body must be a JSON object")
}

// writeDecodeError writes the error from decodeBody.
func writeDecodeError(w http.ResponseWriter, err error) {
	var se *stitchauth.ServiceError
	if errors.As(err, &se) {
		se.WriteError(w)
		return
	}
	stitchauth.NewServiceError(http.StatusBadRequest, stitchauth.ErrorCodeInvalidParameter, err.Error()).WriteError(w)
}
