package http

import (
	"net/http"

	"github.com/aussiebroadwan/stitch/internal/stitchd/service"
	"github.com/aussiebroadwan/stitch/pkg/httpx"
)

// FunctionsHandler runs a server function as the caller.
type FunctionsHandler struct {
	Functions *service.FunctionService
}

type callFunctionRequest struct {
	Name      string `json:"name"`
	Arguments []any  `json:"arguments"`
}

func (h *FunctionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	var req callFunctionRequest
	if err := decodeBody(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	out, err := h.Functions.Call(r.Context(), service.FunctionCall{
		UserID: userID,
		Name:   req.Name,
		Args:   req.Arguments,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
