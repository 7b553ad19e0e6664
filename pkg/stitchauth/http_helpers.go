package stitchauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/aussiebroadwan/stitch/pkg/idx"
	"github.com/aussiebroadwan/stitch/pkg/slogx"
)

// DoRequest performs an unauthenticated request. Non-2xx responses are
// returned as *ServiceError.
func (a *Auth) DoRequest(ctx context.Context, req Request) (*Response, error) {
	return a.doRequest(ctx, req, "")
}

// doRequest is a single round trip. bearer, when set, goes into the
// Authorization header.
func (a *Auth) doRequest(ctx context.Context, req Request, bearer string) (*Response, error) {
	body := req.Body
	contentType := ""
	if req.Document != nil {
		encoded, err := json.Marshal(req.Document)
		if err != nil {
			return nil, &RequestError{Code: RequestErrorEncoding, Err: err}
		}
		body = encoded
		contentType = "application/json"
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, a.cfg.BaseURL+req.Path, reader)
	if err != nil {
		return nil, &RequestError{Code: RequestErrorEncoding, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	reqID := idx.NewString()
	httpReq.Header.Set(slogx.RequestIDHeader, reqID)
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	start := a.cfg.Now()
	resp, err := a.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		a.cfg.Metrics.RecordRequest(req.Method, 0, a.cfg.Now().Sub(start))
		return nil, &RequestError{Code: RequestErrorTransport, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	a.cfg.Metrics.RecordRequest(req.Method, resp.StatusCode, a.cfg.Now().Sub(start))
	if err != nil {
		return nil, &RequestError{Code: RequestErrorTransport, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	a.log.Debug("stitch request",
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"req_id", reqID,
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseServiceError(resp.StatusCode, respBody)
	}

	return &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Body: respBody}, nil
}

// decodeJSON unmarshals a response body, reporting failures as decoding
// errors.
func decodeJSON[T any](body []byte) (T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return v, &RequestError{Code: RequestErrorDecoding, Err: err}
	}
	return v, nil
}
