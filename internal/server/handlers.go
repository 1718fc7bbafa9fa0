package server

import (
	"encoding/json"
	"errors"
	"net/http"
)

const (
	kindInvalidReference = "InvalidReference"
	kindNotFound         = "NotFound"
	kindInvalidToken     = "InvalidToken"
	kindInternal         = "Internal"
)

// ErrorResponse is the JSON body for every non-2xx response, matching
// spec.md §6's {"error": <kind>, "message": <string>} shape.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("write json response", "status", status, "error", err)
	}
}

type apiError struct {
	status  int
	kind    string
	errCode int
	err     error
}

func (e apiError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e apiError) Unwrap() error {
	return e.err
}

func makeAPIError(status int, kind string, errCode int, err error) error {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	var existing apiError
	if errors.As(err, &existing) && existing.status != 0 {
		return existing
	}
	return apiError{status: status, kind: kind, errCode: errCode, err: err}
}

// writeErrorReq takes the kind and numeric code from an apiError wrapped
// in err (falling back to defaults keyed off status) and writes the
// status, kind, and message, logging at a severity keyed off status.
func (s *Server) writeErrorReq(w http.ResponseWriter, r *http.Request, status int, err error) {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}

	kind := errorKind(status, err)
	numericCode := errorNumericCode(status, err)
	message := err.Error()

	fields := []any{"status", status, "kind", kind, "error_code", numericCode, "error", err}
	if r != nil {
		fields = append(fields, "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
	}

	switch {
	case status >= 500:
		s.log().Error("request error", fields...)
		message = "internal error"
	case status == http.StatusUnauthorized:
		s.log().Warn("request rejected", fields...)
	default:
		s.log().Debug("request rejected", fields...)
	}

	s.writeJSON(w, status, ErrorResponse{Error: kind, Message: message})
}

func errorKind(status int, err error) string {
	var apiErr apiError
	if errors.As(err, &apiErr) && apiErr.kind != "" {
		return apiErr.kind
	}
	switch status {
	case http.StatusBadRequest:
		return kindInvalidReference
	case http.StatusUnauthorized:
		return kindInvalidToken
	case http.StatusNotFound:
		return kindNotFound
	default:
		return kindInternal
	}
}

func errorNumericCode(status int, err error) int {
	var apiErr apiError
	if errors.As(err, &apiErr) && apiErr.errCode > 0 {
		return apiErr.errCode
	}
	return defaultErrorCodeByStatus(status)
}
