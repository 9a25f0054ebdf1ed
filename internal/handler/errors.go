package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"fileflow/internal/domain"
	"fileflow/internal/httputil"
)

// handleError converts domain errors to RFC 7807 responses. The stable error
// kind and, where present, the reason code travel as extension members.
func handleError(w http.ResponseWriter, logger *slog.Logger, err error) {
	kind := domain.Kind(err)
	extras := map[string]any{"kind": kind}
	if reason := domain.Reason(err); reason != "" {
		extras["reason"] = reason
	}

	var conflictErr *domain.ConflictError
	if errors.As(err, &conflictErr) && conflictErr.ResourceID != "" {
		extras["resource_type"] = conflictErr.ResourceType
		extras["resource_id"] = conflictErr.ResourceID
	}

	status := http.StatusInternalServerError
	detail := "internal server error"
	var httpErr domain.HTTPError
	switch {
	case errors.As(err, &httpErr):
		status = httpErr.StatusCode()
		detail = err.Error()
	case kind == domain.KindNotFound:
		status = http.StatusNotFound
		detail = err.Error()
	case kind == domain.KindDuplicateName:
		status = http.StatusConflict
		detail = err.Error()
	case kind == domain.KindValidation:
		status = http.StatusBadRequest
		detail = err.Error()
	case kind == domain.KindInvalidState:
		status = http.StatusUnprocessableEntity
		detail = err.Error()
	case kind == domain.KindUnauthorized:
		status = http.StatusUnauthorized
		detail = err.Error()
	case kind == domain.KindPermissionDenied:
		status = http.StatusForbidden
		detail = err.Error()
	case kind == domain.KindDependency:
		status = http.StatusBadGateway
		detail = "storage backend unavailable"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "kind", kind, "error", err)
		if status == http.StatusBadGateway {
			// Upstream messages can carry bucket names and keys.
			detail = "storage backend unavailable"
		}
	}

	httputil.RespondErrorWithExtras(w, status, detail, extras)
}

// badRequest writes a validation problem for malformed input
func badRequest(w http.ResponseWriter, detail string) {
	httputil.RespondErrorWithExtras(w, http.StatusBadRequest, detail, map[string]any{"kind": domain.KindValidation})
}
