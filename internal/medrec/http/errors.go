package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/medrec/internal/medrec/domain"
	"github.com/aussiebroadwan/medrec/internal/medrec/service"
	"github.com/aussiebroadwan/medrec/internal/medrec/store"
	"github.com/aussiebroadwan/medrec/pkg/medrecsdk"
	"github.com/aussiebroadwan/medrec/pkg/slogx"
)

// writeServiceError maps a service error onto its wire form. Anything
// unrecognised is logged and reported as a plain server error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		medrecsdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrInactiveUser):
		medrecsdk.ErrInactiveUser.WriteError(w)
	case errors.Is(err, service.ErrEmailTaken):
		medrecsdk.ErrEmailTaken.WriteError(w)
	case errors.Is(err, service.ErrInvalidRequest):
		medrecsdk.ErrInvalidRequest.WithDescription(detail(err, service.ErrInvalidRequest)).WriteError(w)
	case errors.Is(err, domain.ErrInvalidPage):
		medrecsdk.ErrInvalidRequest.WithDescription(detail(err, domain.ErrInvalidPage)).WriteError(w)
	case errors.Is(err, service.ErrUnauthenticated):
		medrecsdk.ErrInvalidToken.WriteError(w)
	case errors.Is(err, service.ErrForbidden):
		medrecsdk.ErrForbidden.WriteError(w)
	case errors.Is(err, store.ErrNotFound):
		medrecsdk.ErrNotFound.WriteError(w)
	case errors.Is(err, service.ErrRateLimitExceeded):
		medrecsdk.ErrRateLimitExceeded.WriteError(w)
	case errors.Is(err, service.ErrCSRFRejected):
		medrecsdk.ErrCSRFRejected.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		medrecsdk.ErrServerError.WriteError(w)
	}
}

// rejectWith renders a middleware rejection through the same mapping as
// handler errors.
func rejectWith(err error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeServiceError(w, r, err)
	}
}

// detail strips the sentinel prefix from err, leaving the human part.
func detail(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error())
	msg = strings.TrimPrefix(msg, ": ")
	if msg == "" {
		return medrecsdk.ErrInvalidRequest.Description
	}
	return msg
}
