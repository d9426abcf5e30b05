package httpadapter

import (
	"net/http"

	"github.com/dkotenko/resume-insight/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrResumeNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		// MalformedDocument, IndexUnavailable, SummarizationFailed and
		// anything unanticipated surface as a plain internal failure on
		// the synchronous path.
		return http.StatusInternalServerError
	}
}
