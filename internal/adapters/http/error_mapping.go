package httpadapter

import (
	"net/http"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary),
		domain.IsKind(err, domain.ErrAdapterUnavailable),
		domain.IsKind(err, domain.ErrConnectionClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
