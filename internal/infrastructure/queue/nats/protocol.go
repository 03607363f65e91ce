package nats

import (
	"errors"
	"fmt"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
)

const (
	errorKindInvalidInput = "invalid_input"
	errorKindUnavailable  = "unavailable"
	errorKindInternal     = "internal"
)

// SearchRequest is the JSON body of a search request message.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// SearchReply carries either an outcome or an error kind.
type SearchReply struct {
	Outcome *domain.SearchOutcome `json:"outcome,omitempty"`
	Error   string                `json:"error,omitempty"`
	Kind    string                `json:"kind,omitempty"`
}

func replyError(err error) SearchReply {
	kind := errorKindInternal
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		kind = errorKindInvalidInput
	case domain.IsKind(err, domain.ErrAdapterUnavailable), domain.IsKind(err, domain.ErrTemporary):
		kind = errorKindUnavailable
	}
	return SearchReply{Error: err.Error(), Kind: kind}
}

func (r SearchReply) err() error {
	if r.Error == "" && r.Kind == "" {
		return nil
	}
	cause := errors.New(r.Error)
	switch r.Kind {
	case errorKindInvalidInput:
		return domain.WrapError(domain.ErrInvalidInput, "remote search", cause)
	case errorKindUnavailable:
		return domain.WrapError(domain.ErrAdapterUnavailable, "remote search", cause)
	default:
		return fmt.Errorf("remote search: %w", cause)
	}
}
