package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/yungbote/scormbridge/internal/platform/apierr"
	"github.com/yungbote/scormbridge/internal/scorm/launch"
	"github.com/yungbote/scormbridge/internal/scorm/resource"
	"github.com/yungbote/scormbridge/internal/services"
)

// classify maps launch and session failures onto HTTP statuses.
func classify(err error) *apierr.Error {
	var (
		noEntry  *launch.NoEntryPointError
		fetchErr *resource.FetchError
	)
	switch {
	case errors.As(err, &noEntry):
		return apierr.New(http.StatusUnprocessableEntity, "no_entry_point", err)
	case errors.As(err, &fetchErr):
		return apierr.New(http.StatusBadGateway, "manifest_fetch_failed", err)
	case errors.Is(err, services.ErrMissingLearner):
		return apierr.New(http.StatusBadRequest, "missing_learner", err)
	case errors.Is(err, services.ErrRootNotAllowed):
		return apierr.New(http.StatusForbidden, "root_not_allowed", err)
	case errors.Is(err, services.ErrSessionNotFound):
		return apierr.New(http.StatusNotFound, "session_not_found", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apierr.New(http.StatusGatewayTimeout, "timeout", err)
	default:
		return apierr.New(http.StatusInternalServerError, "internal", err)
	}
}

var errMissingRoot = errors.New("root is required")
