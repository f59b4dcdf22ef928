package controller

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mosaic-network/walletx/pkg/metrics"
	"github.com/mosaic-network/walletx/pkg/view"
)

// respondViewError maps view-layer errors onto HTTP statuses and counts the
// failure.
func (c *Controller) respondViewError(w http.ResponseWriter, operation string, err error) {
	metrics.Default().RequestErrors.WithLabelValues(operation).Inc()

	switch {
	case errors.Is(err, view.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, view.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, view.ErrFailedPrecondition):
		writeError(w, http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, view.ErrIdentityDisagreement):
		c.App.Logger.Error("Broadcast identity disagreement", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, view.ErrSubscriptionEnded):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		c.App.Logger.Error("Request failed", zap.String("operation", operation), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
