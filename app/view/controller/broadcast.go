package controller

import (
	"encoding/json"
	"net/http"

	"github.com/mosaic-network/walletx/pkg/metrics"
)

// broadcastRequest carries the transaction's exact binary encoding, base64
// under JSON, plus whether to block until local detection.
type broadcastRequest struct {
	Raw            []byte `json:"raw"`
	AwaitDetection bool   `json:"awaitDetection"`
}

// Broadcast submits a transaction to the network, optionally waiting until
// the local store detects it.
func (c *Controller) Broadcast(w http.ResponseWriter, r *http.Request) {
	metrics.Default().RequestsTotal.WithLabelValues("broadcast").Inc()

	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.AwaitDetection {
		metrics.Default().DetectionWaits.Inc()
		defer metrics.Default().DetectionWaits.Dec()
	}

	result, err := c.App.View.BroadcastAndMaybeConfirm(r.Context(), req.Raw, req.AwaitDetection)
	if err != nil {
		c.respondViewError(w, "broadcast", err)
		return
	}

	metrics.Default().Broadcasts.Inc()
	writeJSON(w, http.StatusOK, result)
}
