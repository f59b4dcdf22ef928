package controller

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mosaic-network/walletx/pkg/metrics"
	"github.com/mosaic-network/walletx/pkg/store"
)

// awaitRequested reports whether the client asked to block until detection.
func awaitRequested(r *http.Request) bool {
	return r.URL.Query().Get("await") == "true"
}

// NullifierStatus reports whether a nullifier has been revealed on chain.
// With ?await=true the request blocks until the spend is detected.
func (c *Controller) NullifierStatus(w http.ResponseWriter, r *http.Request) {
	metrics.Default().RequestsTotal.WithLabelValues("nullifier_status").Inc()

	var nf store.Nullifier
	if err := nf.UnmarshalText([]byte(mux.Vars(r)["nullifier"])); err != nil {
		writeError(w, http.StatusBadRequest, "invalid nullifier")
		return
	}

	await := awaitRequested(r)
	if await {
		metrics.Default().DetectionWaits.Inc()
		defer metrics.Default().DetectionWaits.Dec()
	}

	spent, err := c.App.View.IsNullifierSpent(r.Context(), nf, await)
	if err != nil {
		c.respondViewError(w, "nullifier_status", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"nullifier": nf,
		"spent":     spent,
	})
}

// RecordByCommitment locates a note or swap by its creation commitment.
// With ?await=true the request blocks until the record is detected.
func (c *Controller) RecordByCommitment(w http.ResponseWriter, r *http.Request) {
	metrics.Default().RequestsTotal.WithLabelValues("record_by_commitment").Inc()

	var commitment store.Commitment
	if err := commitment.UnmarshalText([]byte(mux.Vars(r)["commitment"])); err != nil {
		writeError(w, http.StatusBadRequest, "invalid commitment")
		return
	}

	await := awaitRequested(r)
	if await {
		metrics.Default().DetectionWaits.Inc()
		defer metrics.Default().DetectionWaits.Dec()
	}

	record, err := c.App.View.RecordByCommitment(r.Context(), commitment, await)
	if err != nil {
		c.respondViewError(w, "record_by_commitment", err)
		return
	}

	resp := map[string]interface{}{"kind": record.Kind.String()}
	switch record.Kind {
	case store.KindNote:
		resp["note"] = record.Note
	case store.KindSwap:
		resp["swap"] = record.Swap
	}
	writeJSON(w, http.StatusOK, resp)
}
