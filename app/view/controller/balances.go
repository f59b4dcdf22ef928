package controller

import (
	"net/http"
	"strconv"

	"github.com/mosaic-network/walletx/pkg/asset"
	"github.com/mosaic-network/walletx/pkg/metrics"
	"github.com/mosaic-network/walletx/pkg/view"
)

// Balances serves the aggregated balance view. Optional query parameters
// "account" and "asset" narrow the response without changing what was
// aggregated.
func (c *Controller) Balances(w http.ResponseWriter, r *http.Request) {
	metrics.Default().RequestsTotal.WithLabelValues("balances").Inc()

	var req view.BalancesRequest

	if v := r.URL.Query().Get("account"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid account index")
			return
		}
		account := uint32(n)
		req.AccountFilter = &account
	}

	if v := r.URL.Query().Get("asset"); v != "" {
		var id asset.ID
		if err := id.UnmarshalText([]byte(v)); err != nil {
			writeError(w, http.StatusBadRequest, "invalid asset id")
			return
		}
		req.AssetFilter = &id
	}

	balances, err := c.App.View.AggregateBalances(r.Context(), req)
	if err != nil {
		c.respondViewError(w, "balances", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"balances": balances,
	})
}
