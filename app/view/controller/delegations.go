package controller

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mosaic-network/walletx/pkg/metrics"
	"github.com/mosaic-network/walletx/pkg/utils"
	"github.com/mosaic-network/walletx/pkg/view"
)

// defaultUnbondingDelay is the chain's unbonding period in blocks, taken
// from the environment since the wallet does not track chain params.
func (c *Controller) defaultUnbondingDelay() uint64 {
	return utils.EnvUint64("UNBONDING_DELAY", 100)
}

func accountVar(r *http.Request) (uint32, bool) {
	n, err := strconv.ParseUint(mux.Vars(r)["account"], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

// Delegations serves the account's delegation positions joined against the
// validator set. ?filter=active narrows to nonzero positions with active
// validators; the default lists every validator.
func (c *Controller) Delegations(w http.ResponseWriter, r *http.Request) {
	metrics.Default().RequestsTotal.WithLabelValues("delegations").Inc()

	account, ok := accountVar(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account index")
		return
	}

	filter := view.DelegationFilterAll
	switch r.URL.Query().Get("filter") {
	case "", "all":
	case "active":
		filter = view.DelegationFilterActiveNonzero
	default:
		writeError(w, http.StatusBadRequest, "invalid filter, must be 'all' or 'active'")
		return
	}

	views, err := c.App.View.DelegationBalancesForAccount(r.Context(), account, filter)
	if err != nil {
		c.respondViewError(w, "delegations", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"delegations": views,
	})
}

// Unbonding serves the account's unbonding positions partitioned by
// claimability. ?delay overrides the chain's default unbonding delay;
// ?filter selects one claimability class.
func (c *Controller) Unbonding(w http.ResponseWriter, r *http.Request) {
	metrics.Default().RequestsTotal.WithLabelValues("unbonding").Inc()

	account, ok := accountVar(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account index")
		return
	}

	delay := c.defaultUnbondingDelay()
	if v := r.URL.Query().Get("delay"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid delay")
			return
		}
		delay = n
	}

	filter, err := view.ParseUnbondingFilter(r.URL.Query().Get("filter"))
	if err != nil {
		c.respondViewError(w, "unbonding", err)
		return
	}

	unbonding, err := c.App.View.UnbondingBalancesForAccount(r.Context(), account, delay)
	if err != nil {
		c.respondViewError(w, "unbonding", err)
		return
	}

	writeJSON(w, http.StatusOK, unbonding.Apply(filter))
}
