package services

import "github.com/prometheus/client_golang/prometheus"

// Purchase outcome labels.
const (
	outcomeCommitted      = "committed"
	outcomeReplayed       = "replayed"
	outcomeValidation     = "validation_error"
	outcomeNotFound       = "not_found"
	outcomeInsufficient   = "insufficient_stock"
	outcomeConflictNoRec  = "conflict_without_record"
	outcomeInternalFailed = "internal_error"
)

// purchaseOutcomes counts every Purchase call by its terminal outcome.
var purchaseOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ledger_purchase_outcomes_total",
		Help: "Purchase requests by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(purchaseOutcomes)
}
