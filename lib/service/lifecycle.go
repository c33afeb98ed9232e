package service

import (
	"slices"

	"github.com/link2pay/link2pay.go/common"
)

var transitions = map[string][]string{
	common.InvoiceStatusDraft: {
		common.InvoiceStatusPending,
		common.InvoiceStatusProcessing,
		common.InvoiceStatusPaid,
		common.InvoiceStatusCancelled,
		common.InvoiceStatusFailed,
		common.InvoiceStatusExpired,
	},
	common.InvoiceStatusPending: {
		common.InvoiceStatusProcessing,
		common.InvoiceStatusPaid,
		common.InvoiceStatusCancelled,
		common.InvoiceStatusFailed,
		common.InvoiceStatusExpired,
	},
	common.InvoiceStatusProcessing: {
		common.InvoiceStatusPending,
		common.InvoiceStatusPaid,
		common.InvoiceStatusFailed,
		common.InvoiceStatusExpired,
	},
}

// CanTransition reports whether an invoice may move from one status to another.
// Terminal statuses have no outgoing edges.
func CanTransition(from, to string) bool {
	return slices.Contains(transitions[from], to)
}

func IsTerminal(status string) bool {
	_, ok := transitions[status]
	return !ok
}

// SourcesOf lists the statuses that may transition to `to`, restricted to allowed
// when it is not empty.
func SourcesOf(to string, allowed ...string) []string {
	result := []string{}
	for from := range transitions {
		if !CanTransition(from, to) {
			continue
		}
		if len(allowed) > 0 && !slices.Contains(allowed, from) {
			continue
		}
		result = append(result, from)
	}
	return result
}

// AwaitingSettlement are the statuses the watcher scans.
var AwaitingSettlement = []string{common.InvoiceStatusPending, common.InvoiceStatusProcessing}
