package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReplacementOutcome string

const (
	OutcomeReplaced     ReplacementOutcome = "replaced"
	OutcomeRejected     ReplacementOutcome = "rejected"
	OutcomeCancelFailed ReplacementOutcome = "cancel_failed"
	// OutcomeRestored: create failed after cancel, the original order was placed again.
	OutcomeRestored ReplacementOutcome = "restored"
	// OutcomeUnprotected: create and restore both failed, no stop order is resting.
	OutcomeUnprotected ReplacementOutcome = "unprotected"
)

// ReplacementRecord is the journal entry written for every replacement attempt.
type ReplacementRecord struct {
	ID         string             `json:"id"`
	Symbol     string             `json:"symbol"`
	TickPrice  decimal.Decimal    `json:"tick_price"`
	OldOrderID int64              `json:"old_order_id"`
	NewOrderID int64              `json:"new_order_id,omitempty"`
	OldStop    decimal.Decimal    `json:"old_stop"`
	OldLimit   decimal.Decimal    `json:"old_limit"`
	NewStop    decimal.Decimal    `json:"new_stop"`
	NewLimit   decimal.Decimal    `json:"new_limit"`
	Quantity   decimal.Decimal    `json:"quantity"`
	Outcome    ReplacementOutcome `json:"outcome"`
	Error      string             `json:"error,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}
