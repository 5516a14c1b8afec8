package payouts

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/handova/handova-backend/pkg/db/models"
	"github.com/handova/handova-backend/pkg/enums"
)

// BatchResult aggregates one ProcessDuePayouts run. Individual entry
// failures are recorded here, never raised.
type BatchResult struct {
	SuccessCount int      `json:"success_count"`
	FailureCount int      `json:"failure_count"`
	SkippedCount int      `json:"skipped_count"`
	Errors       []string `json:"errors,omitempty"`
}

// PayoutList wraps a page of queue entries plus the next page cursor.
type PayoutList struct {
	Payouts    []models.PayoutQueueEntry `json:"payouts"`
	NextCursor string                    `json:"next_cursor,omitempty"`
}

// StatusAggregate is one row of the per-status queue rollup.
type StatusAggregate struct {
	Status enums.PayoutStatus `json:"status"`
	Count  int64              `json:"count"`
	Total  decimal.Decimal    `json:"total"`
}

// Stats is the admin-facing queue summary.
type Stats struct {
	TotalPending                int64           `json:"total_pending"`
	TotalProcessed              int64           `json:"total_processed"`
	TotalFailed                 int64           `json:"total_failed"`
	TotalPendingAmount          decimal.Decimal `json:"total_pending_amount"`
	TotalProcessedAmount        decimal.Decimal `json:"total_processed_amount"`
	NextScheduledDate           time.Time       `json:"next_scheduled_date"`
	PayoutsScheduledForNextDate int64           `json:"payouts_scheduled_for_next_date"`
}
