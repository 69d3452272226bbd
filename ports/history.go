package ports

import (
	"context"

	"enemtri/domain/exam"
)

// HistorySource loads the user's personal exam record. A missing source is
// reported through the boolean: the caller proceeds population-only.
type HistorySource interface {
	Load(ctx context.Context) (*exam.History, bool, error)
}
