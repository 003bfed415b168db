package repository

import (
	"context"

	"github.com/kardan-dev/kardan-api/internal/models"
)

// LeadLogDataSource defines the interface for the append-only lead log
type LeadLogDataSource interface {
	// Append writes one validated lead
	Append(ctx context.Context, record models.LeadRecord) error

	// AppendRow writes a raw row whose first cell may carry a timestamp
	AppendRow(ctx context.Context, values []string) error
}
