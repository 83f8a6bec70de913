// Package usage records per-tenant token consumption for billing.
// Recording is best effort; a failed write never fails the request
// that produced the tokens.
package usage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tidybook/tidybook/internal/llm"
	"github.com/tidybook/tidybook/internal/logging"
	"github.com/tidybook/tidybook/internal/store"
)

// Recorder accepts usage reports. Implementations must not block the
// caller on failure; errors are logged, not returned.
type Recorder interface {
	Record(ctx context.Context, tenantID string, usage llm.Usage, model string)
}

// SQLiteRecorder persists usage rows keyed by tenant and billing
// period (calendar month, UTC).
type SQLiteRecorder struct {
	db  *store.DB
	log *logging.Logger
	now func() time.Time
}

// NewSQLiteRecorder creates a recorder backed by db.
func NewSQLiteRecorder(db *store.DB, log *logging.Logger) *SQLiteRecorder {
	return &SQLiteRecorder{db: db, log: log.Sub("usage"), now: time.Now}
}

// Record inserts one usage row. Zero-token reports are dropped.
func (r *SQLiteRecorder) Record(ctx context.Context, tenantID string, usage llm.Usage, model string) {
	if usage.TotalTokens == 0 {
		return
	}
	period := r.now().UTC().Format("2006-01")
	_, err := r.db.SQL().ExecContext(ctx,
		`INSERT INTO usage_records (id, tenant_id, model, prompt_tokens, completion_tokens, total_tokens, billing_period)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), tenantID, model,
		usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens, period,
	)
	if err != nil {
		r.log.Error().Err(err).Str("tenant_id", tenantID).Msg("recording usage failed")
		return
	}
	r.log.Debug().
		Str("tenant_id", tenantID).
		Str("model", model).
		Int("total_tokens", usage.TotalTokens).
		Msg("usage recorded")
}
