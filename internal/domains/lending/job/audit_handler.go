package job

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"library-backend/internal/domains/lending/model"
	"library-backend/internal/domains/lending/service"
	"library-backend/internal/shared"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const defaultAuditLimit = 100

// AuditHandler reports open stock discrepancies so operators notice them.
type AuditHandler struct {
	discrepancies service.DiscrepancyServiceInterface
}

func NewAuditHandler(discrepancies service.DiscrepancyServiceInterface) *AuditHandler {
	return &AuditHandler{discrepancies: discrepancies}
}

func (h *AuditHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload shared.AuditDiscrepanciesPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		log.Error().Err(err).Msg("failed to unmarshal AuditDiscrepancies payload")
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}
	if payload.Limit <= 0 {
		payload.Limit = defaultAuditLimit
	}

	open, err := h.discrepancies.List(ctx, model.ListFilter{OnlyOpen: true, Limit: payload.Limit})
	if err != nil {
		return fmt.Errorf("list open discrepancies: %w", err)
	}

	if len(open) == 0 {
		log.Info().Msg("stock audit: no open discrepancies")
		return nil
	}

	for _, d := range open {
		log.Warn().
			Str("discrepancy_id", d.ID.String()).
			Str("book_id", d.BookID.String()).
			Str("user_id", d.UserID.String()).
			Str("kind", string(d.Kind)).
			Int("delta", d.Delta).
			Time("created_at", d.CreatedAt).
			Msg("stock audit: open discrepancy")
	}

	log.Warn().Int("count", len(open)).Msg("stock audit: discrepancies awaiting reconciliation")
	return nil
}
