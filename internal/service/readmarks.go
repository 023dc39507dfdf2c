package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/parley-chat/parley/internal/metrics"
	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/store"
)

// ReadReceiptService applies bulk read-receipt updates. Read receipts
// are best-effort: a failed update is logged, never surfaced.
type ReadReceiptService struct {
	store store.DataStore
	log   zerolog.Logger

	now func() time.Time
}

// NewReadReceiptService wires a ReadReceiptService.
func NewReadReceiptService(st store.DataStore, logger zerolog.Logger) *ReadReceiptService {
	return &ReadReceiptService{
		store: st,
		log:   logger,
		now:   time.Now,
	}
}

// MarkMessagesRead records the user as a reader of every listed message
// in one multi-document update. Messages already read by this user are
// excluded by the store-level guard, so re-applying the same call is a
// no-op. An empty ID set issues no round trip at all.
func (s *ReadReceiptService) MarkMessagesRead(ctx context.Context, messageIDs []string, userID string) {
	if len(messageIDs) == 0 {
		return
	}

	reader := models.MessageReader{UserID: userID, ReadAt: s.now().UTC()}

	modified, err := s.store.MarkMessagesRead(ctx, messageIDs, reader)
	if err != nil {
		s.log.Error().Err(err).Str("user", userID).Int("messages", len(messageIDs)).Msg("read receipt update failed")
		return
	}

	metrics.ReadReceiptsApplied.Add(float64(modified))
	s.log.Debug().Str("user", userID).Int64("modified", modified).Int("requested", len(messageIDs)).Msg("read receipts applied")
}
