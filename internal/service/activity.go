package service

import (
	"context"

	"github.com/parley-chat/parley/internal/metrics"
	"github.com/parley-chat/parley/internal/models"
)

// roomIDs extracts the page's room identifiers in order.
func roomIDs(rooms []models.Room) []string {
	ids := make([]string, 0, len(rooms))
	for _, room := range rooms {
		ids = append(ids, room.ID)
	}
	return ids
}

// recentCounts computes the trailing-window message count per room with
// one grouped aggregation. Rooms with no qualifying messages are absent
// from the map and default to 0 at assembly. A failed aggregation
// degrades to an empty map.
func (s *RoomService) recentCounts(ctx context.Context, ids []string) map[string]int64 {
	if len(ids) == 0 {
		return map[string]int64{}
	}

	since := s.now().Add(-s.window)
	counts, err := s.store.CountRecentMessages(ctx, ids, since)
	if err != nil {
		metrics.DegradedBulkLookups.WithLabelValues("message_counts").Inc()
		s.log.Error().Err(err).Int("rooms", len(ids)).Msg("recent message count failed, degrading to zero counts")
		return map[string]int64{}
	}

	s.log.Debug().Int("rooms", len(ids)).Int("counted", len(counts)).Msg("recent message counts")
	return counts
}
