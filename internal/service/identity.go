package service

import (
	"context"

	"github.com/parley-chat/parley/internal/metrics"
	"github.com/parley-chat/parley/internal/models"
)

// collectUserIDs unions every creator and participant ID across a page
// of rooms into a deduplicated slice. The same user commonly appears as
// creator in one room and participant in another.
func collectUserIDs(rooms []models.Room) []string {
	seen := make(map[string]bool)
	ids := make([]string, 0, len(rooms)*2)
	for _, room := range rooms {
		if room.Creator != "" && !seen[room.Creator] {
			seen[room.Creator] = true
			ids = append(ids, room.Creator)
		}
		for _, id := range room.ParticipantIDs {
			if id != "" && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// userMap resolves ids with at most one store round trip. A failed
// lookup degrades to an empty map; the listing proceeds with
// placeholder identities rather than failing.
func (s *RoomService) userMap(ctx context.Context, ids []string) map[string]models.User {
	if len(ids) == 0 {
		return map[string]models.User{}
	}

	users, err := s.store.FindUsersByIDs(ctx, ids)
	if err != nil {
		metrics.DegradedBulkLookups.WithLabelValues("users").Inc()
		s.log.Error().Err(err).Int("requested", len(ids)).Msg("bulk user lookup failed, degrading to empty identities")
		return map[string]models.User{}
	}

	s.log.Debug().Int("requested", len(ids)).Int("resolved", len(users)).Msg("bulk user lookup")
	return users
}
