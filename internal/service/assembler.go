package service

import "github.com/parley-chat/parley/internal/models"

// Placeholder values applied when enrichment data is missing. Missing
// identities never abort a listing.
const (
	unknownUserName  = "Unknown"
	untitledRoomName = "Untitled"
)

// userView projects a resolved user into a response view, applying the
// display-name and email fallbacks.
func userView(u models.User) models.UserView {
	name := u.Name
	if name == "" {
		name = unknownUserName
	}
	return models.UserView{
		ID:           u.ID,
		Name:         name,
		Email:        u.Email,
		ProfileImage: u.ProfileImage,
	}
}

// assembleRoomView joins one room with the identity and count maps.
// Participants missing from users are dropped from the view; an absent
// creator yields a placeholder so the room still renders. No store
// calls, no re-sorting.
func assembleRoomView(room models.Room, actorEmail string, users map[string]models.User, counts map[string]int64) models.RoomView {
	name := room.Name
	if name == "" {
		name = untitledRoomName
	}

	view := models.RoomView{
		ID:                 room.ID,
		Name:               name,
		HasPassword:        room.HasPassword,
		CreatedAt:          room.CreatedAt,
		Participants:       make([]models.UserView, 0, len(room.ParticipantIDs)),
		RecentMessageCount: counts[room.ID],
	}

	if creator, ok := users[room.Creator]; ok {
		cv := userView(creator)
		view.Creator = &cv
		view.IsCreator = creator.Email != "" && creator.Email == actorEmail
	} else if room.Creator != "" {
		view.Creator = &models.UserView{ID: room.Creator, Name: unknownUserName}
	}

	for _, id := range room.ParticipantIDs {
		if u, ok := users[id]; ok {
			view.Participants = append(view.Participants, userView(u))
		}
	}

	return view
}

// assembleRoomViews maps a page of rooms, preserving the store's
// ordering.
func assembleRoomViews(rooms []models.Room, actorEmail string, users map[string]models.User, counts map[string]int64) []models.RoomView {
	views := make([]models.RoomView, 0, len(rooms))
	for _, room := range rooms {
		views = append(views, assembleRoomView(room, actorEmail, users, counts))
	}
	return views
}
