package models

import "time"

// PageRequest carries raw pagination and sort parameters for a room
// listing. Values are normalized by the service layer before use; a
// PageRequest itself is never rejected.
type PageRequest struct {
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
	SortField string `json:"sort_field"`
	SortOrder string `json:"sort_order"`
	Search    string `json:"search,omitempty"`
}

// SortInfo is the sort actually applied to a listing.
type SortInfo struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

// PageMetadata describes the page of results returned by a listing.
type PageMetadata struct {
	Total        int64    `json:"total"`
	Page         int      `json:"page"`
	PageSize     int      `json:"page_size"`
	TotalPages   int64    `json:"total_pages"`
	HasMore      bool     `json:"has_more"`
	CurrentCount int      `json:"current_count"`
	Sort         SortInfo `json:"sort"`
}

// UserView is a user projected into a listing response.
type UserView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// RoomView is a room enriched with resolved identities and the
// trailing-window message count. Derived per call, never persisted.
type RoomView struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	HasPassword        bool       `json:"has_password"`
	Creator            *UserView  `json:"creator,omitempty"`
	Participants       []UserView `json:"participants"`
	CreatedAt          time.Time  `json:"created_at"`
	IsCreator          bool       `json:"is_creator"`
	RecentMessageCount int64      `json:"recent_message_count"`
}

// RoomList is the result of a room listing call.
type RoomList struct {
	Rooms []RoomView   `json:"data"`
	Meta  PageMetadata `json:"metadata"`
}
