package service

import (
	"strings"

	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/store"
)

const (
	defaultSortField = store.SortByCreatedAt
	defaultSortOrder = "desc"
	defaultPageSize  = 20
	maxPageSize      = 100
	// maxPage keeps page*pageSize comfortably inside int range for the
	// stores' skip/offset arithmetic.
	maxPage = 1_000_000
)

var allowedSortFields = map[string]bool{
	store.SortByName:              true,
	store.SortByCreatedAt:         true,
	store.SortByParticipantsCount: true,
}

// ResolvePage normalizes raw pagination and sort parameters into a
// store query. Unsupported sort fields fall back to createdAt and
// unsupported orders to desc; a listing is never rejected for a bad
// sort parameter. Pure function, no side effects.
func ResolvePage(req models.PageRequest) store.RoomPageQuery {
	field := req.SortField
	if !allowedSortFields[field] {
		field = defaultSortField
	}

	order := req.SortOrder
	if order != "asc" && order != "desc" {
		order = defaultSortOrder
	}

	page := req.Page
	if page < 0 {
		page = 0
	}
	if page > maxPage {
		page = maxPage
	}

	size := req.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	return store.RoomPageQuery{
		SortField: field,
		SortOrder: order,
		Page:      page,
		PageSize:  size,
		Search:    strings.TrimSpace(req.Search),
	}
}
