package service

import (
	"context"
	"fmt"
	"strings"

	"docshare/internal/auth"
	"docshare/internal/model"
	"docshare/internal/repository"
)

// Filter names a document listing.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterMyPrivate Filter = "my_private"
	FilterPublic    Filter = "public"
	FilterShared    Filter = "shared"
	FilterAdminAll  Filter = "admin_all"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// SearchParams selects one page of a listing. Zero values mean defaults.
type SearchParams struct {
	Filter Filter
	Term   string
	Page   int
	Limit  int
}

// SearchResult is one page of documents.
type SearchResult struct {
	Documents   []model.Document `json:"documents"`
	TotalCount  int              `json:"totalCount"`
	TotalPages  int              `json:"totalPages"`
	CurrentPage int              `json:"currentPage"`
}

var filterScopes = map[Filter]repository.Scope{
	FilterAll:       repository.ScopeVisible,
	FilterMyPrivate: repository.ScopeOwnPrivate,
	FilterPublic:    repository.ScopePublic,
	FilterShared:    repository.ScopeSharedWith,
	FilterAdminAll:  repository.ScopeAll,
}

// ParseFilter maps a query value to a Filter; empty means FilterAll.
func ParseFilter(s string) (Filter, error) {
	f := Filter(strings.TrimSpace(s))
	if f == "" {
		return FilterAll, nil
	}
	if _, ok := filterScopes[f]; !ok {
		return "", ErrInvalidFilter
	}
	return f, nil
}

func normalizePaging(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// Search runs the listing as a single predicate query. FilterAll is the
// visible-to-caller predicate (owner, public or shared), so a document that
// qualifies more than once is still returned and counted once.
func (s *documentService) Search(ctx context.Context, actor auth.Principal, p SearchParams) (*SearchResult, error) {
	page, limit := normalizePaging(p.Page, p.Limit)
	empty := &SearchResult{Documents: []model.Document{}, CurrentPage: page}

	if !actor.Authenticated() {
		return empty, ErrUnauthenticated
	}
	filter, err := ParseFilter(string(p.Filter))
	if err != nil {
		return empty, err
	}
	if filter == FilterAdminAll && !actor.IsAdmin() {
		return empty, ErrPermissionDenied
	}

	res, err := s.repo.Search(ctx, repository.SearchQuery{
		Scope:        filterScopes[filter],
		ViewerID:     actor.UserID,
		NameContains: strings.TrimSpace(p.Term),
		Page:         repository.PageQuery{Limit: limit, Offset: (page - 1) * limit},
	})
	if err != nil {
		return empty, fmt.Errorf("search %s: %w", filter, err)
	}

	docs := res.Items
	if docs == nil {
		docs = []model.Document{}
	}
	return &SearchResult{
		Documents:   docs,
		TotalCount:  res.Total,
		TotalPages:  (res.Total + limit - 1) / limit,
		CurrentPage: page,
	}, nil
}
