package audit

import (
	"context"
	"fmt"
	"strings"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Service coordinates read access to the authorization audit trail.
type Service struct {
	repo Repository
}

// NewService constructs a trail service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Trail returns one page of records for a target, newest first. One extra row
// is fetched to decide HasNext without a count query.
func (s *Service) Trail(ctx context.Context, filters Filters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	target := strings.TrimSpace(filters.Target)
	if target == "" {
		return Result{}, fmt.Errorf("audit: target required")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	rows, err := s.repo.ListByTarget(ctx, target, offset, pageSize+1)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export returns the full trail for a target without paging.
func (s *Service) Export(ctx context.Context, target string) ([]Record, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, fmt.Errorf("audit: target required")
	}
	return s.repo.AllByTarget(ctx, target)
}
