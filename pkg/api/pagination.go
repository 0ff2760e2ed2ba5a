// Package api holds list request parsing and the paginated response envelope.
package api

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/pan-pacific/tracking-service/pkg/errors"
)

// Defaults applied when the query string omits a value
const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// PageRequest represents pagination request parameters
type PageRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// DefaultPageRequest returns the first page at the default size
func DefaultPageRequest() PageRequest {
	return PageRequest{Page: DefaultPage, PageSize: DefaultPageSize}
}

// PageResponse represents a paginated response
type PageResponse[T any] struct {
	Data       []T `json:"data"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// NewPageResponse creates a paginated response. An empty result still has
// one page.
func NewPageResponse[T any](data []T, page, pageSize, totalItems int) PageResponse[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := 1
	if pageSize > 0 && totalItems > 0 {
		totalPages = (totalItems + pageSize - 1) / pageSize
	}
	return PageResponse[T]{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}

// ParsePagination reads page and pageSize. Missing values take the defaults;
// non-numeric values are a bad request. Range checks are left to the query
// engine.
func ParsePagination(c *gin.Context) (PageRequest, *apperrors.AppError) {
	req := DefaultPageRequest()
	var appErr *apperrors.AppError
	if req.Page, appErr = intQuery(c, "page", DefaultPage); appErr != nil {
		return req, appErr
	}
	if req.PageSize, appErr = intQuery(c, "pageSize", DefaultPageSize); appErr != nil {
		return req, appErr
	}
	return req, nil
}

func intQuery(c *gin.Context, key string, fallback int) (int, *apperrors.AppError) {
	raw, ok := c.GetQuery(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, apperrors.ErrBadRequest(key + " must be an integer").WithDetail(key, raw)
	}
	return v, nil
}

// SortOrder represents sort direction
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortRequest represents sorting parameters
type SortRequest struct {
	Field string    `json:"sortBy"`
	Order SortOrder `json:"order"`
}

// ParseSort reads sortBy and order. Any order other than desc sorts ascending.
func ParseSort(c *gin.Context, defaultField string) SortRequest {
	order := SortAsc
	if strings.EqualFold(c.Query("order"), string(SortDesc)) {
		order = SortDesc
	}
	return SortRequest{
		Field: c.DefaultQuery("sortBy", defaultField),
		Order: order,
	}
}

// FilterRequest represents the list filters
type FilterRequest struct {
	Search      string `json:"search,omitempty"`
	Status      string `json:"status,omitempty"`
	ServiceType string `json:"service,omitempty"`
}

// ParseFilter reads search, status and service. "all" clears a filter.
func ParseFilter(c *gin.Context) FilterRequest {
	return FilterRequest{
		Search:      c.Query("search"),
		Status:      filterValue(c.Query("status")),
		ServiceType: filterValue(c.Query("service")),
	}
}

func filterValue(v string) string {
	if strings.EqualFold(v, "all") {
		return ""
	}
	return v
}

// ListRequest combines pagination, sorting and filtering
type ListRequest struct {
	Pagination PageRequest
	Sort       SortRequest
	Filter     FilterRequest
}

// ParseListRequest parses all list parameters from the gin context
func ParseListRequest(c *gin.Context, defaultSortField string) (ListRequest, *apperrors.AppError) {
	page, appErr := ParsePagination(c)
	if appErr != nil {
		return ListRequest{}, appErr
	}
	return ListRequest{
		Pagination: page,
		Sort:       ParseSort(c, defaultSortField),
		Filter:     ParseFilter(c),
	}, nil
}
