// Package query narrows a shipment collection for display: search, status
// filter, service filter, sort and paginate, always in that order.
package query

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/pan-pacific/tracking-service/internal/domain"
)

// All disables a status or service filter
const All = "all"

// SortDirection orders sorted results
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Options configures a query
type Options struct {
	Search        string
	StatusFilter  string
	ServiceFilter string
	SortField     string
	SortDirection SortDirection
	Page          int
	PageSize      int
}

// DefaultOptions returns options that match everything on the first page
func DefaultOptions() Options {
	return Options{
		StatusFilter:  All,
		ServiceFilter: All,
		SortDirection: SortAsc,
		Page:          1,
		PageSize:      10,
	}
}

// Result is one page of a query and the filtered count before pagination
type Result struct {
	Items []*domain.ShipmentRecord
	Total int
}

// TotalPages is the number of pages needed for Total at pageSize
func (r Result) TotalPages(pageSize int) int {
	if pageSize <= 0 || r.Total == 0 {
		return 0
	}
	return (r.Total + pageSize - 1) / pageSize
}

// stringFields are the record fields that take part in sorting.
var stringFields = map[string]func(*domain.ShipmentRecord) string{
	"id":                  func(r *domain.ShipmentRecord) string { return r.ID },
	"trackingId":          func(r *domain.ShipmentRecord) string { return r.TrackingID },
	"customerName":        func(r *domain.ShipmentRecord) string { return r.CustomerName },
	"customerEmail":       func(r *domain.ShipmentRecord) string { return r.CustomerEmail },
	"customerPhone":       func(r *domain.ShipmentRecord) string { return r.CustomerPhone },
	"customerAddress":     func(r *domain.ShipmentRecord) string { return r.CustomerAddress },
	"origin":              func(r *domain.ShipmentRecord) string { return r.Origin },
	"destination":         func(r *domain.ShipmentRecord) string { return r.Destination },
	"serviceType":         func(r *domain.ShipmentRecord) string { return string(r.ServiceType) },
	"packageDetails":      func(r *domain.ShipmentRecord) string { return r.PackageDetails },
	"specialInstructions": func(r *domain.ShipmentRecord) string { return r.SpecialInstructions },
	"status":              func(r *domain.ShipmentRecord) string { return string(r.Status) },
}

// IsSortable reports whether field orders results. Other fields, known or
// not, leave the filtered order untouched.
func IsSortable(field string) bool {
	_, ok := stringFields[field]
	return ok
}

// Query filters, sorts and paginates records. The input slice and records
// are not modified; Items shares record pointers with the input.
func Query(records []*domain.ShipmentRecord, opts Options) (Result, error) {
	if opts.PageSize <= 0 {
		return Result{}, domain.ErrInvalidPageSize
	}
	if opts.Page <= 0 {
		return Result{}, domain.ErrInvalidPage
	}

	filtered := make([]*domain.ShipmentRecord, 0, len(records))
	for _, r := range records {
		if matchesSearch(r, opts.Search) {
			filtered = append(filtered, r)
		}
	}
	filtered = filter(filtered, func(r *domain.ShipmentRecord) bool {
		return matchesFilter(string(r.Status), opts.StatusFilter)
	})
	filtered = filter(filtered, func(r *domain.ShipmentRecord) bool {
		return matchesFilter(string(r.ServiceType), opts.ServiceFilter)
	})

	sortRecords(filtered, opts.SortField, opts.SortDirection)

	total := len(filtered)
	pages := total / opts.PageSize
	if total%opts.PageSize != 0 {
		pages++
	}
	// Compare page numbers before multiplying so huge pages cannot overflow.
	if opts.Page > pages {
		return Result{Items: []*domain.ShipmentRecord{}, Total: total}, nil
	}
	start := (opts.Page - 1) * opts.PageSize
	end := start + opts.PageSize
	if end > total {
		end = total
	}

	items := make([]*domain.ShipmentRecord, end-start)
	copy(items, filtered[start:end])
	return Result{Items: items, Total: total}, nil
}

func matchesSearch(r *domain.ShipmentRecord, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, field := range []string{r.TrackingID, r.CustomerName, r.Origin, r.Destination} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func matchesFilter(value, want string) bool {
	return want == "" || want == All || value == want
}

func filter(records []*domain.ShipmentRecord, keep func(*domain.ShipmentRecord) bool) []*domain.ShipmentRecord {
	out := records[:0]
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func sortRecords(records []*domain.ShipmentRecord, field string, dir SortDirection) {
	get, ok := stringFields[field]
	if !ok {
		return
	}
	// collate.Collator keeps internal buffers, so one per call.
	c := collate.New(language.Und)
	sort.SliceStable(records, func(i, j int) bool {
		cmp := c.CompareString(get(records[i]), get(records[j]))
		if dir == SortDesc {
			return cmp > 0
		}
		return cmp < 0
	})
}
