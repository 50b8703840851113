package pagination

import "math"

// Pagination represents pagination metadata for a listing response
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrev     bool  `json:"has_prev"`
}

// Params represents input parameters for pagination
type Params struct {
	Page    int `form:"page" json:"page"`
	PerPage int `form:"per_page" json:"per_page"`
}

// Default returns default pagination values
func Default() *Params {
	return &Params{Page: 1, PerPage: 25}
}

// Validate ensures pagination parameters are within valid ranges
func (p *Params) Validate() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = 25
	}
	if p.PerPage > 100 {
		p.PerPage = 100
	}
}

// Offset calculates the slice/query offset for the current page
func (p *Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// New creates Pagination metadata from the validated params and total count
func New(page, perPage int, total int64) *Pagination {
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return &Pagination{
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}

// Result represents one page of items with its pagination metadata
type Result[T any] struct {
	Items      []T         `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// NewResult assembles a Result
func NewResult[T any](items []T, pagination *Pagination) *Result[T] {
	return &Result[T]{Items: items, Pagination: pagination}
}

// Page slices one page out of an already-filtered in-memory list. The local
// record store is small enough that sale searches paginate after decoding.
func Page[T any](items []T, params *Params) *Result[T] {
	params.Validate()
	total := int64(len(items))

	start := params.Offset()
	if start > len(items) {
		start = len(items)
	}
	end := start + params.PerPage
	if end > len(items) {
		end = len(items)
	}

	return NewResult(items[start:end], New(params.Page, params.PerPage, total))
}
