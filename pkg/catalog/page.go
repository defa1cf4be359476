package catalog

import "math"

// Range is an inclusive row range.
type Range struct {
	From int
	To   int
}

// MaxPage is the highest zero-based page number accepted for listings. It
// keeps row offsets within the 32-bit range backends accept.
const MaxPage = math.MaxInt32/ItemsPerPage - 1

// PageRange returns the row range of the zero-based page. Pages beyond the
// 32-bit offset range are clamped to the last representable one.
func PageRange(page, size int) Range {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = ItemsPerPage
	}
	if last := math.MaxInt32/size - 1; last >= 0 && page > last {
		page = last
	}
	from := page * size
	return Range{From: from, To: from + size - 1}
}

func (r Range) Limit() int {
	return r.To - r.From + 1
}

type Page[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	HasMore bool `json:"hasMore"`
}

// NewPage builds a page for rows fetched with r out of total rows.
func NewPage[T any](items []T, total int, r Range) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:   items,
		Total:   total,
		HasMore: total > r.To+1,
	}
}
