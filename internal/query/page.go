package query

// PageResult is the list envelope returned by every list endpoint.
type PageResult[T any] struct {
	Items []T   `json:"items"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// NewPage wraps one page of items. Items is never nil so it encodes as [].
func NewPage[T any](items []T, total int64, rq ResolvedQuery) PageResult[T] {
	if items == nil {
		items = []T{}
	}
	return PageResult[T]{
		Items: items,
		Page:  rq.Page,
		Limit: rq.Limit,
		Total: total,
		Pages: TotalPages(total, rq.Limit),
	}
}

// TotalPages is ceil(total/limit); zero items means zero pages.
func TotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	pages := total / int64(limit)
	if total%int64(limit) > 0 {
		pages++
	}
	return int(pages)
}
