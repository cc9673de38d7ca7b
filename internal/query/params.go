package query

import "net/url"

// Query-string parameter names shared by every list endpoint. The scope
// parameter name comes from the entity config.
const (
	ParamPage      = "page"
	ParamLimit     = "limit"
	ParamSearch    = "search"
	ParamActive    = "active"
	ParamSortBy    = "sortBy"
	ParamSortOrder = "sortOrder"
	ParamFields    = "fields"
	ParamInclude   = "include"
)

// FromValues reads a ListQuery out of a request's query string.
func FromValues(values url.Values, cfg EntityQueryConfig) ListQuery {
	q := ListQuery{
		Page:          values.Get(ParamPage),
		Limit:         values.Get(ParamLimit),
		Search:        values.Get(ParamSearch),
		SortField:     values.Get(ParamSortBy),
		SortDirection: values.Get(ParamSortOrder),
		Fields:        values.Get(ParamFields),
		Include:       values.Get(ParamInclude),
	}
	if values.Has(ParamActive) {
		active := values.Get(ParamActive)
		q.Active = &active
	}
	if cfg.Scope != nil && values.Has(cfg.Scope.Param) {
		scope := values.Get(cfg.Scope.Param)
		q.Scope = &scope
	}
	return q
}

// Parse is FromValues followed by Build.
func Parse(values url.Values, cfg EntityQueryConfig) (ResolvedQuery, error) {
	return Build(FromValues(values, cfg), cfg)
}
