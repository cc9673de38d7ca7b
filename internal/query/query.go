// Package query turns untrusted list parameters (page, limit, search, scope,
// active, sort, fields, include) into a filter, sort, projection and page window
// that are safe to hand to squirrel. Every list endpoint goes through Build.
//
// Only a malformed scoping identifier is rejected. Everything else falls back
// to a default: bad page -> 1, bad limit -> 20, unknown sort field ->
// createdAt, unknown sort order -> descending, unknown fields -> all fields.
package query

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/emporia-labs/emporia-backend/internal/apperror"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MinLimit     = 1
	MaxLimit     = 100

	DefaultSortField = "createdAt"

	// maxPage keeps (page-1)*limit far away from overflow.
	maxPage = math.MaxInt32
)

// Direction is a sort direction. The zero value is Descending.
type Direction int

const (
	Descending Direction = iota
	Ascending
)

func (d Direction) String() string {
	if d == Ascending {
		return "ASC"
	}
	return "DESC"
}

// Scope describes the optional "belongs to" filter of an entity, such as
// categories under a parent or products in a category.
type Scope struct {
	// Param is the query-string parameter name.
	Param string
	// Column is the referencing column.
	Column string
	// AllowRoot accepts "null", "root" and "" as "no parent".
	AllowRoot bool
	// Resource names the identifier in error messages ("parent" -> "Invalid parent id").
	Resource string
}

type SearchField struct {
	Column string
	// Array matches when any element of an array column matches.
	Array bool
}

// EntityQueryConfig is the per-entity whitelist the builder validates against.
type EntityQueryConfig struct {
	// SortFields maps the public sort name to its column.
	SortFields map[string]string
	// DefaultSort must be a key of SortFields.
	DefaultSort string
	// TiebreakColumn orders rows that share a sort value. Defaults to "id".
	TiebreakColumn string
	// Fields lists the projectable public field names.
	Fields       []string
	SearchFields []SearchField
	Scope        *Scope
	// ActiveColumn is the boolean column behind the active filter; empty disables it.
	ActiveColumn string
	// Includes lists the derived attributes a caller may request.
	Includes []string
	// BaseFilter is applied to every query, e.g. hiding soft-deleted rows.
	BaseFilter []sq.Sqlizer
}

// ListQuery is one caller's raw list request. Pointer fields distinguish an
// absent parameter from an empty one.
type ListQuery struct {
	Page          string
	Limit         string
	Search        string
	Scope         *string
	Active        *string
	SortField     string
	SortDirection string
	Fields        string
	Include       string
}

type Sort struct {
	Field     string
	Column    string
	Direction Direction
	Tiebreak  string
}

// OrderBy renders ORDER BY terms. Columns come from the config, never the request.
func (s Sort) OrderBy() []string {
	terms := []string{s.Column + " " + s.Direction.String()}
	if s.Tiebreak != "" && s.Tiebreak != s.Column {
		terms = append(terms, s.Tiebreak+" "+s.Direction.String())
	}
	return terms
}

// ResolvedQuery is the validated, executable form of a ListQuery.
type ResolvedQuery struct {
	// Filter is a conjunction of equality and pattern clauses; empty means all rows.
	Filter sq.And
	Sort   Sort
	// Projection is nil when all fields are returned.
	Projection []string
	Includes   []string
	Page       int
	Limit      int
}

// Offset is the number of rows skipped before the page.
func (q ResolvedQuery) Offset() uint64 {
	return uint64(q.Page-1) * uint64(q.Limit)
}

// Wants reports whether the derived attribute name was requested.
func (q ResolvedQuery) Wants(name string) bool {
	for _, inc := range q.Includes {
		if inc == name {
			return true
		}
	}
	return false
}

// Where applies the filter only, for count queries.
func (q ResolvedQuery) Where(b sq.SelectBuilder) sq.SelectBuilder {
	if len(q.Filter) > 0 {
		b = b.Where(q.Filter)
	}
	return b
}

// Apply applies filter, order and page window.
func (q ResolvedQuery) Apply(b sq.SelectBuilder) sq.SelectBuilder {
	return q.Where(b).
		OrderBy(q.Sort.OrderBy()...).
		Limit(uint64(q.Limit)).
		Offset(q.Offset())
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Build validates raw against cfg. The only error is an invalid scoping
// identifier, wrapped as apperror.ValidationError around ErrInvalidIdentifier.
func Build(raw ListQuery, cfg EntityQueryConfig) (ResolvedQuery, error) {
	rq := ResolvedQuery{
		Page:  parsePage(raw.Page),
		Limit: parseLimit(raw.Limit),
	}

	filter := sq.And{}
	filter = append(filter, cfg.BaseFilter...)

	if cfg.ActiveColumn != "" && raw.Active != nil {
		filter = append(filter, sq.Eq{cfg.ActiveColumn: strings.EqualFold(*raw.Active, "true")})
	}

	if cfg.Scope != nil && raw.Scope != nil {
		clause, err := scopeClause(*cfg.Scope, *raw.Scope)
		if err != nil {
			return ResolvedQuery{}, err
		}
		if clause != nil {
			filter = append(filter, clause)
		}
	}

	if s := strings.TrimSpace(raw.Search); s != "" && len(cfg.SearchFields) > 0 {
		pattern := "%" + likeEscaper.Replace(s) + "%"
		anyOf := sq.Or{}
		for _, f := range cfg.SearchFields {
			if f.Array {
				anyOf = append(anyOf, sq.Expr(fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(%s) AS elem WHERE elem ILIKE ?)", f.Column), pattern))
				continue
			}
			anyOf = append(anyOf, sq.ILike{f.Column: pattern})
		}
		filter = append(filter, anyOf)
	}

	rq.Filter = filter
	rq.Sort = resolveSort(raw, cfg)
	rq.Projection = intersect(splitList(raw.Fields), cfg.Fields)
	rq.Includes = intersect(splitList(raw.Include), cfg.Includes)
	return rq, nil
}

func scopeClause(scope Scope, raw string) (sq.Sqlizer, error) {
	if raw == "null" || raw == "root" || raw == "" {
		if scope.AllowRoot {
			return sq.Eq{scope.Column: nil}, nil
		}
		if raw == "" {
			return nil, nil
		}
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		resource := scope.Resource
		if resource == "" {
			resource = scope.Param
		}
		return nil, apperror.InvalidID(resource)
	}
	return sq.Eq{scope.Column: id.String()}, nil
}

func resolveSort(raw ListQuery, cfg EntityQueryConfig) Sort {
	field := raw.SortField
	column, ok := cfg.SortFields[field]
	if !ok {
		field = cfg.DefaultSort
		if field == "" {
			field = DefaultSortField
		}
		column = cfg.SortFields[field]
	}

	direction := Descending
	if dir := strings.TrimSpace(raw.SortDirection); strings.EqualFold(dir, "asc") || dir == "1" {
		direction = Ascending
	}

	tiebreak := cfg.TiebreakColumn
	if tiebreak == "" {
		tiebreak = "id"
	}
	return Sort{Field: field, Column: column, Direction: direction, Tiebreak: tiebreak}
}

func parseNumber(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return math.Floor(f), true
}

func parsePage(raw string) int {
	f, ok := parseNumber(raw)
	if !ok || f < 1 {
		return DefaultPage
	}
	if f > maxPage {
		return maxPage
	}
	return int(f)
}

func parseLimit(raw string) int {
	f, ok := parseNumber(raw)
	if !ok {
		return DefaultLimit
	}
	return int(math.Min(MaxLimit, math.Max(MinLimit, f)))
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// intersect keeps requested names that are allowed, in request order, once each.
// An empty result is nil.
func intersect(requested, allowed []string) []string {
	if len(requested) == 0 || len(allowed) == 0 {
		return nil
	}
	ok := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		ok[a] = true
	}
	var out []string
	seen := make(map[string]bool, len(requested))
	for _, r := range requested {
		if ok[r] && !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}
