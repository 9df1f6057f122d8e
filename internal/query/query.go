// Package query turns flat search parameters into a structured filter:
// a pagination window, a projection list and a set of AND-ed
// conditions that can be applied to a gorm handle.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/digital_store/internal/apperr"
)

const DefaultLimit = 12

// Entity describes the searchable surface of one record type.
type Entity struct {
	PrimaryKey string
	Fields     []string // projectable columns
	Defaults   string   // default value of the fields parameter
}

type Cond struct {
	Expr string
	Args []any
}

type Query struct {
	Limit  int
	Page   int
	All    bool // limit == -1: no window, page forced to 1
	Fields []string
	Conds  []Cond
}

// Parse reads limit, page and fields. Non-numeric limit or page is a
// hard error, unknown field tokens are dropped and the primary key is
// always kept in the projection.
func Parse(values url.Values, e Entity) (*Query, error) {
	limitRaw := values.Get("limit")
	if limitRaw == "" {
		limitRaw = strconv.Itoa(DefaultLimit)
	}
	pageRaw := values.Get("page")
	if pageRaw == "" {
		pageRaw = "1"
	}

	limit, err := strconv.Atoi(limitRaw)
	if err != nil {
		return nil, fmt.Errorf("limit must be a number: %w", apperr.ErrInvalidParameter)
	}
	page, err := strconv.Atoi(pageRaw)
	if err != nil {
		return nil, fmt.Errorf("page must be a number: %w", apperr.ErrInvalidParameter)
	}
	if limit < -1 || page < 1 {
		return nil, fmt.Errorf("limit and page out of range: %w", apperr.ErrInvalidParameter)
	}

	q := &Query{Limit: limit, Page: page}
	if limit == -1 {
		q.All = true
		q.Page = 1
	}

	fieldsRaw := values.Get("fields")
	if fieldsRaw == "" {
		fieldsRaw = e.Defaults
	}
	known := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		known[f] = true
	}
	hasPK := false
	for _, tok := range strings.Split(fieldsRaw, ",") {
		f := strings.TrimSpace(tok)
		if f == "" || !known[f] {
			continue
		}
		q.Fields = append(q.Fields, f)
		if f == e.PrimaryKey {
			hasPK = true
		}
	}
	if !hasPK {
		q.Fields = append(q.Fields, e.PrimaryKey)
	}

	return q, nil
}

// Bool adds an equality condition on a boolean column. Only the
// literals "true" and "false" are accepted.
func (q *Query) Bool(values url.Values, param, column string) error {
	raw := values.Get(param)
	if raw == "" {
		return nil
	}
	switch raw {
	case "true":
		q.Conds = append(q.Conds, Cond{Expr: column + " = ?", Args: []any{true}})
	case "false":
		q.Conds = append(q.Conds, Cond{Expr: column + " = ?", Args: []any{false}})
	default:
		return fmt.Errorf("%s must be true or false: %w", param, apperr.ErrInvalidParameter)
	}
	return nil
}

// Contains adds a case-insensitive substring condition.
func (q *Query) Contains(values url.Values, param, column string) {
	raw := values.Get(param)
	if raw == "" {
		return
	}
	q.Conds = append(q.Conds, Cond{
		Expr: "LOWER(" + column + ") LIKE ?",
		Args: []any{"%" + strings.ToLower(raw) + "%"},
	})
}

// Range adds a BETWEEN condition from a "min-max" value. A half that
// fails to parse drops the whole filter, it is not an error.
func (q *Query) Range(values url.Values, param, column string) {
	raw := values.Get(param)
	if raw == "" {
		return
	}
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 {
		return
	}
	min, errMin := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	max, errMax := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errMin != nil || errMax != nil {
		return
	}
	q.Conds = append(q.Conds, Cond{Expr: column + " BETWEEN ? AND ?", Args: []any{min, max}})
}

// IDSet parses a comma-separated id list, discarding non-numeric
// tokens. An empty result means no constraint.
func IDSet(values url.Values, param string) []int {
	raw := values.Get(param)
	if raw == "" {
		return nil
	}
	var ids []int
	for _, tok := range strings.Split(raw, ",") {
		if id, err := strconv.Atoi(strings.TrimSpace(tok)); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// OptionFilters collects every option[<field>]=<value> parameter into
// field/value pairs. All pairs must hold on one related option row.
func OptionFilters(values url.Values) map[string]string {
	var filters map[string]string
	for key := range values {
		if !strings.HasPrefix(key, "option[") || !strings.HasSuffix(key, "]") {
			continue
		}
		field := key[len("option[") : len(key)-1]
		if field == "" {
			continue
		}
		if filters == nil {
			filters = make(map[string]string)
		}
		filters[field] = values.Get(key)
	}
	return filters
}

// Apply chains every condition onto the handle with AND semantics.
func (q *Query) Apply(db *gorm.DB) *gorm.DB {
	for _, c := range q.Conds {
		db = db.Where(c.Expr, c.Args...)
	}
	return db
}

// Window applies the pagination window, or nothing when limit is -1.
func (q *Query) Window(db *gorm.DB) *gorm.DB {
	if q.All {
		return db
	}
	return db.Offset(q.Offset()).Limit(q.Limit)
}

func (q *Query) Offset() int {
	return (q.Page - 1) * q.Limit
}
