package repository

import "strings"

// PageOptions carries pagination and sorting intent parsed from the query
// string of a list request. Zero values fall back to page 1, limit 10 and
// createdAt descending.
type PageOptions struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// Normalized returns a copy with defaults applied and the limit clamped.
func (o PageOptions) Normalized() PageOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = 10
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
	if o.SortBy == "" {
		o.SortBy = "createdAt"
	}
	if !strings.EqualFold(o.SortOrder, "asc") {
		o.SortOrder = "desc"
	}
	return o
}

// offset converts page/limit into a SQL offset. Callers must normalize first.
func (o PageOptions) offset() int { return (o.Page - 1) * o.Limit }

// orderClause maps the requested sort field through the given whitelist of
// query-field -> column translations. Unknown fields fall back to the
// default column so arbitrary identifiers never reach the SQL text.
func (o PageOptions) orderClause(sortable map[string]string, defaultColumn string) string {
	col, ok := sortable[o.SortBy]
	if !ok {
		col = defaultColumn
	}
	dir := "DESC"
	if strings.EqualFold(o.SortOrder, "asc") {
		dir = "ASC"
	}
	return col + " " + dir
}

// PageMeta is the `meta` block attached to every list response.
type PageMeta struct {
	Page      int   `json:"page"`
	Limit     int   `json:"limit"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"totalPage"`
}

// NewPageMeta computes the meta block for a normalized options value.
// TotalPage is ceil(total/limit).
func NewPageMeta(o PageOptions, total int64) PageMeta {
	o = o.Normalized()
	totalPage := total / int64(o.Limit)
	if total%int64(o.Limit) != 0 {
		totalPage++
	}
	return PageMeta{Page: o.Page, Limit: o.Limit, Total: total, TotalPage: totalPage}
}
