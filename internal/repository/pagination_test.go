package repository

import "testing"

func TestPageOptionsNormalized(t *testing.T) {
	o := PageOptions{}.Normalized()
	if o.Page != 1 || o.Limit != 10 || o.SortBy != "createdAt" || o.SortOrder != "desc" {
		t.Fatalf("unexpected defaults: %+v", o)
	}

	o = PageOptions{Page: 3, Limit: 500, SortBy: "amount", SortOrder: "ASC"}.Normalized()
	if o.Limit != 100 {
		t.Fatalf("limit not clamped: %d", o.Limit)
	}
	if o.SortOrder != "ASC" {
		t.Fatalf("asc order not preserved: %q", o.SortOrder)
	}
	if o.offset() != 200 {
		t.Fatalf("offset=%d, want 200", o.offset())
	}
}

func TestOrderClauseWhitelist(t *testing.T) {
	sortable := map[string]string{"createdAt": "r.created_at", "amount": "r.amount"}

	o := PageOptions{SortBy: "amount", SortOrder: "asc"}.Normalized()
	if got := o.orderClause(sortable, "r.created_at"); got != "r.amount ASC" {
		t.Fatalf("orderClause=%q", got)
	}

	// Unknown sort fields must never reach the SQL text.
	o = PageOptions{SortBy: "1;DROP TABLE"}.Normalized()
	if got := o.orderClause(sortable, "r.created_at"); got != "r.created_at DESC" {
		t.Fatalf("orderClause=%q", got)
	}
}

func TestNewPageMeta(t *testing.T) {
	cases := []struct {
		limit     int
		total     int64
		totalPage int64
	}{
		{10, 0, 0},
		{10, 1, 1},
		{10, 10, 1},
		{10, 11, 2},
		{7, 20, 3},
	}
	for _, tt := range cases {
		m := NewPageMeta(PageOptions{Limit: tt.limit}, tt.total)
		if m.TotalPage != tt.totalPage {
			t.Fatalf("limit=%d total=%d: totalPage=%d, want %d", tt.limit, tt.total, m.TotalPage, tt.totalPage)
		}
	}
}
