package domain

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Filter field names understood by the list endpoints.
const (
	FieldStatus     = "status"
	FieldPlacement  = "placement"
	FieldCategory   = "category"
	FieldModeration = "moderation"
	FieldVisibility = "visibility"
)

// Visibility values. An empty visibility set means "no constraint".
const (
	VisibilityActive  = "active"
	VisibilityDeleted = "deleted"
)

var fold = cases.Fold()

// Filters is the list query criteria: a free-text search plus a set of
// multi-valued fields. Set values have no implied order and an absent or
// empty set places no constraint on its field.
type Filters struct {
	Search string              `json:"search,omitempty"`
	Sets   map[string][]string `json:"sets,omitempty"`
}

// FilterPatch is a partial update of Filters. A nil Search leaves the search
// untouched; a Sets entry with an empty slice removes that field.
type FilterPatch struct {
	Search *string             `json:"search,omitempty"`
	Sets   map[string][]string `json:"sets,omitempty"`
}

// Normalize returns a copy with folded, de-duplicated, sorted set values and
// empty fields dropped, so two equivalent criteria compare equal.
func (f Filters) Normalize() Filters {
	out := Filters{Search: strings.Join(strings.Fields(f.Search), " ")}
	for field, vals := range f.Sets {
		field = strings.ToLower(strings.TrimSpace(field))
		set := normalizeSet(vals)
		if field == "" || len(set) == 0 {
			continue
		}
		if out.Sets == nil {
			out.Sets = make(map[string][]string, len(f.Sets))
		}
		out.Sets[field] = set
	}
	return out
}

// Values returns the (normalized) values of a set field.
func (f Filters) Values(field string) []string {
	return f.Sets[field]
}

// Clone returns a deep copy.
func (f Filters) Clone() Filters {
	out := Filters{Search: f.Search}
	if f.Sets != nil {
		out.Sets = make(map[string][]string, len(f.Sets))
		for k, v := range f.Sets {
			out.Sets[k] = append([]string(nil), v...)
		}
	}
	return out
}

// Apply merges p into f and reports whether the search text changed.
func (f Filters) Apply(p FilterPatch) (Filters, bool) {
	out := f.Clone()
	searchChanged := false
	if p.Search != nil {
		s := strings.Join(strings.Fields(*p.Search), " ")
		searchChanged = s != f.Search
		out.Search = s
	}
	for field, vals := range p.Sets {
		if out.Sets == nil {
			out.Sets = make(map[string][]string, len(p.Sets))
		}
		out.Sets[field] = vals
	}
	return out.Normalize(), searchChanged
}

// Key is the canonical serialization of f. Two filters with the same key
// select the same rows.
func (f Filters) Key() string {
	n := f.Normalize()
	fields := make([]string, 0, len(n.Sets))
	for k := range n.Sets {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString("q=")
	b.WriteString(strconv.Quote(n.Search))
	for _, k := range fields {
		b.WriteByte(';')
		b.WriteString(k)
		b.WriteByte('=')
		for i, v := range n.Sets[k] {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(v))
		}
	}
	return b.String()
}

// Equal reports whether f and o select the same rows.
func (f Filters) Equal(o Filters) bool { return f.Key() == o.Key() }

func normalizeSet(vals []string) []string {
	if len(vals) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(vals))
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		v = fold.String(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Query is the identity of one list request: criteria plus pagination
// window. Its Key doubles as the relevance token for late responses.
type Query struct {
	Filters Filters
	Page    int
	Limit   int
}

// Key returns the canonical relevance token of q.
func (q Query) Key() string {
	return q.Filters.Key() + "|page=" + strconv.Itoa(q.Page) + "|limit=" + strconv.Itoa(q.Limit)
}

// Offset returns the zero-based row offset of the page.
func (q Query) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

// Page is one page of a list result.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// TotalPages computes the number of pages for total rows at limit per page.
func TotalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
