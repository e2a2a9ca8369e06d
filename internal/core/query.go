package core

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"swimeeter/pkg/domain"
)

const searchPrefix = "search__"

// Query shapes a listing: the parent it is scoped to, a half-open
// [LowerBound, UpperBound) slice and case-insensitive prefix filters keyed by
// field name.
type Query struct {
	SpecificTo EntityType
	ID         string
	LowerBound int
	// UpperBound is exclusive; nil means the end of the listing.
	UpperBound *int
	Search     map[string]string
}

// ParseQuery reads the boundary parameters specific_to, id, lower_bound,
// upper_bound and search__<field>.
func ParseQuery(values url.Values) (Query, error) {
	q := Query{
		SpecificTo: EntityType(values.Get("specific_to")),
		ID:         values.Get("id"),
	}
	if raw := values.Get("lower_bound"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Query{}, domain.Invalid("query", domain.ReasonInvalidField, "lower_bound %q is not a non-negative integer", raw)
		}
		q.LowerBound = n
	}
	if raw := values.Get("upper_bound"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < q.LowerBound {
			return Query{}, domain.Invalid("query", domain.ReasonInvalidField, "upper_bound %q must be an integer no less than lower_bound", raw)
		}
		q.UpperBound = &n
	}
	for key, vals := range values {
		field, ok := strings.CutPrefix(key, searchPrefix)
		if !ok || len(vals) == 0 {
			continue
		}
		if q.Search == nil {
			q.Search = make(map[string]string)
		}
		q.Search[field] = vals[0]
	}
	return q, nil
}

// ParsePolicy reads the duplicate_handling boundary parameter.
func ParsePolicy(values url.Values) (DuplicatePolicy, error) {
	return domain.ParseDuplicatePolicy(values.Get("duplicate_handling"))
}

// searchFields maps search__<field> names to the record text they match.
type searchFields[T any] map[string]func(T) string

// applyQuery filters items by the query's prefix searches and then slices
// them. Unknown search fields are rejected.
func applyQuery[T any](entity EntityType, items []T, q Query, fields searchFields[T]) ([]T, error) {
	if len(q.Search) > 0 {
		names := make([]string, 0, len(q.Search))
		for name := range q.Search {
			if _, ok := fields[name]; !ok {
				return nil, domain.Invalid(entity, domain.ReasonInvalidField, "cannot search by %q", name)
			}
			names = append(names, name)
		}
		sort.Strings(names)
		fold := cases.Fold()
		filtered := items[:0:0]
		for _, item := range items {
			keep := true
			for _, name := range names {
				if !strings.HasPrefix(fold.String(fields[name](item)), fold.String(q.Search[name])) {
					keep = false
					break
				}
			}
			if keep {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}
	lower := min(q.LowerBound, len(items))
	upper := len(items)
	if q.UpperBound != nil {
		upper = max(lower, min(*q.UpperBound, len(items)))
	}
	return items[lower:upper], nil
}
