// Package search is the read-only filter/sort facade used by the list
// endpoints and by the rent flow's book/user resolution. It never touches
// entity state.
package search

import (
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
)

type Mode string

const (
	ModeID   Mode = "id"   // exact numeric id match
	ModeName Mode = "name" // fuzzy match over the entity's text fields
)

// Fuzzy matches tolerate typos up to this share of the query length.
const maxDistanceRatio = 0.4

type Query struct {
	Mode Mode
	Text string
}

// Filter returns the items matching q, best match first. id and fields
// extract the match targets from an item. An empty query returns the input
// unchanged.
func Filter[T any](items []T, q Query, id func(T) int64, fields func(T) []string) []T {
	if q.Text == "" {
		return items
	}

	if q.Mode == ModeID {
		want, err := strconv.ParseInt(strings.TrimSpace(q.Text), 10, 64)
		if err != nil {
			return nil
		}
		var out []T
		for _, item := range items {
			if id(item) == want {
				out = append(out, item)
			}
		}
		return out
	}

	type scored struct {
		item  T
		score float64
	}
	var hits []scored
	for _, item := range items {
		if s, ok := score(q.Text, fields(item)); ok {
			hits = append(hits, scored{item: item, score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score < hits[j].score })

	out := make([]T, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.item)
	}
	return out
}

// score returns the best (lowest) match score across fields and whether any
// field matched. Substring matches always pass; otherwise the field passes
// when the edit distance stays within maxDistanceRatio of the query length.
func score(query string, fields []string) (float64, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0, false
	}

	best := -1.0
	for _, f := range fields {
		fl := strings.ToLower(f)
		if fl == "" {
			continue
		}
		var s float64
		switch {
		case fl == q:
			s = 0
		case strings.Contains(fl, q):
			// prefer tight matches over matches buried in long fields
			s = float64(len(fl)-len(q)) / float64(len(fl)+1) * maxDistanceRatio
		default:
			d := levenshtein.ComputeDistance(q, fl)
			ratio := float64(d) / float64(len([]rune(q)))
			if ratio > maxDistanceRatio {
				continue
			}
			s = ratio
		}
		if best < 0 || s < best {
			best = s
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

// SortBy orders items with less, optionally reversed. The sort is stable so
// equal keys keep their relative order.
func SortBy[T any](items []T, less func(a, b T) bool, desc bool) {
	if less == nil {
		return
	}
	if desc {
		sort.SliceStable(items, func(i, j int) bool { return less(items[j], items[i]) })
		return
	}
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}
