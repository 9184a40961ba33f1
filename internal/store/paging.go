package store

import (
	"math"
	"sort"
	"time"
)

const (
	DefaultPage  = 1
	DefaultLimit = 100
	MaxLimit     = 1000

	// MaxPage keeps (Page-1)*MaxLimit and Page+1 inside an int.
	MaxPage = math.MaxInt / MaxLimit
)

// PageQuery selects rows created at or after Since, ordered by creation time,
// split into 1-based pages of Limit rows.
type PageQuery struct {
	Since *time.Time
	Page  int
	Limit int
}

// Normalize clamps Page to [1, MaxPage] and Limit to [1, MaxLimit].
func (q PageQuery) Normalize() PageQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.Limit < 1 {
		q.Limit = 1
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

func (q PageQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// NextPage returns page+1 when the returned page is full, nil otherwise.
func (q PageQuery) NextPage(returned int) *int {
	if returned < q.Limit {
		return nil
	}
	next := q.Page + 1
	return &next
}

// paginate filters by since, stable-sorts by the timestamp key and slices out
// the requested page. Insertion order breaks timestamp ties.
func paginate[T any](rows []T, q PageQuery, ts func(T) time.Time) []T {
	filtered := make([]T, 0, len(rows))
	for _, r := range rows {
		if q.Since != nil && ts(r).Before(*q.Since) {
			continue
		}
		filtered = append(filtered, r)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return ts(filtered[i]).Before(ts(filtered[j]))
	})

	start := q.Offset()
	if start < 0 || start >= len(filtered) {
		return []T{}
	}
	end := start + q.Limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end]
}
