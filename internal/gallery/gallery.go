// Package gallery orders the assessment kinds for the kind list.
package gallery

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/verte-zerg/ddk/internal/model"
	"github.com/verte-zerg/ddk/internal/settings"
)

// HistorySource reports per-kind run counts.
type HistorySource interface {
	KindHistory(ctx context.Context) (map[model.Kind]model.History, error)
}

// Entry is one assessment kind in the list.
type Entry struct {
	Kind     model.Kind
	Favorite bool
	Count    int
	LastUsed time.Time
}

// Load builds an entry for every kind and sorts them with the saved ordering.
func Load(ctx context.Context, repo settings.Repository, hist HistorySource) ([]Entry, settings.KindSort, error) {
	order, err := settings.LoadKindSort(ctx, repo)
	if err != nil {
		return nil, order, err
	}
	byKind, err := hist.KindHistory(ctx)
	if err != nil {
		return nil, order, fmt.Errorf("failed to load history: %w", err)
	}
	entries := make([]Entry, 0, len(model.Kinds()))
	for _, kind := range model.Kinds() {
		fav, err := settings.IsFavorite(ctx, repo, kind)
		if err != nil {
			return nil, order, err
		}
		h := byKind[kind]
		entries = append(entries, Entry{Kind: kind, Favorite: fav, Count: h.Count, LastUsed: h.LastAt})
	}
	Sort(entries, order)
	return entries, order, nil
}

// Sort orders entries in place. By date, ascending puts the most recently
// used kind first and never-used kinds last.
func Sort(entries []Entry, order settings.KindSort) {
	rank := map[model.Kind]int{}
	for i, kind := range model.Kinds() {
		rank[kind] = i
	}
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if order.By == settings.SortByDate {
			switch {
			case a.LastUsed.IsZero() != b.LastUsed.IsZero():
				if a.LastUsed.IsZero() {
					return 1
				}
				return -1
			case !a.LastUsed.Equal(b.LastUsed):
				return b.LastUsed.Compare(a.LastUsed)
			}
		}
		return rank[a.Kind] - rank[b.Kind]
	})
	if !order.Ascending {
		slices.Reverse(entries)
	}
}

// Split separates favorites from the rest, keeping the order of each.
func Split(entries []Entry) (favorites, others []Entry) {
	for _, e := range entries {
		if e.Favorite {
			favorites = append(favorites, e)
		} else {
			others = append(others, e)
		}
	}
	return favorites, others
}

// CountDescription summarizes how often a kind has been run.
func CountDescription(n int) string {
	switch n {
	case 0:
		return "No assessments yet"
	case 1:
		return "1 assessment"
	default:
		return fmt.Sprintf("%d assessments", n)
	}
}
