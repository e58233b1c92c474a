package settings

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/verte-zerg/ddk/internal/model"
)

const (
	KeySortBy        = "kinds.sort-by"
	KeySortAscending = "kinds.sort-ascending"
)

// RateUnitKey is the rate unit key for kind. The timed kind maps to KeyRateUnit.
func RateUnitKey(kind model.Kind) string {
	return string(kind) + ".rate-unit"
}

// FavoriteKey marks kind as a favorite when set to true.
func FavoriteKey(kind model.Kind) string {
	return string(kind) + ".favorite"
}

// LoadRateUnit reads the rate unit saved for kind, defaulting to BPM.
func LoadRateUnit(ctx context.Context, repo Repository, kind model.Kind) (model.RateUnit, error) {
	key := RateUnitKey(kind)
	v, ok, err := repo.Get(ctx, key)
	if err != nil {
		return model.RateBPM, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if ok {
		if unit, valid := model.ParseRateUnit(v); valid {
			return unit, nil
		}
	}
	return model.RateBPM, nil
}

// SaveKindRateUnit writes the rate unit for kind.
func SaveKindRateUnit(ctx context.Context, repo Repository, kind model.Kind, unit model.RateUnit) error {
	return repo.Set(ctx, RateUnitKey(kind), string(unit))
}

// ResetKind deletes the preferences belonging to kind.
func ResetKind(ctx context.Context, repo Repository, kind model.Kind) error {
	if kind == model.KindTimed {
		return Reset(ctx, repo)
	}
	key := RateUnitKey(kind)
	if err := repo.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// IsFavorite reports whether kind is pinned to the top of the kind list.
func IsFavorite(ctx context.Context, repo Repository, kind model.Kind) (bool, error) {
	key := FavoriteKey(kind)
	v, ok, err := repo.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	b, perr := strconv.ParseBool(v)
	return perr == nil && b, nil
}

// ToggleFavorite flips the favorite flag of kind and returns the new value.
func ToggleFavorite(ctx context.Context, repo Repository, kind model.Kind) (bool, error) {
	fav, err := IsFavorite(ctx, repo, kind)
	if err != nil {
		return false, err
	}
	key := FavoriteKey(kind)
	if fav {
		if err := repo.Delete(ctx, key); err != nil {
			return false, fmt.Errorf("failed to delete %s: %w", key, err)
		}
		return false, nil
	}
	if err := repo.Set(ctx, key, "true"); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", key, err)
	}
	return true, nil
}

// SortBy orders the kind list.
type SortBy string

const (
	SortByKind SortBy = "kind"
	SortByDate SortBy = "date"
)

// ParseSortBy accepts "kind" or "date" in any case.
func ParseSortBy(v string) (SortBy, bool) {
	switch SortBy(strings.ToLower(strings.TrimSpace(v))) {
	case SortByKind:
		return SortByKind, true
	case SortByDate:
		return SortByDate, true
	default:
		return "", false
	}
}

// KindSort is the saved ordering of the kind list.
type KindSort struct {
	By        SortBy
	Ascending bool
}

// DefaultKindSort lists kinds in their declared order.
func DefaultKindSort() KindSort {
	return KindSort{By: SortByKind, Ascending: true}
}

// LoadKindSort reads the kind list ordering, ignoring unparsable values.
func LoadKindSort(ctx context.Context, repo Repository) (KindSort, error) {
	out := DefaultKindSort()
	if v, ok, err := repo.Get(ctx, KeySortBy); err != nil {
		return out, fmt.Errorf("failed to read %s: %w", KeySortBy, err)
	} else if ok {
		if by, valid := ParseSortBy(v); valid {
			out.By = by
		}
	}
	if v, ok, err := repo.Get(ctx, KeySortAscending); err != nil {
		return out, fmt.Errorf("failed to read %s: %w", KeySortAscending, err)
	} else if ok {
		if b, perr := strconv.ParseBool(v); perr == nil {
			out.Ascending = b
		}
	}
	return out, nil
}

// SaveKindSort writes the kind list ordering.
func SaveKindSort(ctx context.Context, repo Repository, s KindSort) error {
	if err := repo.Set(ctx, KeySortBy, string(s.By)); err != nil {
		return err
	}
	return repo.Set(ctx, KeySortAscending, strconv.FormatBool(s.Ascending))
}
