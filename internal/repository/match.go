package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"tennis-tracker/internal/constants"
	"tennis-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type MatchRepository struct {
	store  *BlobStore
	logger zerolog.Logger
}

func NewMatchRepository(store *BlobStore, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{store: store, logger: logger}
}

// LoadAll returns every persisted match, always sorted descending by match
// date (most recent first). Callers throughout rely on that ordering. Absent
// or corrupt data loads as an empty ledger.
func (r *MatchRepository) LoadAll(ctx context.Context) []domain.Match {
	data, err := r.store.Get(ctx, constants.MatchesKey)
	if err != nil || data == nil {
		return []domain.Match{}
	}

	var matches []domain.Match
	if err := json.Unmarshal(data, &matches); err != nil {
		r.logger.Warn().Err(err).Msg("matches blob is corrupt, treating as empty")
		return []domain.Match{}
	}
	SortByDateDesc(matches)
	return matches
}

// SaveAll persists the full ledger, replacing whatever was stored before. The
// ledger is normalized to descending date order on the way in.
func (r *MatchRepository) SaveAll(ctx context.Context, matches []domain.Match) error {
	SortByDateDesc(matches)
	data, err := json.Marshal(matches)
	if err != nil {
		return fmt.Errorf("failed to marshal matches: %w", err)
	}
	return r.store.Put(ctx, constants.MatchesKey, data)
}

func SortByDateDesc(matches []domain.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchDate.After(matches[j].MatchDate)
	})
}

// PriorRatings collects a player's frozen dynamic ratings from matches
// strictly before the given date in the given discipline, most recent first,
// capped at limit. This derived window is the authoritative rating history;
// nothing is stored on the player.
func PriorRatings(matches []domain.Match, playerID string, d domain.Discipline, before time.Time, limit int) []float64 {
	var ratings []float64
	for _, m := range matches {
		if len(ratings) == limit {
			break
		}
		if !m.MatchDate.Before(before) || m.Discipline() != d || !m.Involves(playerID) {
			continue
		}
		if dynamic, ok := m.DynamicRatingFor(playerID); ok {
			ratings = append(ratings, dynamic)
		}
	}
	return ratings
}
