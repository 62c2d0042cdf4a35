package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"tennis-tracker/internal/constants"
	"tennis-tracker/internal/domain"

	"github.com/rs/zerolog"
)

// ErrPlayerNotFound indicates a lookup by an id the store has never seen.
// Under correct usage this is a caller contract violation, not a user error.
var ErrPlayerNotFound = errors.New("player not found")

type PlayerRepository struct {
	store  *BlobStore
	logger zerolog.Logger
}

func NewPlayerRepository(store *BlobStore, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{store: store, logger: logger}
}

// LoadAll returns every persisted player. An absent or corrupt blob loads as
// an empty collection; it is never surfaced as an error.
func (r *PlayerRepository) LoadAll(ctx context.Context) []domain.Player {
	data, err := r.store.Get(ctx, constants.PlayersKey)
	if err != nil || data == nil {
		return []domain.Player{}
	}

	var players []domain.Player
	if err := json.Unmarshal(data, &players); err != nil {
		r.logger.Warn().Err(err).Msg("players blob is corrupt, treating as empty")
		return []domain.Player{}
	}
	return players
}

// SaveAll persists the full collection, replacing whatever was stored before.
func (r *PlayerRepository) SaveAll(ctx context.Context, players []domain.Player) error {
	data, err := json.Marshal(players)
	if err != nil {
		return fmt.Errorf("failed to marshal players: %w", err)
	}
	return r.store.Put(ctx, constants.PlayersKey, data)
}

// Find re-resolves a possibly stale player to the authoritative current
// record by identity.
func (r *PlayerRepository) Find(ctx context.Context, playerID string) (domain.Player, error) {
	for _, p := range r.LoadAll(ctx) {
		if p.PlayerID == playerID {
			return p, nil
		}
	}
	return domain.Player{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
}

// Update replaces the record matching the player's id and persists the full
// collection.
func (r *PlayerRepository) Update(ctx context.Context, player domain.Player) error {
	players := r.LoadAll(ctx)
	for i := range players {
		if players[i].PlayerID == player.PlayerID {
			players[i] = player
			return r.SaveAll(ctx, players)
		}
	}
	return fmt.Errorf("%w: %s", ErrPlayerNotFound, player.PlayerID)
}
