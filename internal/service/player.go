package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"tennis-tracker/internal/domain"
	"tennis-tracker/internal/rating"
	"tennis-tracker/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrPlayerHasMatches blocks deletion of any player the ledger references;
// committed matches must always be able to re-resolve their participants.
var ErrPlayerHasMatches = errors.New("player is referenced by saved matches")

// PlayerSummary is a player plus everything derived from the ledger: the
// win-loss record across both disciplines and the most recent dynamic ratings
// per discipline. None of it is stored.
type PlayerSummary struct {
	domain.Player
	Wins                 int       `json:"wins"`
	Losses               int       `json:"losses"`
	RecentSinglesRatings []float64 `json:"recentSinglesRatings"`
	RecentDoublesRatings []float64 `json:"recentDoublesRatings"`
}

// Companionship aggregates a player's doubles pairings with one partner.
type Companionship struct {
	Partner       domain.Player `json:"partner"`
	MatchesPlayed int           `json:"matchesPlayed"`
	AverageRating float64       `json:"averageRating"`
}

type PlayerService struct {
	players *repository.PlayerRepository
	matches *repository.MatchRepository
	cfg     rating.Config
	logger  zerolog.Logger
}

func NewPlayerService(players *repository.PlayerRepository, matches *repository.MatchRepository, cfg rating.Config, logger zerolog.Logger) *PlayerService {
	return &PlayerService{players: players, matches: matches, cfg: cfg, logger: logger}
}

// Create adds a player. The ratings given at creation are captured as the
// immutable initial ratings alongside the current ones.
func (s *PlayerService) Create(ctx context.Context, name string, singlesRating, doublesRating float64, onCurrentTeam bool) (domain.Player, error) {
	player := domain.Player{
		PlayerID:             uuid.New().String(),
		Name:                 name,
		SinglesRating:        singlesRating,
		DoublesRating:        doublesRating,
		OnCurrentTeam:        onCurrentTeam,
		InitialSinglesRating: singlesRating,
		InitialDoublesRating: doublesRating,
	}

	players := s.players.LoadAll(ctx)
	if err := s.players.SaveAll(ctx, append(players, player)); err != nil {
		return domain.Player{}, err
	}

	s.logger.Info().
		Str("player_id", player.PlayerID).
		Str("name", name).
		Float64("singles_rating", singlesRating).
		Float64("doubles_rating", doublesRating).
		Msg("player created")
	return player, nil
}

func (s *PlayerService) List(ctx context.Context) []domain.Player {
	return s.players.LoadAll(ctx)
}

func (s *PlayerService) Find(ctx context.Context, playerID string) (domain.Player, error) {
	return s.players.Find(ctx, playerID)
}

// Update replaces a player record by id. Rating fields are normally owned by
// the match engine; this exists for renames, roster changes, and deliberate
// manual corrections.
func (s *PlayerService) Update(ctx context.Context, player domain.Player) error {
	if err := s.players.Update(ctx, player); err != nil {
		return err
	}
	s.logger.Info().Str("player_id", player.PlayerID).Msg("player updated")
	return nil
}

// Delete removes a player, unless any saved match references them.
func (s *PlayerService) Delete(ctx context.Context, playerID string) error {
	for _, m := range s.matches.LoadAll(ctx) {
		if m.Involves(playerID) {
			return fmt.Errorf("%w: %s", ErrPlayerHasMatches, playerID)
		}
	}

	players := s.players.LoadAll(ctx)
	for i, p := range players {
		if p.PlayerID == playerID {
			players = append(players[:i], players[i+1:]...)
			if err := s.players.SaveAll(ctx, players); err != nil {
				return err
			}
			s.logger.Info().Str("player_id", playerID).Msg("player deleted")
			return nil
		}
	}
	return fmt.Errorf("%w: %s", repository.ErrPlayerNotFound, playerID)
}

// Summaries returns every player with their ledger-derived record and recent
// form.
func (s *PlayerService) Summaries(ctx context.Context) []PlayerSummary {
	players := s.players.LoadAll(ctx)
	matches := s.matches.LoadAll(ctx)

	summaries := make([]PlayerSummary, 0, len(players))
	for _, p := range players {
		summary := PlayerSummary{
			Player:               p,
			RecentSinglesRatings: recentRatings(matches, p.PlayerID, domain.Singles, s.cfg.HistoryWindow),
			RecentDoublesRatings: recentRatings(matches, p.PlayerID, domain.Doubles, s.cfg.HistoryWindow),
		}
		for _, m := range matches {
			if !m.Involves(p.PlayerID) {
				continue
			}
			if m.Won(p.PlayerID) {
				summary.Wins++
			} else {
				summary.Losses++
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

// Companionships lists a player's doubles partners with at least minMatches
// shared matches, best average companionship rating first.
func (s *PlayerService) Companionships(ctx context.Context, playerID string, minMatches int) []Companionship {
	type bucket struct {
		partner domain.Player
		total   float64
		count   int
	}
	buckets := make(map[string]*bucket)

	for _, m := range s.matches.LoadAll(ctx) {
		if !m.IsDoubles() || !m.Involves(playerID) {
			continue
		}
		team := m.Winners
		comp, ok := m.CompRating(true)
		if !m.Won(playerID) {
			team = m.Losers
			comp, ok = m.CompRating(false)
		}
		if !ok {
			continue
		}
		for _, mate := range team {
			if mate.PlayerID == playerID {
				continue
			}
			b, exists := buckets[mate.PlayerID]
			if !exists {
				b = &bucket{partner: mate}
				buckets[mate.PlayerID] = b
			}
			b.total += comp
			b.count++
		}
	}

	var companionships []Companionship
	for _, b := range buckets {
		if b.count < minMatches {
			continue
		}
		companionships = append(companionships, Companionship{
			Partner:       b.partner,
			MatchesPlayed: b.count,
			AverageRating: rating.Truncate(b.total / float64(b.count)),
		})
	}
	sort.Slice(companionships, func(i, j int) bool {
		if companionships[i].AverageRating != companionships[j].AverageRating {
			return companionships[i].AverageRating > companionships[j].AverageRating
		}
		return companionships[i].Partner.Name < companionships[j].Partner.Name
	})
	return companionships
}

// recentRatings walks the descending ledger collecting the player's frozen
// dynamic ratings in one discipline, newest first.
func recentRatings(matches []domain.Match, playerID string, d domain.Discipline, limit int) []float64 {
	var ratings []float64
	for _, m := range matches {
		if len(ratings) == limit {
			break
		}
		if m.Discipline() != d || !m.Involves(playerID) {
			continue
		}
		if dynamic, ok := m.DynamicRatingFor(playerID); ok {
			ratings = append(ratings, dynamic)
		}
	}
	return ratings
}
