package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"tennis-tracker/internal/domain"
	"tennis-tracker/internal/rating"
	"tennis-tracker/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrInvalidTeams rejects any match that is not 1v1 or 2v2 between distinct
// players. The UI is responsible for never constructing such a match, so
// hitting this is a caller bug, surfaced as an error rather than a panic.
var ErrInvalidTeams = errors.New("match must be played 1v1 or 2v2 by distinct players")

var ErrMatchNotFound = errors.New("match not found")

// MatchProposal is a match as reported by the caller, before the engine has
// computed or frozen anything. Participants are referenced by id and resolved
// against the authoritative player store.
type MatchProposal struct {
	MatchID   string
	Date      time.Time
	WinnerIDs []string
	LoserIDs  []string

	// Scores are positional: winner set 1, loser set 1, winner set 2, ...
	Scores []int
}

// Progress observes rewind-replay steps. It is purely informational; the
// protocol does not depend on it.
type Progress func(completed, total int)

// MatchService is the match engine: it converts reported results into frozen
// ratings, keeps the ledger ordered, and runs the rewind-replay protocol for
// edits and deletions. The mutex is the serialization boundary around every
// mutating operation; the protocol is not safe under concurrent writers.
type MatchService struct {
	players *repository.PlayerRepository
	matches *repository.MatchRepository
	cfg     rating.Config
	logger  zerolog.Logger
	mu      sync.Mutex
}

func NewMatchService(players *repository.PlayerRepository, matches *repository.MatchRepository, cfg rating.Config, logger zerolog.Logger) *MatchService {
	return &MatchService{players: players, matches: matches, cfg: cfg, logger: logger}
}

// engineState is the in-memory working set for one engine operation: the full
// player collection indexed by id plus the ledger, loaded once and flushed
// once. Observable persistence semantics stay replace-all.
type engineState struct {
	players []domain.Player
	index   map[string]int
	matches []domain.Match
}

func (s *MatchService) loadState(ctx context.Context) *engineState {
	st := &engineState{
		players: s.players.LoadAll(ctx),
		matches: s.matches.LoadAll(ctx),
	}
	st.index = make(map[string]int, len(st.players))
	for i, p := range st.players {
		st.index[p.PlayerID] = i
	}
	return st
}

// flush persists players before the ledger, mirroring the insert contract:
// rating changes land before the match that caused them becomes visible.
func (s *MatchService) flush(ctx context.Context, st *engineState) error {
	if err := s.players.SaveAll(ctx, st.players); err != nil {
		return fmt.Errorf("failed to save players: %w", err)
	}
	if err := s.matches.SaveAll(ctx, st.matches); err != nil {
		return fmt.Errorf("failed to save matches: %w", err)
	}
	return nil
}

func (st *engineState) player(id string) (domain.Player, error) {
	if i, ok := st.index[id]; ok {
		return st.players[i], nil
	}
	return domain.Player{}, fmt.Errorf("%w: %s", repository.ErrPlayerNotFound, id)
}

func (st *engineState) resolve(ids []string) ([]domain.Player, error) {
	players := make([]domain.Player, 0, len(ids))
	for _, id := range ids {
		p, err := st.player(id)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, nil
}

func (st *engineState) setRating(id string, d domain.Discipline, value float64) {
	if i, ok := st.index[id]; ok {
		st.players[i].SetRating(d, value)
	}
}

func (st *engineState) removeMatch(matchID string) {
	for i, m := range st.matches {
		if m.MatchID == matchID {
			st.matches = append(st.matches[:i], st.matches[i+1:]...)
			return
		}
	}
}

// List returns the committed ledger, most recent first.
func (s *MatchService) List(ctx context.Context) []domain.Match {
	return s.matches.LoadAll(ctx)
}

func (s *MatchService) Get(ctx context.Context, matchID string) (domain.Match, error) {
	for _, m := range s.matches.LoadAll(ctx) {
		if m.MatchID == matchID {
			return m, nil
		}
	}
	return domain.Match{}, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
}

// Report commits a proposed match: ratings are computed and frozen, applied
// to the players, and only then does the match enter the ledger.
func (s *MatchService) Report(ctx context.Context, proposal MatchProposal) (domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.loadState(ctx)
	match, err := s.insert(st, proposal)
	if err != nil {
		return domain.Match{}, err
	}
	if err := s.flush(ctx, st); err != nil {
		return domain.Match{}, err
	}

	s.logger.Info().
		Str("match_id", match.MatchID).
		Str("discipline", string(match.Discipline())).
		Str("score", match.ScoreText()).
		Msg("match reported")
	return match, nil
}

// PreviewChanges renders the per-player rating changes a proposal would cause,
// without committing anything.
func (s *MatchService) PreviewChanges(ctx context.Context, proposal MatchProposal) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.loadState(ctx)
	before := make(map[string]float64)
	match, err := s.buildMatch(st, proposal)
	if err != nil {
		return "", err
	}
	for _, p := range match.AllPlayers() {
		before[p.PlayerID] = p.Rating(match.Discipline())
	}
	if err := s.compute(st, &match); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Changes:")
	for _, p := range match.AllPlayers() {
		b.WriteString(fmt.Sprintf("\n- %s: %s -> %s",
			p.Name, formatRating(before[p.PlayerID]), formatRating(p.Rating(match.Discipline()))))
	}
	return b.String(), nil
}

// Delete removes a match via the rewind-replay protocol: every strictly later
// match is undone most-recent-first, the target is undone, and the later
// matches are replayed oldest-first against the resulting state.
func (s *MatchService) Delete(ctx context.Context, matchID string, progress Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.loadState(ctx)
	if _, err := s.rewind(st, matchID, nil, progress); err != nil {
		return err
	}
	if err := s.flush(ctx, st); err != nil {
		return err
	}

	s.logger.Info().Str("match_id", matchID).Msg("match deleted")
	return nil
}

// Edit is delete with a mutation step: the target and all later matches are
// undone, the edited match is inserted in the target's chronological slot,
// and the later matches are replayed.
func (s *MatchService) Edit(ctx context.Context, matchID string, winnerIDs, loserIDs []string, scores []int, progress Progress) (domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.loadState(ctx)
	var edited domain.Match
	mutate := func(st *engineState, original domain.Match) error {
		var err error
		edited, err = s.insert(st, MatchProposal{
			MatchID:   original.MatchID,
			Date:      original.MatchDate,
			WinnerIDs: winnerIDs,
			LoserIDs:  loserIDs,
			Scores:    scores,
		})
		return err
	}
	if _, err := s.rewind(st, matchID, mutate, progress); err != nil {
		return domain.Match{}, err
	}
	if err := s.flush(ctx, st); err != nil {
		return domain.Match{}, err
	}

	s.logger.Info().Str("match_id", matchID).Msg("match edited")
	return edited, nil
}

// rewind is the shared undo-mutate-replay core. Undo order is strictly
// reverse-chronological so each undo reverts against the ratings that were in
// place when that match was committed; replay mirrors it oldest-first through
// the normal insert path, recomputing every frozen rating from scratch.
func (s *MatchService) rewind(st *engineState, matchID string, mutate func(*engineState, domain.Match) error, progress Progress) (domain.Match, error) {
	var target domain.Match
	found := false
	for _, m := range st.matches {
		if m.MatchID == matchID {
			target = m
			found = true
			break
		}
	}
	if !found {
		return domain.Match{}, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}

	// st.matches is sorted most recent first, so later stays in undo order.
	var later []domain.Match
	for _, m := range st.matches {
		if m.MatchDate.After(target.MatchDate) {
			later = append(later, m)
		}
	}

	total := 2*len(later) + 2
	completed := 0
	step := func() {
		completed++
		if progress != nil {
			progress(completed, total)
		}
	}

	s.logger.Debug().
		Str("match_id", matchID).
		Int("later_matches", len(later)).
		Msg("rewinding ledger")

	for _, m := range later {
		s.undo(st, m)
		step()
	}
	s.undo(st, target)
	step()

	if mutate != nil {
		if err := mutate(st, target); err != nil {
			return domain.Match{}, err
		}
	}
	step()

	for i := len(later) - 1; i >= 0; i-- {
		if _, err := s.replay(st, later[i]); err != nil {
			return domain.Match{}, err
		}
		step()
	}
	return target, nil
}

// undo removes a match from the working ledger and reverts each participant's
// discipline rating to the frozen value they carried into the match. This is
// a strict restore, not a recomputation.
func (s *MatchService) undo(st *engineState, m domain.Match) {
	st.removeMatch(m.MatchID)
	d := m.Discipline()
	for i, p := range m.Winners {
		if i < len(m.WinnerPreviousRatings) {
			st.setRating(p.PlayerID, d, m.WinnerPreviousRatings[i])
		}
	}
	for i, p := range m.Losers {
		if i < len(m.LoserPreviousRatings) {
			st.setRating(p.PlayerID, d, m.LoserPreviousRatings[i])
		}
	}
}

// replay reconstructs an undone match from its persisted ids and scores and
// re-inserts it against the current state.
func (s *MatchService) replay(st *engineState, old domain.Match) (domain.Match, error) {
	winners, err := st.resolve(playerIDs(old.Winners))
	if err != nil {
		return domain.Match{}, err
	}
	losers, err := st.resolve(playerIDs(old.Losers))
	if err != nil {
		return domain.Match{}, err
	}

	m := old
	m.Winners, m.Losers = winners, losers
	m.WinnerMatchRatings, m.LoserMatchRatings = nil, nil
	m.WinnerDynamicRatings, m.LoserDynamicRatings = nil, nil
	m.WinnerPreviousRatings, m.LoserPreviousRatings = nil, nil
	if err := s.commit(st, &m); err != nil {
		return domain.Match{}, err
	}
	return m, nil
}

func (s *MatchService) insert(st *engineState, proposal MatchProposal) (domain.Match, error) {
	match, err := s.buildMatch(st, proposal)
	if err != nil {
		return domain.Match{}, err
	}
	if err := s.commit(st, &match); err != nil {
		return domain.Match{}, err
	}
	return match, nil
}

func (s *MatchService) buildMatch(st *engineState, proposal MatchProposal) (domain.Match, error) {
	winners, err := st.resolve(proposal.WinnerIDs)
	if err != nil {
		return domain.Match{}, err
	}
	losers, err := st.resolve(proposal.LoserIDs)
	if err != nil {
		return domain.Match{}, err
	}

	id := proposal.MatchID
	if id == "" {
		id = uuid.New().String()
	}
	date := proposal.Date
	if date.IsZero() {
		date = time.Now()
	}

	match := domain.NewMatch(id, date, winners, losers, proposal.Scores)
	if !match.HasValidTeams() || !distinctParticipants(match) {
		return domain.Match{}, ErrInvalidTeams
	}
	return match, nil
}

// commit computes and freezes every participant's ratings, applies the new
// dynamic ratings to the players, and only then appends the match to the
// working ledger, so a match never pollutes its own history window.
func (s *MatchService) commit(st *engineState, m *domain.Match) error {
	if err := s.compute(st, m); err != nil {
		return err
	}
	st.matches = append(st.matches, *m)
	repository.SortByDateDesc(st.matches)
	return nil
}

func (s *MatchService) compute(st *engineState, m *domain.Match) error {
	if !m.HasValidTeams() {
		return ErrInvalidTeams
	}
	d := m.Discipline()
	gameDiff := m.GameDiff()

	// All match ratings derive from the ratings in place before this match,
	// so both sides are computed from a snapshot before anything is applied.
	current := make(map[string]float64)
	for _, p := range m.AllPlayers() {
		resolved, err := st.player(p.PlayerID)
		if err != nil {
			return err
		}
		current[p.PlayerID] = resolved.Rating(d)
	}

	m.WinnerMatchRatings, m.WinnerDynamicRatings, m.WinnerPreviousRatings = s.computeSide(st, m, m.Winners, m.Losers, d, gameDiff, true, current)
	m.LoserMatchRatings, m.LoserDynamicRatings, m.LoserPreviousRatings = s.computeSide(st, m, m.Losers, m.Winners, d, gameDiff, false, current)

	for i := range m.Winners {
		m.Winners[i].SetRating(d, m.WinnerDynamicRatings[i])
		st.setRating(m.Winners[i].PlayerID, d, m.WinnerDynamicRatings[i])
	}
	for i := range m.Losers {
		m.Losers[i].SetRating(d, m.LoserDynamicRatings[i])
		st.setRating(m.Losers[i].PlayerID, d, m.LoserDynamicRatings[i])
	}
	return nil
}

func (s *MatchService) computeSide(st *engineState, m *domain.Match, team, opponents []domain.Player, d domain.Discipline, gameDiff int, won bool, current map[string]float64) (matchRatings, dynamicRatings, previousRatings []float64) {
	opponentRatings := make([]float64, len(opponents))
	for i, p := range opponents {
		opponentRatings[i] = current[p.PlayerID]
	}
	diff := s.cfg.Diff(gameDiff, won)

	for i, p := range team {
		var teammateRatings []float64
		for j, mate := range team {
			if j != i {
				teammateRatings = append(teammateRatings, current[mate.PlayerID])
			}
		}
		matchRating := rating.Truncate(rating.MatchRating(opponentRatings, diff, teammateRatings))
		previous := repository.PriorRatings(st.matches, p.PlayerID, d, m.MatchDate, s.cfg.HistoryWindow)
		dynamic := rating.Truncate(rating.DynamicRating(matchRating, previous))

		matchRatings = append(matchRatings, matchRating)
		dynamicRatings = append(dynamicRatings, dynamic)
		previousRatings = append(previousRatings, current[p.PlayerID])

		s.logger.Debug().
			Str("match_id", m.MatchID).
			Str("player_id", p.PlayerID).
			Str("discipline", string(d)).
			Float64("match_rating", matchRating).
			Float64("dynamic_rating", dynamic).
			Msg("participant rating computed")
	}
	return matchRatings, dynamicRatings, previousRatings
}

func distinctParticipants(m domain.Match) bool {
	seen := make(map[string]bool)
	for _, p := range m.AllPlayers() {
		if seen[p.PlayerID] {
			return false
		}
		seen[p.PlayerID] = true
	}
	return true
}

func playerIDs(players []domain.Player) []string {
	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = p.PlayerID
	}
	return ids
}

func formatRating(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
