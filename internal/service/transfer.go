package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"tennis-tracker/internal/api"
	"tennis-tracker/internal/domain"
	"tennis-tracker/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ImportError is the user-reportable "unable to import" failure: the feed
// referenced something the local store cannot resolve. It propagates to the
// caller with its message intact.
type ImportError struct {
	Message string
}

func (e *ImportError) Error() string { return e.Message }

// Snapshot is the exported full-data document: both collections verbatim.
type Snapshot struct {
	Players []domain.Player `json:"players"`
	Matches []domain.Match  `json:"matches"`
}

// legacySnapshot is the hand-maintained feed shape, with players and matches
// in the row formats of the individual feeds.
type legacySnapshot struct {
	Players []api.PlayerRow `json:"players"`
	Matches []api.MatchRow  `json:"matches"`
}

// TransferService moves data in and out of the store. Imported matches go
// through the match engine's normal report path so every rating is computed
// exactly as if the match had been entered by hand.
type TransferService struct {
	feed    *api.FeedClient
	players *repository.PlayerRepository
	matches *repository.MatchRepository
	engine  *MatchService
	logger  zerolog.Logger
}

func NewTransferService(feed *api.FeedClient, players *repository.PlayerRepository, matches *repository.MatchRepository, engine *MatchService, logger zerolog.Logger) *TransferService {
	return &TransferService{feed: feed, players: players, matches: matches, engine: engine, logger: logger}
}

// ImportPlayers appends the players in the remote feed to the store.
func (s *TransferService) ImportPlayers(ctx context.Context, url string) ([]domain.Player, error) {
	rows, err := s.feed.GetPlayers(ctx, url)
	if err != nil {
		return nil, err
	}

	players := s.players.LoadAll(ctx)
	for _, row := range rows {
		players = append(players, playerFromRow(row))
	}
	if err := s.players.SaveAll(ctx, players); err != nil {
		return nil, err
	}

	s.logger.Info().Int("imported", len(rows)).Str("url", url).Msg("players imported")
	return players, nil
}

// ImportMatches inserts the matches in the remote feed through the engine,
// resolving participants against the existing players by name. An unknown
// name aborts the import with a user-reportable error.
func (s *TransferService) ImportMatches(ctx context.Context, url string) ([]domain.Match, error) {
	rows, err := s.feed.GetMatches(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := s.insertRows(ctx, rows); err != nil {
		return nil, err
	}

	s.logger.Info().Int("imported", len(rows)).Str("url", url).Msg("matches imported")
	return s.matches.LoadAll(ctx), nil
}

// ImportAll replaces everything on the device with the remote document. An
// exported snapshot is restored verbatim; the legacy feed shape replaces the
// players, clears the ledger, and re-inserts every match through the engine.
func (s *TransferService) ImportAll(ctx context.Context, url string) error {
	raw, err := s.feed.GetRaw(ctx, url)
	if err != nil {
		return err
	}

	var snapshot Snapshot
	if err := json.Unmarshal(raw, &snapshot); err == nil && isExportedSnapshot(snapshot) {
		if err := s.players.SaveAll(ctx, snapshot.Players); err != nil {
			return err
		}
		if err := s.matches.SaveAll(ctx, snapshot.Matches); err != nil {
			return err
		}
		s.logger.Info().
			Int("players", len(snapshot.Players)).
			Int("matches", len(snapshot.Matches)).
			Msg("snapshot restored")
		return nil
	}

	var legacy legacySnapshot
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return fmt.Errorf("failed to decode import document: %w", err)
	}

	players := make([]domain.Player, 0, len(legacy.Players))
	for _, row := range legacy.Players {
		players = append(players, playerFromRow(row))
	}
	if err := s.players.SaveAll(ctx, players); err != nil {
		return err
	}
	if err := s.matches.SaveAll(ctx, []domain.Match{}); err != nil {
		return err
	}
	if err := s.insertRows(ctx, legacy.Matches); err != nil {
		return err
	}

	s.logger.Info().
		Int("players", len(legacy.Players)).
		Int("matches", len(legacy.Matches)).
		Msg("legacy import completed")
	return nil
}

// Export loads both collections in parallel and returns them as one document.
func (s *TransferService) Export(ctx context.Context) (Snapshot, error) {
	var snapshot Snapshot
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snapshot.Players = s.players.LoadAll(gCtx)
		return nil
	})
	g.Go(func() error {
		snapshot.Matches = s.matches.LoadAll(gCtx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snapshot, nil
}

// ExportCSV writes the ledger as rows of date, participants, and score text.
func (s *TransferService) ExportCSV(ctx context.Context, w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"date", "winner1", "winner2", "loser1", "loser2", "score"}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, m := range s.matches.LoadAll(ctx) {
		record := []string{
			m.MatchDate.Format(time.RFC3339),
			nameAt(m.Winners, 0),
			nameAt(m.Winners, 1),
			nameAt(m.Losers, 0),
			nameAt(m.Losers, 1),
			m.ScoreText(),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func (s *TransferService) insertRows(ctx context.Context, rows []api.MatchRow) error {
	byName := make(map[string]domain.Player)
	for _, p := range s.players.LoadAll(ctx) {
		byName[p.Name] = p
	}

	resolve := func(name string) (string, error) {
		if name == "" {
			return "", nil
		}
		p, ok := byName[name]
		if !ok {
			return "", &ImportError{Message: fmt.Sprintf("Attempting to import %s, but no player found with that name", name)}
		}
		return p.PlayerID, nil
	}

	for _, row := range rows {
		var winnerIDs, loserIDs []string
		for _, name := range []string{row.Winner1, row.Winner2} {
			id, err := resolve(name)
			if err != nil {
				return err
			}
			if id != "" {
				winnerIDs = append(winnerIDs, id)
			}
		}
		for _, name := range []string{row.Loser1, row.Loser2} {
			id, err := resolve(name)
			if err != nil {
				return err
			}
			if id != "" {
				loserIDs = append(loserIDs, id)
			}
		}

		if _, err := s.engine.Report(ctx, MatchProposal{
			WinnerIDs: winnerIDs,
			LoserIDs:  loserIDs,
			Scores:    parseScores(row.Score),
		}); err != nil {
			return err
		}
	}
	return nil
}

func playerFromRow(row api.PlayerRow) domain.Player {
	return domain.Player{
		PlayerID:             uuid.New().String(),
		Name:                 row.Name,
		SinglesRating:        row.SinglesRating,
		DoublesRating:        row.DoublesRating,
		OnCurrentTeam:        strings.EqualFold(row.CurrentTeam, "y"),
		InitialSinglesRating: row.SinglesRating,
		InitialDoublesRating: row.DoublesRating,
	}
}

func nameAt(players []domain.Player, i int) string {
	if i >= len(players) {
		return ""
	}
	return players[i].Name
}

// parseScores turns "6-4, 6-4" into the positional score list the engine
// expects; unparseable fragments count as zero.
func parseScores(text string) []int {
	var scores []int
	for _, set := range strings.Split(text, ",") {
		set = strings.TrimSpace(set)
		if set == "" {
			continue
		}
		for _, part := range strings.Split(set, "-") {
			n, _ := strconv.Atoi(strings.TrimSpace(part))
			scores = append(scores, n)
		}
	}
	return scores
}

// isExportedSnapshot distinguishes the exported document from the legacy feed
// shape: exported players always carry ids.
func isExportedSnapshot(snapshot Snapshot) bool {
	if len(snapshot.Players) == 0 && len(snapshot.Matches) == 0 {
		return false
	}
	for _, p := range snapshot.Players {
		if p.PlayerID == "" {
			return false
		}
	}
	for _, m := range snapshot.Matches {
		if m.MatchID == "" {
			return false
		}
	}
	return true
}
