package service

import (
	"context"
	"testing"

	"tennis-tracker/internal/domain"
	"tennis-tracker/internal/rating"
	"tennis-tracker/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlayerService(t *testing.T) (*PlayerService, *MatchService, *repository.PlayerRepository) {
	t.Helper()
	players, matches := newTestRepos(t)
	engine := NewMatchService(players, matches, rating.DefaultConfig(), zerolog.Nop())
	return NewPlayerService(players, matches, rating.DefaultConfig(), zerolog.Nop()), engine, players
}

func TestPlayerCreate(t *testing.T) {
	ctx := context.Background()
	svc, _, repo := newTestPlayerService(t)

	created, err := svc.Create(ctx, "Alice", 4.65, 4.00, true)
	require.NoError(t, err)
	assert.NotEmpty(t, created.PlayerID)
	assert.InDelta(t, 4.65, created.InitialSinglesRating, 1e-9)
	assert.InDelta(t, 4.00, created.InitialDoublesRating, 1e-9)
	assert.True(t, created.OnCurrentTeam)

	loaded, err := repo.Find(ctx, created.PlayerID)
	require.NoError(t, err)
	assert.Equal(t, created, loaded)
}

func TestPlayerSummaries(t *testing.T) {
	ctx := context.Background()
	svc, engine, repo := newTestPlayerService(t)
	seedPlayers(t, repo,
		domain.Player{PlayerID: "p1", Name: "Alice", SinglesRating: 4.65},
		domain.Player{PlayerID: "p2", Name: "Bob", SinglesRating: 4.20},
		domain.Player{PlayerID: "p3", Name: "Carol", SinglesRating: 3.50},
	)
	reportSequence(t, engine)

	summaries := svc.Summaries(ctx)
	require.Len(t, summaries, 3)
	byID := make(map[string]PlayerSummary)
	for _, s := range summaries {
		byID[s.PlayerID] = s
	}

	assert.Equal(t, 2, byID["p1"].Wins)
	assert.Equal(t, 1, byID["p1"].Losses)
	assert.Equal(t, 1, byID["p2"].Wins)
	assert.Equal(t, 2, byID["p2"].Losses)
	assert.Equal(t, 0, byID["p3"].Wins)
	assert.Equal(t, 0, byID["p3"].Losses)

	// newest first, straight off the frozen ledger
	assert.Equal(t, []float64{4.42, 4.47, 4.44}, byID["p1"].RecentSinglesRatings)
	assert.Equal(t, []float64{4.46, 4.42, 4.45}, byID["p2"].RecentSinglesRatings)
	assert.Empty(t, byID["p1"].RecentDoublesRatings)
}

func TestPlayerDeleteGuard(t *testing.T) {
	ctx := context.Background()
	svc, engine, repo := newTestPlayerService(t)
	seedPlayers(t, repo,
		domain.Player{PlayerID: "p1", Name: "Alice", SinglesRating: 4.65},
		domain.Player{PlayerID: "p2", Name: "Bob", SinglesRating: 4.20},
		domain.Player{PlayerID: "p3", Name: "Carol"},
	)
	reportSequence(t, engine)

	err := svc.Delete(ctx, "p1")
	assert.ErrorIs(t, err, ErrPlayerHasMatches)

	require.NoError(t, svc.Delete(ctx, "p3"))
	_, err = repo.Find(ctx, "p3")
	assert.ErrorIs(t, err, repository.ErrPlayerNotFound)

	err = svc.Delete(ctx, "ghost")
	assert.ErrorIs(t, err, repository.ErrPlayerNotFound)
}

func TestPlayerUpdate(t *testing.T) {
	ctx := context.Background()
	svc, _, repo := newTestPlayerService(t)
	seedPlayers(t, repo, domain.Player{PlayerID: "p1", Name: "Alice", SinglesRating: 4.65})

	require.NoError(t, svc.Update(ctx, domain.Player{PlayerID: "p1", Name: "Alicia", SinglesRating: 4.65}))
	loaded, err := repo.Find(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Alicia", loaded.Name)

	err = svc.Update(ctx, domain.Player{PlayerID: "ghost"})
	assert.ErrorIs(t, err, repository.ErrPlayerNotFound)
}

func TestCompanionships(t *testing.T) {
	ctx := context.Background()
	svc, engine, repo := newTestPlayerService(t)
	seedPlayers(t, repo,
		domain.Player{PlayerID: "a", Name: "Ann", DoublesRating: 4.00},
		domain.Player{PlayerID: "b", Name: "Ben", DoublesRating: 4.00},
		domain.Player{PlayerID: "c", Name: "Cal", DoublesRating: 4.00},
		domain.Player{PlayerID: "e", Name: "Eve", DoublesRating: 4.00},
		domain.Player{PlayerID: "f", Name: "Fay", DoublesRating: 4.00},
	)

	report := func(day int, winners, losers []string) {
		t.Helper()
		_, err := engine.Report(ctx, MatchProposal{
			Date:      testDay.AddDate(0, 0, day),
			WinnerIDs: winners,
			LoserIDs:  losers,
			Scores:    []int{6, 1},
		})
		require.NoError(t, err)
	}
	report(0, []string{"a", "b"}, []string{"e", "f"})
	report(1, []string{"a", "b"}, []string{"e", "f"})
	report(2, []string{"a", "c"}, []string{"e", "f"})

	all := svc.Companionships(ctx, "a", 1)
	require.Len(t, all, 2)
	assert.Equal(t, "c", all[0].Partner.PlayerID)
	assert.Equal(t, 1, all[0].MatchesPlayed)
	assert.InDelta(t, 9.38, all[0].AverageRating, 1e-9)
	assert.Equal(t, "b", all[1].Partner.PlayerID)
	assert.Equal(t, 2, all[1].MatchesPlayed)
	assert.InDelta(t, 7.80, all[1].AverageRating, 1e-9)

	regulars := svc.Companionships(ctx, "a", 2)
	require.Len(t, regulars, 1)
	assert.Equal(t, "b", regulars[0].Partner.PlayerID)

	assert.Empty(t, svc.Companionships(ctx, "ghost", 1))
}
