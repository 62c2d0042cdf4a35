package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singlesMatch(scores ...int) Match {
	winner := Player{PlayerID: "w", Name: "Winner"}
	loser := Player{PlayerID: "l", Name: "Loser"}
	return NewMatch("m", time.Now(), []Player{winner}, []Player{loser}, scores)
}

func TestWasCompleted(t *testing.T) {
	tests := []struct {
		name     string
		scores   []int
		expected bool
	}{
		{"straight sets", []int{6, 4, 6, 4}, true},
		{"straight tiebreaks", []int{7, 6, 7, 5}, true},
		{"split with regular third set", []int{5, 7, 6, 4, 6, 2}, true},
		{"split with super tiebreak", []int{5, 7, 6, 4, 1, 0}, true},
		{"split with third set tiebreak", []int{4, 6, 6, 3, 7, 6}, true},
		{"split without a third set", []int{5, 7, 6, 4}, false},
		{"unfinished second set", []int{6, 4, 5, 3}, false},
		{"6-5 is not a finished set", []int{6, 5, 6, 4}, false},
		{"only one set", []int{6, 4}, false},
		{"no scores at all", nil, false},
		{"straight sets with a dangling third", []int{6, 4, 6, 4, 1, 0}, false},
		{"third set not won by the match winner", []int{5, 7, 6, 4, 0, 1}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, singlesMatch(test.scores...).WasCompleted())
		})
	}
}

func TestGameDiff(t *testing.T) {
	tests := []struct {
		name     string
		scores   []int
		expected int
	}{
		{"two comfortable sets", []int{6, 4, 6, 4}, 4},
		{"three set grind", []int{5, 7, 6, 4, 1, 0}, 1},
		{"blowout", []int{6, 0, 6, 0}, 12},
		{"partial scores", []int{6, 4}, 2},
		{"no scores", nil, 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, singlesMatch(test.scores...).GameDiff())
		})
	}
}

func TestScoreText(t *testing.T) {
	assert.Equal(t, "6-4, 6-4", singlesMatch(6, 4, 6, 4).ScoreText())
	assert.Equal(t, "5-7, 6-4, 1-0", singlesMatch(5, 7, 6, 4, 1, 0).ScoreText())
	assert.Equal(t, "6-4", singlesMatch(6, 4).ScoreText())
	assert.Equal(t, "", singlesMatch().ScoreText())
}

func TestDiscipline(t *testing.T) {
	p := func(id string) Player { return Player{PlayerID: id} }

	singles := NewMatch("m1", time.Now(), []Player{p("a")}, []Player{p("b")}, nil)
	assert.True(t, singles.IsSingles())
	assert.Equal(t, Singles, singles.Discipline())

	doubles := NewMatch("m2", time.Now(), []Player{p("a"), p("b")}, []Player{p("c"), p("d")}, nil)
	assert.True(t, doubles.IsDoubles())
	assert.Equal(t, Doubles, doubles.Discipline())

	lopsided := NewMatch("m3", time.Now(), []Player{p("a"), p("b")}, []Player{p("c")}, nil)
	assert.False(t, lopsided.HasValidTeams())
}

func TestDynamicRatingFor(t *testing.T) {
	m := singlesMatch(6, 4, 6, 4)
	m.WinnerDynamicRatings = []float64{4.44}
	m.LoserDynamicRatings = []float64{4.45}

	got, ok := m.DynamicRatingFor("w")
	require.True(t, ok)
	assert.InDelta(t, 4.44, got, 1e-9)

	got, ok = m.DynamicRatingFor("l")
	require.True(t, ok)
	assert.InDelta(t, 4.45, got, 1e-9)

	_, ok = m.DynamicRatingFor("stranger")
	assert.False(t, ok)
}

func TestCompRating(t *testing.T) {
	p := func(id string) Player { return Player{PlayerID: id} }
	m := NewMatch("m", time.Now(), []Player{p("a"), p("b")}, []Player{p("c"), p("d")}, []int{6, 1})
	m.WinnerMatchRatings = []float64{4.34, 4.35}
	m.LoserMatchRatings = []float64{3.73, 3.74}

	got, ok := m.CompRating(true)
	require.True(t, ok)
	assert.InDelta(t, 8.69, got, 1e-9)

	got, ok = m.CompRating(false)
	require.True(t, ok)
	assert.InDelta(t, 7.47, got, 1e-9)

	_, ok = singlesMatch(6, 4, 6, 4).CompRating(true)
	assert.False(t, ok)
}
