package domain

import (
	"fmt"
	"strings"
	"time"

	"tennis-tracker/internal/rating"
)

// Match is one reported result. The winner/loser rating arrays are frozen at
// insert time and are historical facts from then on: they are only ever
// rewritten by the rewind-replay protocol, never recomputed in place.
type Match struct {
	MatchID   string    `json:"matchId"`
	MatchDate time.Time `json:"matchDate"`
	Winners   []Player  `json:"winners"`
	Losers    []Player  `json:"losers"`

	WinnerSet1Score *int `json:"winnerSet1Score"`
	LoserSet1Score  *int `json:"loserSet1Score"`
	WinnerSet2Score *int `json:"winnerSet2Score"`
	LoserSet2Score  *int `json:"loserSet2Score"`
	WinnerSet3Score *int `json:"winnerSet3Score"`
	LoserSet3Score  *int `json:"loserSet3Score"`

	// Frozen at insert, parallel to Winners/Losers. PreviousRatings hold the
	// discipline rating each participant carried into the match; an undo
	// restores exactly those values.
	WinnerMatchRatings    []float64 `json:"winnerMatchRatings"`
	LoserMatchRatings     []float64 `json:"loserMatchRatings"`
	WinnerDynamicRatings  []float64 `json:"winnerDynamicRatings"`
	LoserDynamicRatings   []float64 `json:"loserDynamicRatings"`
	WinnerPreviousRatings []float64 `json:"winnerPreviousRatings"`
	LoserPreviousRatings  []float64 `json:"loserPreviousRatings"`
}

// NewMatch builds an uncommitted match. Scores are positional: winner set 1,
// loser set 1, winner set 2, and so on; trailing sets may be omitted.
func NewMatch(id string, date time.Time, winners, losers []Player, scores []int) Match {
	return Match{
		MatchID:         id,
		MatchDate:       date,
		Winners:         winners,
		Losers:          losers,
		WinnerSet1Score: scoreAt(scores, 0),
		LoserSet1Score:  scoreAt(scores, 1),
		WinnerSet2Score: scoreAt(scores, 2),
		LoserSet2Score:  scoreAt(scores, 3),
		WinnerSet3Score: scoreAt(scores, 4),
		LoserSet3Score:  scoreAt(scores, 5),
	}
}

func scoreAt(scores []int, i int) *int {
	if i < len(scores) {
		s := scores[i]
		return &s
	}
	return nil
}

func (m Match) set1() MatchSet { return MatchSet{m.WinnerSet1Score, m.LoserSet1Score} }
func (m Match) set2() MatchSet { return MatchSet{m.WinnerSet2Score, m.LoserSet2Score} }
func (m Match) set3() MatchSet { return MatchSet{m.WinnerSet3Score, m.LoserSet3Score} }

func (m Match) IsSingles() bool { return len(m.Winners) == 1 && len(m.Losers) == 1 }
func (m Match) IsDoubles() bool { return len(m.Winners) == 2 && len(m.Losers) == 2 }

// HasValidTeams reports whether the match is a legal 1v1 or 2v2 shape. The
// engine rejects anything else before computing ratings.
func (m Match) HasValidTeams() bool { return m.IsSingles() || m.IsDoubles() }

// Discipline a match counts toward, derived purely from team shape.
func (m Match) Discipline() Discipline {
	if m.IsDoubles() {
		return Doubles
	}
	return Singles
}

func (m Match) AllPlayers() []Player {
	return append(append([]Player{}, m.Winners...), m.Losers...)
}

func (m Match) Involves(playerID string) bool {
	for _, p := range m.AllPlayers() {
		if p.PlayerID == playerID {
			return true
		}
	}
	return false
}

func (m Match) Won(playerID string) bool {
	for _, p := range m.Winners {
		if p.PlayerID == playerID {
			return true
		}
	}
	return false
}

// DynamicRatingFor returns the frozen dynamic rating this match assigned to a
// participant.
func (m Match) DynamicRatingFor(playerID string) (float64, bool) {
	for i, p := range m.Winners {
		if p.PlayerID == playerID && i < len(m.WinnerDynamicRatings) {
			return m.WinnerDynamicRatings[i], true
		}
	}
	for i, p := range m.Losers {
		if p.PlayerID == playerID && i < len(m.LoserDynamicRatings) {
			return m.LoserDynamicRatings[i], true
		}
	}
	return 0, false
}

// GameDiff is winner games minus loser games across all played sets; an
// absent set contributes nothing.
func (m Match) GameDiff() int {
	winnerGames := sumScores(m.WinnerSet1Score, m.WinnerSet2Score, m.WinnerSet3Score)
	loserGames := sumScores(m.LoserSet1Score, m.LoserSet2Score, m.LoserSet3Score)
	return winnerGames - loserGames
}

func sumScores(scores ...*int) int {
	total := 0
	for _, s := range scores {
		if s != nil {
			total += *s
		}
	}
	return total
}

// WasCompleted is the tennis validity predicate: two completed sets taken by
// the same side, or a split plus a completed third set.
func (m Match) WasCompleted() bool {
	set1, set2, set3 := m.set1(), m.set2(), m.set3()
	if set1.WasCompleted() && set2.WasCompleted() {
		set1Won, _ := set1.WinnerWon()
		set2Won, _ := set2.WinnerWon()
		if set1Won && set2Won && !set3.WasPlayed() {
			return true
		}
		if set1Won != set2Won && set3.WasSet3Completed() {
			return true
		}
	}
	return false
}

// ScoreText renders the played sets as "6-4, 6-4".
func (m Match) ScoreText() string {
	var parts []string
	for _, set := range []MatchSet{m.set1(), m.set2(), m.set3()} {
		if text, ok := set.ScoreText(); ok {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, ", ")
}

// CompRating is the companionship rating of a doubles pairing: the truncated
// sum of the two teammates' frozen match ratings. Derived, never stored.
func (m Match) CompRating(winners bool) (float64, bool) {
	if !m.IsDoubles() {
		return 0, false
	}
	ratings := m.WinnerMatchRatings
	if !winners {
		ratings = m.LoserMatchRatings
	}
	if len(ratings) != 2 {
		return 0, false
	}
	return rating.Truncate(ratings[0] + ratings[1]), true
}

// MatchSet is one set of a match, seen from the match winner's perspective.
// Either score may be absent when the set was never played.
type MatchSet struct {
	WinnerScore *int
	LoserScore  *int
}

func (s MatchSet) WasPlayed() bool {
	return s.WinnerScore != nil && s.LoserScore != nil
}

// WasCompleted reports whether the set is a valid finished set: won at 6 with
// a margin of two or more, or a 7-5 / 7-6 tiebreak finish.
func (s MatchSet) WasCompleted() bool {
	if !s.WasPlayed() {
		return false
	}
	hi, lo := *s.WinnerScore, *s.LoserScore
	if lo > hi {
		hi, lo = lo, hi
	}
	return (hi == 6 && lo < 5) || (hi == 7 && (lo == 5 || lo == 6))
}

// WasSet3Completed is the looser third-set rule: a regular set, a tiebreak
// finish, or a 1-0 super-tiebreak, and the match winner must have taken it.
func (s MatchSet) WasSet3Completed() bool {
	if !s.WasPlayed() {
		return false
	}
	w, l := *s.WinnerScore, *s.LoserScore
	return (w == 7 && (l == 5 || l == 6)) || (w == 6 && l < 5) || (w == 1 && l == 0)
}

func (s MatchSet) WinnerWon() (bool, bool) {
	if !s.WasPlayed() {
		return false, false
	}
	return *s.WinnerScore > *s.LoserScore, true
}

func (s MatchSet) ScoreText() (string, bool) {
	if !s.WasPlayed() {
		return "", false
	}
	return fmt.Sprintf("%d-%d", *s.WinnerScore, *s.LoserScore), true
}
