// Package rating holds the pure numeric pieces of the rating system: the
// match-rating formula, the rolling-average smoothing, and the two-stage
// truncation rule. Nothing here touches storage.
package rating

import "math"

// Config carries the tunable constants of the rating formula. The values are
// injected into the match engine so tests can pin alternate constants.
type Config struct {
	// WinnerGameValue and LoserGameValue convert a game differential into a
	// rating adjustment. They are deliberately asymmetric: winning by N games
	// boosts more than losing by N games penalizes.
	WinnerGameValue float64
	LoserGameValue  float64

	// HistoryWindow caps how many prior dynamic ratings feed the smoothing
	// average.
	HistoryWindow int
}

func DefaultConfig() Config {
	return Config{
		WinnerGameValue: 0.06,
		LoserGameValue:  0.05,
		HistoryWindow:   3,
	}
}

// Diff converts a game differential into the rating adjustment for one side of
// a match. The differential is winner games minus loser games, always from the
// winner's point of view.
func (c Config) Diff(gameDiff int, won bool) float64 {
	if won {
		return float64(gameDiff) * c.WinnerGameValue
	}
	return float64(gameDiff) * -c.LoserGameValue
}

// MatchRating is the rating a single match implies a player should have: the
// opponents' combined rating adjusted by the game differential, minus the
// contribution of any teammates so each partner's rating is isolated.
func MatchRating(opponentRatings []float64, diff float64, teammateRatings []float64) float64 {
	teamImplied := sum(opponentRatings) + diff
	return teamImplied - sum(teammateRatings)
}

// DynamicRating smooths a match rating against the player's most recent prior
// ratings. With no history the result is the match rating itself.
func DynamicRating(matchRating float64, previous []float64) float64 {
	all := make([]float64, 0, len(previous)+1)
	all = append(all, previous...)
	all = append(all, matchRating)
	return sum(all) / float64(len(all))
}

// Truncate rounds to three decimal places (half away from zero), then
// truncates toward zero to two. The two stages avoid the artifacts of naive
// two-decimal rounding and every stored rating passes through here.
func Truncate(v float64) float64 {
	return math.Trunc(math.Round(v*1000)/10) / 100
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
