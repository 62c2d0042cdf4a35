package domain

// Discipline is one of the two independent rating tracks a player carries.
type Discipline string

const (
	Singles Discipline = "singles"
	Doubles Discipline = "doubles"
)

type Player struct {
	PlayerID             string  `json:"playerId"`
	Name                 string  `json:"name"`
	SinglesRating        float64 `json:"singlesRating"`
	DoublesRating        float64 `json:"doublesRating"`
	OnCurrentTeam        bool    `json:"onCurrentTeam"`
	InitialSinglesRating float64 `json:"initialSinglesRating"`
	InitialDoublesRating float64 `json:"initialDoublesRating"`
}

func (p Player) Rating(d Discipline) float64 {
	if d == Doubles {
		return p.DoublesRating
	}
	return p.SinglesRating
}

func (p *Player) SetRating(d Discipline, value float64) {
	if d == Doubles {
		p.DoublesRating = value
		return
	}
	p.SinglesRating = value
}
