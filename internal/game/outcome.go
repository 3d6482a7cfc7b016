package game

// OutcomeKind classifies the state of a session after a resolved turn
type OutcomeKind int

const (
	Ongoing OutcomeKind = iota
	Victory
	Draw
)

func (k OutcomeKind) String() string {
	switch k {
	case Victory:
		return "victory"
	case Draw:
		return "draw"
	default:
		return "ongoing"
	}
}

// Outcome is the verdict of the termination detector.
type Outcome struct {
	Kind   OutcomeKind
	Winner *Entrant // set only for Victory
}

// Over reports whether the session must end.
func (o Outcome) Over() bool {
	return o.Kind != Ongoing
}

// Evaluate inspects the arena: one live entrant wins, none is a draw.
func Evaluate(a *Arena) Outcome {
	switch a.RemainingCount() {
	case 0:
		return Outcome{Kind: Draw}
	case 1:
		return Outcome{Kind: Victory, Winner: a.Survivors()[0]}
	default:
		return Outcome{Kind: Ongoing}
	}
}
