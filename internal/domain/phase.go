package domain

// Phase is one half of a pomodoro cycle.
type Phase string

const (
	PhaseWorking Phase = "working"
	PhaseBreak   Phase = "break"
)

// Next returns the phase that follows p.
func (p Phase) Next() Phase {
	if p == PhaseWorking {
		return PhaseBreak
	}
	return PhaseWorking
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	return p == PhaseWorking || p == PhaseBreak
}

func (p Phase) String() string {
	return string(p)
}
