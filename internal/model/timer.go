package model

// TimerMode is orthogonal to whether the countdown is running.
type TimerMode string

const (
	ModeFocus TimerMode = "FOCUS"
	ModeBreak TimerMode = "BREAK"
	ModeFree  TimerMode = "FREE"
)

// Valid reports whether m is a known mode.
func (m TimerMode) Valid() bool {
	switch m {
	case ModeFocus, ModeBreak, ModeFree:
		return true
	}
	return false
}

// TimerState is the ephemeral countdown state. It is never persisted.
type TimerState struct {
	Minutes     int       `json:"minutes"`
	Seconds     int       `json:"seconds"`
	IsActive    bool      `json:"isActive"`
	Mode        TimerMode `json:"mode"`
	Deliverable string    `json:"deliverable,omitempty"`
}

// Remaining reports the countdown in whole seconds.
func (s TimerState) Remaining() int {
	return s.Minutes*60 + s.Seconds
}
