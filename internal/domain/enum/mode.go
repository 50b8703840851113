package enum

// Mode is the terminal's connectivity state.
type Mode int32

const (
	ModeOffline Mode = iota
	ModeOnline
)

// String returns the string representation of the mode
func (m Mode) String() string {
	if m == ModeOnline {
		return "online"
	}
	return "offline"
}
