package domain

import "time"

// Command is the symbolic button name requested on the command line.
type Command string

const (
	CommandOn       Command = "on"
	CommandOff      Command = "off"
	CommandLightMin Command = "light_min"
	CommandLightMax Command = "light_max"
)

// DefaultRampCommands are the brightness commands that only step the level
// by one increment per pulse.
var DefaultRampCommands = []Command{CommandLightMin, CommandLightMax}

func (c Command) String() string {
	return string(c)
}

// RequiresPower reports whether the device must be switched on before the
// command is sent. Turning the device off must not power it up first.
func (c Command) RequiresPower() bool {
	return c != CommandOff
}

// Step is one entry of a dispatch plan: Code sent Repeat times, waiting
// Interval after each send when Interval is set.
type Step struct {
	Code     Command
	Repeat   int
	Interval time.Duration
}

// Sends returns the number of transmissions the step performs.
func (s Step) Sends() int {
	if s.Repeat < 1 {
		return 1
	}
	return s.Repeat
}
