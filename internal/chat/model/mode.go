package model

import "fmt"

// Mode selects how a query is answered.
type Mode string

const (
	// ModeTeam runs intent_parser, weather_agent and formatter in turn.
	ModeTeam Mode = "team"
	// ModeSingle answers with the single weather_bot stage.
	ModeSingle Mode = "single"
)

// ParseMode maps an empty string to ModeTeam.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeTeam:
		return ModeTeam, nil
	case ModeSingle:
		return ModeSingle, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}
