// Package player describes the people taking part in sessions
package player

// DefaultRating is used for a mode the player has no rating in
const DefaultRating = 1500

// Player is a participant. Identity is stable across reconnects.
type Player struct {
	Identity    string         `json:"identity"`
	DisplayName string         `json:"displayName"`
	Ratings     map[string]int `json:"ratings"`
}

// Rating returns the player's rating for mode, falling back to fallback
func (p Player) Rating(mode string, fallback int) int {
	if r, ok := p.Ratings[mode]; ok {
		return r
	}

	return fallback
}

// Name returns the display name, or the identity when none was given
func (p Player) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}

	return p.Identity
}
