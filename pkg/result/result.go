// Package result decides the winner of a finished game and its rating change
package result

import (
	"math"

	"github.com/tecu23/arena-server/internal/color"
)

// K is the rating K-factor
const K = 20

// Cause is why a game ended
type Cause string

// Possible causes
const (
	CauseSurrender Cause = "surrender"
	CauseCheckmate Cause = "checkmate"
	CauseDraw      Cause = "draw"
	CauseTimeout   Cause = "timeout"
)

// Ratings holds each side's rating for the session's mode
type Ratings struct {
	White int
	Black int
}

// Of returns the rating of c
func (r Ratings) Of(c color.Color) int {
	if c == color.White {
		return r.White
	}
	return r.Black
}

// Outcome is the terminal state of a session
type Outcome struct {
	Winner      color.Color // empty on a draw
	Draw        bool
	Cause       Cause
	Detail      string // e.g. the draw method reported by the board
	RatingDelta int
}

// WinnerLabel is the winner color or "draw"
func (o Outcome) WinnerLabel() string {
	if o.Draw {
		return "draw"
	}
	return string(o.Winner)
}

// Loser returns the losing color; empty on a draw
func (o Outcome) Loser() color.Color {
	if o.Draw {
		return ""
	}
	return o.Winner.Opp()
}

// EloDelta is the winner's gain under the logistic expected-score model.
// The loser's adjustment is left to the caller.
func EloDelta(winnerRating, loserRating int) int {
	expected := 1 / (1 + math.Pow(10, float64(loserRating-winnerRating)/400))
	return int(math.Round(K * (1 - expected)))
}

// Surrender ends the game in favour of the opponent of surrendering
func Surrender(surrendering color.Color, r Ratings) Outcome {
	return win(surrendering.Opp(), CauseSurrender, r)
}

// Checkmate ends the game in favour of the side that delivered mate
func Checkmate(winner color.Color, r Ratings) Outcome {
	return win(winner, CauseCheckmate, r)
}

// Timeout ends the game in favour of the side whose clock did not expire
func Timeout(expired color.Color, r Ratings) Outcome {
	return win(expired.Opp(), CauseTimeout, r)
}

// Draw ends the game without a winner and without a rating change
func Draw(method string) Outcome {
	return Outcome{Draw: true, Cause: CauseDraw, Detail: method}
}

func win(winner color.Color, cause Cause, r Ratings) Outcome {
	return Outcome{
		Winner:      winner,
		Cause:       cause,
		RatingDelta: EloDelta(r.Of(winner), r.Of(winner.Opp())),
	}
}
