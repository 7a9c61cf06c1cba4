// internal/game/scoring.go
package game

// Point values awarded when a phase is scored.
const (
	PointsBothCorrect = 100
	PointsOneCorrect  = 25
	PointsNoneCorrect = -10
)

// Score compares a contestant's submission against the round's correct answer
// and returns the point delta: +100 when both the persona and the action match,
// +25 when exactly one matches, -10 when neither does.
func Score(sub, correct Submission) int {
	personaCorrect := sub.Persona == correct.Persona
	actionCorrect := sub.Action == correct.Action

	switch {
	case personaCorrect && actionCorrect:
		return PointsBothCorrect
	case personaCorrect || actionCorrect:
		return PointsOneCorrect
	default:
		return PointsNoneCorrect
	}
}
