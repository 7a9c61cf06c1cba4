// internal/game/turns.go
package game

// NextAsker picks the contestant whose turn it is to ask the next question.
// askerIDs is the non-host roster in stable join order. If current is empty or
// no longer in the roster, the rotation restarts at index 0; otherwise the next
// index wraps around. An empty roster yields "" — callers guard against that
// before starting a round, and players are never removed mid-game, so the
// roster cannot shrink to empty once play begins.
func NextAsker(askerIDs []string, current string) string {
	if len(askerIDs) == 0 {
		return ""
	}

	idx := -1
	for i, id := range askerIDs {
		if id == current {
			idx = i
			break
		}
	}
	if idx == -1 {
		return askerIDs[0]
	}
	return askerIDs[(idx+1)%len(askerIDs)]
}
