// internal/game/errors.go
package game

import "errors"

// Sentinel errors returned by the game aggregate and the Service. Handlers
// decide which of these surface to the user and which are logged and swallowed
// (out-of-order and duplicate actions are intentionally silent to other players).
var (
	// ErrGameNotFound indicates the requested game ID has no stored document.
	ErrGameNotFound = errors.New("game not found")

	// ErrGameAlreadyStarted indicates a join attempt on a non-lobby game by an
	// unrecognized player.
	ErrGameAlreadyStarted = errors.New("game has already started")

	// ErrSetupIncomplete indicates a round start/advance without a persona and
	// action or with answer pools smaller than two options.
	ErrSetupIncomplete = errors.New("round setup incomplete")

	// ErrNotHost indicates a host-only action attempted by a non-host player.
	ErrNotHost = errors.New("only the host may perform this action")

	// ErrNotYourTurn indicates a question submitted by someone other than the
	// current asker.
	ErrNotYourTurn = errors.New("not the current asker")

	// ErrInvalidTransition indicates an action that is not legal in the game's
	// current status.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrDuplicateSubmission indicates a player resubmitting an answer for a
	// phase that already recorded one. The first submission stands.
	ErrDuplicateSubmission = errors.New("answer already submitted for this phase")

	// ErrNoContestants indicates a game start attempt with no non-host players.
	ErrNoContestants = errors.New("at least one contestant is required")

	// ErrPlayerNotFound indicates an action by a player who never joined the game.
	ErrPlayerNotFound = errors.New("player not found in game")

	// ErrPhaseMismatch indicates a deferred write (the generated response)
	// targeting a round/phase that is no longer current. The write is dropped.
	ErrPhaseMismatch = errors.New("target phase is no longer current")

	// ErrVersionConflict indicates a conditional write lost the race: the
	// stored document moved past the version the caller read.
	ErrVersionConflict = errors.New("game document version conflict")
)
