// internal/game/game.go
package game

import (
	"math/rand"
	"sort"
)

// Status is the lifecycle state of a game session.
type Status string

const (
	StatusLobby         Status = "lobby"
	StatusAsking        Status = "asking"         // the current asker is composing a question
	StatusResponding    Status = "responding"     // the model is generating a response
	StatusAnswering     Status = "answering"      // contestants are submitting guesses
	StatusScoring       Status = "scoring"        // phase scores are on display
	StatusRoundFinished Status = "round-finished" // waiting for the host to start the next round
	StatusGameFinished  Status = "game-finished"  // terminal
)

// Settings holds optional per-game rules.
type Settings struct {
	// MaxPhasesPerRound caps how many phases a round may run before it is
	// forced to finish even without a correct guess. 0 means unlimited.
	MaxPhasesPerRound int `json:"maxPhasesPerRound"`
}

// Game is the aggregate document for one session. It is persisted whole after
// every transition; Version is bumped by the store on each successful write
// and conditional writes reject stale snapshots.
type Game struct {
	ID                 string             `json:"id"`
	HostID             string             `json:"hostId"`
	HostName           string             `json:"hostName"`
	Status             Status             `json:"status"`
	Players            map[string]*Player `json:"players"`
	Rounds             []*Round           `json:"rounds"`
	CurrentRoundNumber int                `json:"currentRoundNumber"`
	CurrentPhaseNumber int                `json:"currentPhaseNumber"`
	CurrentAskerID     string             `json:"currentAskerId,omitempty"`
	Settings           Settings           `json:"settings"`
	Version            int64              `json:"version"`
}

const gameIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewGameID returns a random 6-character uppercase alphanumeric game code.
// Collisions are not checked; the keyspace is large enough for party-scale use.
func NewGameID() string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = gameIDAlphabet[rand.Intn(len(gameIDAlphabet))]
	}
	return string(b)
}

// New creates a lobby-state game with the host as its only participant.
func New(hostID, hostName string) *Game {
	return &Game{
		ID:       NewGameID(),
		HostID:   hostID,
		HostName: hostName,
		Status:   StatusLobby,
		Players: map[string]*Player{
			hostID: {ID: hostID, Name: hostName, IsHost: true},
		},
	}
}

// AddPlayer joins a player to the lobby. Re-joining with a known ID is a
// no-op (reconnect), even after the game has started; unknown players are
// rejected once the game leaves the lobby.
func (g *Game) AddPlayer(id, name string) error {
	if _, ok := g.Players[id]; ok {
		return nil
	}
	if g.Status != StatusLobby {
		return ErrGameAlreadyStarted
	}
	g.Players[id] = &Player{ID: id, Name: name, JoinOrder: len(g.Players)}
	return nil
}

// ContestantIDs returns the non-host player IDs in stable join order. This is
// the asker rotation; the host never appears in it.
func (g *Game) ContestantIDs() []string {
	var contestants []*Player
	for _, p := range g.Players {
		if !p.IsHost {
			contestants = append(contestants, p)
		}
	}
	sort.Slice(contestants, func(i, j int) bool {
		return contestants[i].JoinOrder < contestants[j].JoinOrder
	})
	ids := make([]string, len(contestants))
	for i, p := range contestants {
		ids[i] = p.ID
	}
	return ids
}

// CurrentRound returns the last round, or nil while in the lobby.
func (g *Game) CurrentRound() *Round {
	if len(g.Rounds) == 0 {
		return nil
	}
	return g.Rounds[len(g.Rounds)-1]
}

// CurrentPhase returns the current round's last phase, or nil while in the lobby.
func (g *Game) CurrentPhase() *Phase {
	r := g.CurrentRound()
	if r == nil {
		return nil
	}
	return r.CurrentPhase()
}

// Finished reports whether the game reached its terminal state.
func (g *Game) Finished() bool {
	return g.Status == StatusGameFinished
}

// Start transitions lobby→asking: validates the setup, requires at least one
// contestant, creates round 1 with phase 1 and assigns the first asker.
func (g *Game) Start(setup RoundSetup) error {
	if g.Status != StatusLobby {
		return ErrInvalidTransition
	}
	contestants := g.ContestantIDs()
	if len(contestants) == 0 {
		return ErrNoContestants
	}
	round, err := NewRound(1, setup)
	if err != nil {
		return err
	}

	g.CurrentAskerID = NextAsker(contestants, "")
	round.BeginPhase(g.CurrentAskerID)
	g.Rounds = append(g.Rounds, round)
	g.CurrentRoundNumber = 1
	g.CurrentPhaseNumber = 1
	g.Status = StatusAsking
	return nil
}

// UpdateDraftQuestion replaces the current phase's live question text. Only
// the current asker may edit it, only while the game is asking and the
// question is not yet locked.
func (g *Game) UpdateDraftQuestion(playerID, text string) error {
	if g.Status != StatusAsking {
		return ErrInvalidTransition
	}
	if playerID != g.CurrentAskerID {
		return ErrNotYourTurn
	}
	phase := g.CurrentPhase()
	if phase == nil || phase.QuestionLocked {
		return ErrInvalidTransition
	}
	phase.Question = text
	return nil
}

// LockQuestion transitions asking→responding: the asker finalizes the question
// text, which becomes immutable. The caller is expected to trigger response
// generation out-of-band after persisting this transition.
func (g *Game) LockQuestion(playerID, text string) error {
	if g.Status != StatusAsking {
		return ErrInvalidTransition
	}
	if playerID != g.CurrentAskerID {
		return ErrNotYourTurn
	}
	phase := g.CurrentPhase()
	if phase == nil || phase.QuestionLocked {
		return ErrInvalidTransition
	}
	if text != "" {
		phase.Question = text
	}
	phase.QuestionLocked = true
	g.Status = StatusResponding
	return nil
}

// SetResponse transitions responding→answering with generated response text.
// The write is conditional on (roundNumber, phaseNumber) still being current;
// if the game advanced in the meantime the write is rejected with
// ErrPhaseMismatch and the caller drops (and logs) the result.
func (g *Game) SetResponse(roundNumber, phaseNumber int, text string) error {
	if g.Status != StatusResponding {
		return ErrPhaseMismatch
	}
	if roundNumber != g.CurrentRoundNumber || phaseNumber != g.CurrentPhaseNumber {
		return ErrPhaseMismatch
	}
	phase := g.CurrentPhase()
	if phase == nil || phase.LLMResponse != "" {
		return ErrPhaseMismatch
	}
	phase.LLMResponse = text
	g.Status = StatusAnswering
	return nil
}

// SubmitAnswer records a contestant's guess for the current phase. First
// write wins per player per phase; duplicates return ErrDuplicateSubmission
// and leave the recorded submission untouched. The host does not answer.
func (g *Game) SubmitAnswer(playerID string, sub Submission) error {
	if g.Status != StatusAnswering {
		return ErrInvalidTransition
	}
	p, ok := g.Players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}
	if p.IsHost {
		return ErrNotHost
	}
	phase := g.CurrentPhase()
	if _, dup := phase.Submissions[playerID]; dup {
		return ErrDuplicateSubmission
	}
	phase.Submissions[playerID] = sub
	return nil
}

// ScorePhase transitions answering→scoring and applies the scoring engine to
// every recorded submission exactly once. The IsScored guard makes re-scoring
// a no-op for player totals.
func (g *Game) ScorePhase() error {
	if g.Status != StatusAnswering {
		return ErrInvalidTransition
	}
	round := g.CurrentRound()
	phase := round.CurrentPhase()
	if !phase.IsScored {
		for playerID, sub := range phase.Submissions {
			p, ok := g.Players[playerID]
			if !ok || p.IsHost {
				continue
			}
			p.Score += Score(sub, round.CorrectAnswer)
		}
		phase.IsScored = true
	}
	g.Status = StatusScoring
	return nil
}

// Continue transitions scoring→round-finished if any submission this round
// matched the correct answer exactly (or the phase cap was reached), otherwise
// scoring→asking with a fresh phase and the next asker in rotation.
func (g *Game) Continue() error {
	if g.Status != StatusScoring {
		return ErrInvalidTransition
	}
	round := g.CurrentRound()
	if round.HasCorrectGuess() || g.phaseCapReached(round) {
		g.Status = StatusRoundFinished
		return nil
	}

	g.CurrentAskerID = NextAsker(g.ContestantIDs(), g.CurrentAskerID)
	phase := round.BeginPhase(g.CurrentAskerID)
	g.CurrentPhaseNumber = phase.PhaseNumber
	g.Status = StatusAsking
	return nil
}

func (g *Game) phaseCapReached(r *Round) bool {
	return g.Settings.MaxPhasesPerRound > 0 && len(r.Phases) >= g.Settings.MaxPhasesPerRound
}

// StartNextRound transitions round-finished→asking: validates the new setup,
// appends the next round and begins its first phase. The asker rotation
// continues from where the previous round left off.
func (g *Game) StartNextRound(setup RoundSetup) error {
	if g.Status != StatusRoundFinished {
		return ErrInvalidTransition
	}
	round, err := NewRound(g.CurrentRoundNumber+1, setup)
	if err != nil {
		return err
	}

	g.CurrentAskerID = NextAsker(g.ContestantIDs(), g.CurrentAskerID)
	round.BeginPhase(g.CurrentAskerID)
	g.Rounds = append(g.Rounds, round)
	g.CurrentRoundNumber = round.RoundNumber
	g.CurrentPhaseNumber = 1
	g.Status = StatusAsking
	return nil
}

// End transitions round-finished→game-finished. Terminal; the document is
// kept as history.
func (g *Game) End() error {
	if g.Status != StatusRoundFinished {
		return ErrInvalidTransition
	}
	g.Status = StatusGameFinished
	return nil
}
