// internal/game/game_test.go
package game

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lobbyGame builds a game with a host and n contestants joined in order
// c1..cn.
func lobbyGame(t *testing.T, n int) *Game {
	t.Helper()
	g := New("host", "Host")
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("c%d", i)
		require.NoError(t, g.AddPlayer(id, "Contestant "+id))
	}
	return g
}

// startedGame builds a lobby game and starts round 1.
func startedGame(t *testing.T, n int) *Game {
	t.Helper()
	g := lobbyGame(t, n)
	require.NoError(t, g.Start(validSetup()))
	return g
}

// advanceToAnswering walks the current phase asking→responding→answering.
func advanceToAnswering(t *testing.T, g *Game) {
	t.Helper()
	require.NoError(t, g.LockQuestion(g.CurrentAskerID, "What's your favorite movie?"))
	require.NoError(t, g.SetResponse(g.CurrentRoundNumber, g.CurrentPhaseNumber, "A generated answer."))
}

func TestNewGameID(t *testing.T) {
	for i := 0; i < 50; i++ {
		id := NewGameID()
		assert.Len(t, id, 6)
		for _, r := range id {
			assert.Contains(t, gameIDAlphabet, string(r))
		}
	}
}

func TestNewGameStartsInLobbyWithHost(t *testing.T) {
	g := New("host", "Host")
	assert.Equal(t, StatusLobby, g.Status)
	require.Contains(t, g.Players, "host")
	assert.True(t, g.Players["host"].IsHost)
	assert.Empty(t, g.ContestantIDs(), "the host is not a contestant")
}

func TestAddPlayerJoinOrderIsStable(t *testing.T) {
	g := lobbyGame(t, 3)
	assert.Equal(t, []string{"c1", "c2", "c3"}, g.ContestantIDs())
}

func TestAddPlayerAfterStart(t *testing.T) {
	g := startedGame(t, 2)
	assert.ErrorIs(t, g.AddPlayer("late", "Latecomer"), ErrGameAlreadyStarted)
	assert.NotContains(t, g.Players, "late")

	// A known player rejoining is a no-op, not an error.
	assert.NoError(t, g.AddPlayer("c1", "Contestant c1"))
	assert.Len(t, g.Players, 3)
}

func TestStartRequiresContestants(t *testing.T) {
	g := New("host", "Host")
	err := g.Start(validSetup())
	assert.ErrorIs(t, err, ErrNoContestants)
	assert.Equal(t, StatusLobby, g.Status)
	assert.Empty(t, g.Rounds)
}

func TestStartRejectsIncompleteSetup(t *testing.T) {
	g := lobbyGame(t, 2)
	setup := validSetup()
	setup.PersonaPool = []string{"Only Option"}

	err := g.Start(setup)
	assert.ErrorIs(t, err, ErrSetupIncomplete)
	assert.Equal(t, StatusLobby, g.Status)
	assert.Empty(t, g.Rounds)
	assert.Equal(t, 0, g.CurrentRoundNumber)
}

func TestStartCreatesRoundOne(t *testing.T) {
	g := startedGame(t, 3)
	assert.Equal(t, StatusAsking, g.Status)
	assert.Equal(t, 1, g.CurrentRoundNumber)
	assert.Equal(t, 1, g.CurrentPhaseNumber)
	assert.Equal(t, "c1", g.CurrentAskerID, "first asker is the first contestant to join")

	require.Len(t, g.Rounds, 1)
	round := g.CurrentRound()
	assert.Equal(t, 1, round.RoundNumber)
	require.Len(t, round.Phases, 1)
	assert.Equal(t, "c1", round.Phases[0].QuestionAskerID)
}

func TestStartOnlyFromLobby(t *testing.T) {
	g := startedGame(t, 2)
	assert.ErrorIs(t, g.Start(validSetup()), ErrInvalidTransition)
}

func TestDraftQuestionOnlyByAsker(t *testing.T) {
	g := startedGame(t, 2)

	assert.ErrorIs(t, g.UpdateDraftQuestion("c2", "sneaky question"), ErrNotYourTurn)
	assert.ErrorIs(t, g.UpdateDraftQuestion("host", "host question"), ErrNotYourTurn)

	require.NoError(t, g.UpdateDraftQuestion("c1", "What do you eat for breakf"))
	require.NoError(t, g.UpdateDraftQuestion("c1", "What do you eat for breakfast?"))
	assert.Equal(t, "What do you eat for breakfast?", g.CurrentPhase().Question)
}

func TestLockQuestionTransitionsToResponding(t *testing.T) {
	g := startedGame(t, 2)

	assert.ErrorIs(t, g.LockQuestion("c2", "not my turn"), ErrNotYourTurn)

	require.NoError(t, g.LockQuestion("c1", "Final question?"))
	assert.Equal(t, StatusResponding, g.Status)
	phase := g.CurrentPhase()
	assert.True(t, phase.QuestionLocked)
	assert.Equal(t, "Final question?", phase.Question)

	// Locked means immutable.
	assert.ErrorIs(t, g.UpdateDraftQuestion("c1", "edit after lock"), ErrInvalidTransition)
	assert.ErrorIs(t, g.LockQuestion("c1", "double lock"), ErrInvalidTransition)
}

func TestSetResponseConditionalWrite(t *testing.T) {
	g := startedGame(t, 2)
	require.NoError(t, g.LockQuestion("c1", "Q?"))

	// Wrong phase pointer: dropped.
	assert.ErrorIs(t, g.SetResponse(1, 2, "stale"), ErrPhaseMismatch)
	assert.ErrorIs(t, g.SetResponse(2, 1, "stale"), ErrPhaseMismatch)

	require.NoError(t, g.SetResponse(1, 1, "In character: hello."))
	assert.Equal(t, StatusAnswering, g.Status)
	assert.Equal(t, "In character: hello.", g.CurrentPhase().LLMResponse)

	// The response is written exactly once.
	assert.ErrorIs(t, g.SetResponse(1, 1, "second write"), ErrPhaseMismatch)
	assert.Equal(t, "In character: hello.", g.CurrentPhase().LLMResponse)
}

func TestSubmitAnswerRules(t *testing.T) {
	g := startedGame(t, 2)
	sub := Submission{Persona: "Mike Tyson", Action: "Quoting song lyrics"}

	assert.ErrorIs(t, g.SubmitAnswer("c2", sub), ErrInvalidTransition, "no answers while asking")
	advanceToAnswering(t, g)

	assert.ErrorIs(t, g.SubmitAnswer("host", sub), ErrNotHost)
	assert.ErrorIs(t, g.SubmitAnswer("stranger", sub), ErrPlayerNotFound)

	require.NoError(t, g.SubmitAnswer("c2", sub))

	// First write wins.
	second := Submission{Persona: "Taylor Swift", Action: "Downplaying intelligence"}
	assert.ErrorIs(t, g.SubmitAnswer("c2", second), ErrDuplicateSubmission)
	assert.Equal(t, sub, g.CurrentPhase().Submissions["c2"])
}

func TestScorePhaseAppliesPoints(t *testing.T) {
	g := startedGame(t, 3)
	advanceToAnswering(t, g)

	// Correct answer is Lincoln / Quoting song lyrics (validSetup).
	require.NoError(t, g.SubmitAnswer("c2", Submission{Persona: "Abraham Lincoln", Action: "Quoting song lyrics"}))
	require.NoError(t, g.SubmitAnswer("c3", Submission{Persona: "Abraham Lincoln", Action: "Downplaying intelligence"}))
	// c1 (the asker) also answers with nothing right.
	require.NoError(t, g.SubmitAnswer("c1", Submission{Persona: "Mike Tyson", Action: "Downplaying intelligence"}))

	require.NoError(t, g.ScorePhase())
	assert.Equal(t, StatusScoring, g.Status)
	assert.True(t, g.CurrentPhase().IsScored)
	assert.Equal(t, 100, g.Players["c2"].Score)
	assert.Equal(t, 25, g.Players["c3"].Score)
	assert.Equal(t, -10, g.Players["c1"].Score)
	assert.Equal(t, 0, g.Players["host"].Score, "the host is never scored")
}

func TestScorePhaseIdempotent(t *testing.T) {
	g := startedGame(t, 2)
	advanceToAnswering(t, g)
	require.NoError(t, g.SubmitAnswer("c2", Submission{Persona: "Abraham Lincoln", Action: "Quoting song lyrics"}))
	require.NoError(t, g.ScorePhase())
	require.Equal(t, 100, g.Players["c2"].Score)

	// Force a second pass through the scorer; the IsScored guard must hold.
	g.Status = StatusAnswering
	require.NoError(t, g.ScorePhase())
	assert.Equal(t, 100, g.Players["c2"].Score)
}

func TestScoresCanGoNegative(t *testing.T) {
	g := startedGame(t, 2)
	wrong := Submission{Persona: "Mike Tyson", Action: "Downplaying intelligence"}

	advanceToAnswering(t, g)
	require.NoError(t, g.SubmitAnswer("c2", wrong))
	require.NoError(t, g.ScorePhase())
	require.NoError(t, g.Continue())

	advanceToAnswering(t, g)
	require.NoError(t, g.SubmitAnswer("c2", wrong))
	require.NoError(t, g.ScorePhase())

	assert.Equal(t, -20, g.Players["c2"].Score)
}

func TestContinueAppendsPhaseInSameRound(t *testing.T) {
	g := startedGame(t, 3)
	advanceToAnswering(t, g)
	require.NoError(t, g.SubmitAnswer("c2", Submission{Persona: "Mike Tyson", Action: "Quoting song lyrics"}))
	require.NoError(t, g.ScorePhase())

	require.NoError(t, g.Continue())

	// No exact guess: same round, next phase, next asker. Explicitly NOT a
	// new round.
	assert.Equal(t, StatusAsking, g.Status)
	require.Len(t, g.Rounds, 1)
	assert.Equal(t, 1, g.CurrentRoundNumber)
	assert.Equal(t, 2, g.CurrentPhaseNumber)
	assert.Len(t, g.CurrentRound().Phases, 2)
	assert.Equal(t, "c2", g.CurrentAskerID)
	assert.Empty(t, g.CurrentPhase().Question)
}

func TestContinueFinishesRoundOnExactGuess(t *testing.T) {
	g := startedGame(t, 3)
	advanceToAnswering(t, g)
	require.NoError(t, g.SubmitAnswer("c2", Submission{Persona: "Abraham Lincoln", Action: "Quoting song lyrics"}))
	require.NoError(t, g.SubmitAnswer("c3", Submission{Persona: "Mike Tyson", Action: "Downplaying intelligence"}))
	require.NoError(t, g.ScorePhase())

	require.NoError(t, g.Continue())

	// One exact guess ends the round regardless of other answers.
	assert.Equal(t, StatusRoundFinished, g.Status)
	assert.Len(t, g.CurrentRound().Phases, 1, "no phase appended to a finished round")
}

func TestContinueHonorsEarlierPhaseGuess(t *testing.T) {
	g := startedGame(t, 2)

	// Phase 1: exact guess, but the host keeps playing one more phase anyway
	// (the decision rule scans all phases, not just the latest).
	advanceToAnswering(t, g)
	require.NoError(t, g.SubmitAnswer("c2", g.CurrentRound().CorrectAnswer))
	require.NoError(t, g.ScorePhase())
	g.Status = StatusAsking // simulate an older snapshot that kept going
	g.CurrentRound().BeginPhase("c2")
	g.CurrentPhaseNumber = 2
	advanceToAnswering(t, g)
	require.NoError(t, g.ScorePhase())

	require.NoError(t, g.Continue())
	assert.Equal(t, StatusRoundFinished, g.Status)
}

func TestPhaseCapFinishesRound(t *testing.T) {
	g := lobbyGame(t, 2)
	g.Settings.MaxPhasesPerRound = 1
	require.NoError(t, g.Start(validSetup()))

	advanceToAnswering(t, g)
	require.NoError(t, g.SubmitAnswer("c2", Submission{Persona: "Mike Tyson", Action: "Downplaying intelligence"}))
	require.NoError(t, g.ScorePhase())
	require.NoError(t, g.Continue())

	assert.Equal(t, StatusRoundFinished, g.Status, "cap reached without a correct guess")
}

func TestStartNextRound(t *testing.T) {
	g := startedGame(t, 3)
	advanceToAnswering(t, g)
	require.NoError(t, g.SubmitAnswer("c2", g.CurrentRound().CorrectAnswer))
	require.NoError(t, g.ScorePhase())
	require.NoError(t, g.Continue())
	require.Equal(t, StatusRoundFinished, g.Status)

	setup := validSetup()
	setup.Persona = "Taylor Swift"
	setup.PersonaPool = []string{"Taylor Swift", "Hulk Hogan"}
	require.NoError(t, g.StartNextRound(setup))

	assert.Equal(t, StatusAsking, g.Status)
	require.Len(t, g.Rounds, 2)
	assert.Equal(t, 2, g.CurrentRoundNumber)
	assert.Equal(t, 1, g.CurrentPhaseNumber)
	assert.Equal(t, 2, g.CurrentRound().RoundNumber)
	assert.Len(t, g.Rounds[0].Phases, 1, "round 1 history is immutable")

	// Rotation continues from where round 1 left off (c1 asked last).
	assert.Equal(t, "c2", g.CurrentAskerID)
}

func TestStartNextRoundRejectsBadSetup(t *testing.T) {
	g := startedGame(t, 2)
	advanceToAnswering(t, g)
	require.NoError(t, g.SubmitAnswer("c2", g.CurrentRound().CorrectAnswer))
	require.NoError(t, g.ScorePhase())
	require.NoError(t, g.Continue())

	err := g.StartNextRound(RoundSetup{})
	assert.ErrorIs(t, err, ErrSetupIncomplete)
	assert.Equal(t, StatusRoundFinished, g.Status)
	assert.Len(t, g.Rounds, 1)
}

func TestEndGame(t *testing.T) {
	g := startedGame(t, 2)
	assert.ErrorIs(t, g.End(), ErrInvalidTransition, "only a finished round can end the game")

	advanceToAnswering(t, g)
	require.NoError(t, g.SubmitAnswer("c2", g.CurrentRound().CorrectAnswer))
	require.NoError(t, g.ScorePhase())
	require.NoError(t, g.Continue())

	require.NoError(t, g.End())
	assert.Equal(t, StatusGameFinished, g.Status)
	assert.True(t, g.Finished())

	assert.ErrorIs(t, g.StartNextRound(validSetup()), ErrInvalidTransition)
	assert.ErrorIs(t, g.End(), ErrInvalidTransition)
}
