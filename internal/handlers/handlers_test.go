// internal/handlers/handlers_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasonkylefrank/prompt-jeopardy/internal/auth"
	"github.com/jasonkylefrank/prompt-jeopardy/internal/game"
	"github.com/jasonkylefrank/prompt-jeopardy/internal/llm"
	"github.com/jasonkylefrank/prompt-jeopardy/internal/store"
)

func TestMain(m *testing.M) {
	auth.Init()
	os.Exit(m.Run())
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := game.NewService(store.NewMemoryStore(), &llm.StaticGenerator{Response: "In character."}, nil, quietLogger())
	srv := NewServer(svc, quietLogger())

	mux := http.NewServeMux()
	mux.Handle("/game/create", srv.CreateGameHandler())
	mux.Handle("/game/join", srv.JoinGameHandler())
	mux.Handle("/game/state", srv.GameStateHandler())
	mux.Handle("/games", srv.ListGamesHandler())
	mux.Handle("/game/start", srv.StartGameHandler())
	mux.Handle("/game/question/draft", srv.DraftQuestionHandler())
	mux.Handle("/game/question", srv.SubmitQuestionHandler())
	mux.Handle("/game/answer", srv.SubmitAnswerHandler())
	mux.Handle("/game/score", srv.ScorePhaseHandler())
	mux.Handle("/game/continue", srv.ContinueHandler())
	mux.Handle("/game/next-round", srv.NextRoundHandler())
	mux.Handle("/game/end", srv.EndGameHandler())

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

// newClient returns an HTTP client with its own cookie jar, i.e. its own
// guest identity.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func postJSON(t *testing.T, c *http.Client, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := c.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeGame(t *testing.T, resp *http.Response) *game.Game {
	t.Helper()
	defer resp.Body.Close()
	var g game.Game
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&g))
	return &g
}

func testSetup() map[string]interface{} {
	return map[string]interface{}{
		"persona":     "Abraham Lincoln",
		"action":      "Quoting song lyrics",
		"personaPool": []string{"Abraham Lincoln", "Mike Tyson"},
		"actionPool":  []string{"Quoting song lyrics", "Downplaying intelligence"},
	}
}

func TestCreateJoinAndState(t *testing.T) {
	ts := newTestServer(t)
	host := newClient(t)
	player := newClient(t)

	resp := postJSON(t, host, ts.URL+"/game/create", map[string]string{"name": "Hannah"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	g := decodeGame(t, resp)
	require.Len(t, g.ID, 6)
	assert.Equal(t, game.StatusLobby, g.Status)
	assert.Equal(t, "Hannah", g.HostName)

	resp = postJSON(t, player, ts.URL+"/game/join", map[string]string{"gameId": g.ID, "name": "Piper"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	joined := decodeGame(t, resp)
	assert.Len(t, joined.Players, 2)

	stateResp, err := player.Get(ts.URL + "/game/state?game_id=" + g.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, stateResp.StatusCode)
	decodeGame(t, stateResp)

	missing, err := player.Get(ts.URL + "/game/state?game_id=NOSUCH")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestJoinAfterStartRejected(t *testing.T) {
	ts := newTestServer(t)
	host := newClient(t)
	player := newClient(t)
	late := newClient(t)

	g := decodeGame(t, postJSON(t, host, ts.URL+"/game/create", map[string]string{"name": "Hannah"}))
	decodeGame(t, postJSON(t, player, ts.URL+"/game/join", map[string]string{"gameId": g.ID, "name": "Piper"}))

	resp := postJSON(t, host, ts.URL+"/game/start", map[string]interface{}{"gameId": g.ID, "setup": testSetup()})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	lateResp := postJSON(t, late, ts.URL+"/game/join", map[string]string{"gameId": g.ID, "name": "Tardy"})
	defer lateResp.Body.Close()
	assert.Equal(t, http.StatusConflict, lateResp.StatusCode)
}

func TestStartGuards(t *testing.T) {
	ts := newTestServer(t)
	host := newClient(t)
	player := newClient(t)

	g := decodeGame(t, postJSON(t, host, ts.URL+"/game/create", map[string]string{"name": "Hannah"}))

	// No contestants yet.
	resp := postJSON(t, host, ts.URL+"/game/start", map[string]interface{}{"gameId": g.ID, "setup": testSetup()})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	decodeGame(t, postJSON(t, player, ts.URL+"/game/join", map[string]string{"gameId": g.ID, "name": "Piper"}))

	// Non-host cannot start.
	resp = postJSON(t, player, ts.URL+"/game/start", map[string]interface{}{"gameId": g.ID, "setup": testSetup()})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Incomplete setup is a 400.
	bad := testSetup()
	bad["personaPool"] = []string{"Only"}
	resp = postJSON(t, host, ts.URL+"/game/start", map[string]interface{}{"gameId": g.ID, "setup": bad})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFullGameOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	host := newClient(t)
	asker := newClient(t)
	guesser := newClient(t)

	g := decodeGame(t, postJSON(t, host, ts.URL+"/game/create", map[string]string{"name": "Hannah"}))
	decodeGame(t, postJSON(t, asker, ts.URL+"/game/join", map[string]string{"gameId": g.ID, "name": "Piper"}))
	decodeGame(t, postJSON(t, guesser, ts.URL+"/game/join", map[string]string{"gameId": g.ID, "name": "Quinn"}))

	started := decodeGame(t, postJSON(t, host, ts.URL+"/game/start", map[string]interface{}{"gameId": g.ID, "setup": testSetup()}))
	require.Equal(t, game.StatusAsking, started.Status)

	// Draft then final question from the asker (Piper joined first).
	resp := postJSON(t, asker, ts.URL+"/game/question/draft", map[string]string{"gameId": g.ID, "question": "What's for lun"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// A non-asker's question is silently dropped.
	resp = postJSON(t, guesser, ts.URL+"/game/question", map[string]string{"gameId": g.ID, "question": "hijack"})
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	responding := decodeGame(t, postJSON(t, asker, ts.URL+"/game/question", map[string]string{"gameId": g.ID, "question": "What's for lunch?"}))
	require.Equal(t, game.StatusResponding, responding.Status)

	// The static generator resolves quickly; poll like a real client would.
	require.Eventually(t, func() bool {
		r, err := host.Get(ts.URL + "/game/state?game_id=" + g.ID)
		if err != nil {
			return false
		}
		defer r.Body.Close()
		var state game.Game
		if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
			return false
		}
		return state.Status == game.StatusAnswering
	}, 2*time.Second, 50*time.Millisecond)

	// Guesser nails it; a duplicate is dropped.
	answer := map[string]string{"gameId": g.ID, "persona": "Abraham Lincoln", "action": "Quoting song lyrics"}
	resp = postJSON(t, guesser, ts.URL+"/game/answer", answer)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = postJSON(t, guesser, ts.URL+"/game/answer", map[string]string{"gameId": g.ID, "persona": "Mike Tyson", "action": "Downplaying intelligence"})
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	scored := decodeGame(t, postJSON(t, host, ts.URL+"/game/score", map[string]string{"gameId": g.ID}))
	require.Equal(t, game.StatusScoring, scored.Status)

	finishedRound := decodeGame(t, postJSON(t, host, ts.URL+"/game/continue", map[string]string{"gameId": g.ID}))
	require.Equal(t, game.StatusRoundFinished, finishedRound.Status)

	ended := decodeGame(t, postJSON(t, host, ts.URL+"/game/end", map[string]string{"gameId": g.ID}))
	require.Equal(t, game.StatusGameFinished, ended.Status)

	// Exactly one guesser got the full 100.
	var winner *game.Player
	for _, p := range ended.Players {
		if p.Score == 100 {
			winner = p
		}
	}
	require.NotNil(t, winner)
	assert.Equal(t, "Quinn", winner.Name)

	// History lists the finished game.
	listResp, err := host.Get(ts.URL + "/games")
	require.NoError(t, err)
	defer listResp.Body.Close()
	var games []*game.Game
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&games))
	require.Len(t, games, 1)
	assert.Equal(t, game.StatusGameFinished, games[0].Status)
}
