// internal/game/service.go
package game

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// Store is the durable home of game documents. Put is conditional: it rejects
// with ErrVersionConflict when the stored version moved past the version the
// caller read, and bumps the version on success.
type Store interface {
	Get(ctx context.Context, id string) (*Game, error)
	Put(ctx context.Context, g *Game) error
	List(ctx context.Context) ([]*Game, error)
}

// Generator produces the model's in-character answer for a locked question.
// Latency is unbounded; callers must not block a request on it.
type Generator interface {
	Generate(ctx context.Context, question, persona, action string) (string, error)
}

// ActionRecord describes one applied transition for the historian pipeline.
type ActionRecord struct {
	GameID     string                 `json:"game_id"`
	ActorID    string                 `json:"actor_id"`
	ActionType string                 `json:"action_type"`
	Payload    map[string]interface{} `json:"action_payload,omitempty"`
	Timestamp  int64                  `json:"timestamp"`
}

// ActionPublisher forwards action records to the archive queue. Publishing is
// best-effort; failures are logged and never fail a transition.
type ActionPublisher interface {
	Publish(ctx context.Context, rec ActionRecord) error
}

// Service orchestrates the state machine: every operation loads the game,
// applies one transition and writes the whole document back. No transition
// removes data; documents persist as history after the game finishes.
type Service struct {
	Store     Store
	Generator Generator
	Publisher ActionPublisher
	Log       *logrus.Logger
}

// NewService wires a Service. Publisher may be nil when no historian runs.
func NewService(store Store, gen Generator, pub ActionPublisher, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{Store: store, Generator: gen, Publisher: pub, Log: log}
}

// Create creates a new lobby-state game hosted by the given player and
// persists it. Returns the stored game with its ID.
func (s *Service) Create(ctx context.Context, hostID, hostName string) (*Game, error) {
	g := New(hostID, hostName)
	if err := s.Store.Put(ctx, g); err != nil {
		return nil, err
	}
	s.logAction(ctx, g, hostID, "game_create", nil)
	return g, nil
}

// Get fetches the current game document.
func (s *Service) Get(ctx context.Context, gameID string) (*Game, error) {
	return s.Store.Get(ctx, gameID)
}

// List returns every stored game document, finished games included.
func (s *Service) List(ctx context.Context) ([]*Game, error) {
	return s.Store.List(ctx)
}

// Join adds a player to a lobby-state game. Known players may rejoin at any
// time; unknown players are rejected once the game has started.
func (s *Service) Join(ctx context.Context, gameID, playerID, name string) (*Game, error) {
	return s.apply(ctx, gameID, playerID, "player_join", func(g *Game) error {
		return g.AddPlayer(playerID, name)
	})
}

// Start begins round 1. Host only.
func (s *Service) Start(ctx context.Context, gameID, playerID string, setup RoundSetup) (*Game, error) {
	return s.applyHost(ctx, gameID, playerID, "game_start", func(g *Game) error {
		return g.Start(setup)
	})
}

// SubmitDraftQuestion updates the asker's in-progress question text so other
// participants can watch it being typed.
func (s *Service) SubmitDraftQuestion(ctx context.Context, gameID, playerID, text string) (*Game, error) {
	return s.apply(ctx, gameID, playerID, "question_draft", func(g *Game) error {
		return g.UpdateDraftQuestion(playerID, text)
	})
}

// SubmitQuestion locks the asker's final question and moves the game to
// responding. Response generation runs detached; the request returns as soon
// as the transition is persisted.
func (s *Service) SubmitQuestion(ctx context.Context, gameID, playerID, text string) (*Game, error) {
	g, err := s.apply(ctx, gameID, playerID, "question_lock", func(g *Game) error {
		return g.LockQuestion(playerID, text)
	})
	if err != nil {
		return nil, err
	}

	round := g.CurrentRound()
	phase := g.CurrentPhase()
	go s.generateResponse(g.ID, round.RoundNumber, phase.PhaseNumber,
		phase.Question, round.CorrectAnswer.Persona, round.CorrectAnswer.Action)
	return g, nil
}

// SubmitAnswer records a contestant's guess for the current phase.
func (s *Service) SubmitAnswer(ctx context.Context, gameID, playerID string, sub Submission) (*Game, error) {
	return s.apply(ctx, gameID, playerID, "answer_submit", func(g *Game) error {
		return g.SubmitAnswer(playerID, sub)
	})
}

// ScorePhase ends the answering window and applies scores. Host only.
func (s *Service) ScorePhase(ctx context.Context, gameID, playerID string) (*Game, error) {
	return s.applyHost(ctx, gameID, playerID, "phase_score", func(g *Game) error {
		return g.ScorePhase()
	})
}

// Continue advances past the score display: either a new phase in the same
// round, or round-finished when someone guessed exactly right. Host only.
func (s *Service) Continue(ctx context.Context, gameID, playerID string) (*Game, error) {
	return s.applyHost(ctx, gameID, playerID, "phase_continue", func(g *Game) error {
		return g.Continue()
	})
}

// StartNextRound begins a new round after the previous one finished. Host only.
func (s *Service) StartNextRound(ctx context.Context, gameID, playerID string, setup RoundSetup) (*Game, error) {
	return s.applyHost(ctx, gameID, playerID, "round_start", func(g *Game) error {
		return g.StartNextRound(setup)
	})
}

// End finishes the game. Host only, terminal.
func (s *Service) End(ctx context.Context, gameID, playerID string) (*Game, error) {
	return s.applyHost(ctx, gameID, playerID, "game_end", func(g *Game) error {
		return g.End()
	})
}

// apply runs one read-modify-write cycle. A version conflict means another
// action won the race; it surfaces as ErrVersionConflict for the caller to
// report as a retry prompt rather than silently clobbering the other write.
func (s *Service) apply(ctx context.Context, gameID, actorID, action string, mutate func(*Game) error) (*Game, error) {
	g, err := s.Store.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if err := mutate(g); err != nil {
		return nil, err
	}
	if err := s.Store.Put(ctx, g); err != nil {
		return nil, err
	}
	s.logAction(ctx, g, actorID, action, nil)
	return g, nil
}

func (s *Service) applyHost(ctx context.Context, gameID, actorID, action string, mutate func(*Game) error) (*Game, error) {
	return s.apply(ctx, gameID, actorID, action, func(g *Game) error {
		if actorID != g.HostID {
			return ErrNotHost
		}
		return mutate(g)
	})
}

// generateResponse performs the detached generation call for one locked
// question, then applies a conditional responding→answering write keyed by
// (gameID, roundNumber, phaseNumber). If the game advanced or vanished in the
// meantime the result is dropped and the drop is logged. A lost write race is
// retried once; the generation itself is never retried.
func (s *Service) generateResponse(gameID string, roundNumber, phaseNumber int, question, persona, action string) {
	ctx := context.Background()

	text, err := s.Generator.Generate(ctx, question, persona, action)
	if err != nil {
		s.Log.WithFields(logrus.Fields{
			"game":  gameID,
			"round": roundNumber,
			"phase": phaseNumber,
		}).WithError(err).Error("response generation failed")
		return
	}

	for attempt := 0; attempt < 2; attempt++ {
		g, err := s.Store.Get(ctx, gameID)
		if err != nil {
			s.Log.WithField("game", gameID).WithError(err).Warn("dropping generated response: game unavailable")
			return
		}
		if err := g.SetResponse(roundNumber, phaseNumber, text); err != nil {
			s.Log.WithFields(logrus.Fields{
				"game":  gameID,
				"round": roundNumber,
				"phase": phaseNumber,
			}).WithError(err).Warn("dropping generated response")
			return
		}
		err = s.Store.Put(ctx, g)
		if err == nil {
			s.logAction(ctx, g, "", "response_ready", map[string]interface{}{
				"round": roundNumber,
				"phase": phaseNumber,
			})
			return
		}
		if !errors.Is(err, ErrVersionConflict) {
			s.Log.WithField("game", gameID).WithError(err).Error("persisting generated response failed")
			return
		}
	}
	s.Log.WithFields(logrus.Fields{
		"game":  gameID,
		"round": roundNumber,
		"phase": phaseNumber,
	}).Warn("dropping generated response after repeated write conflicts")
}

func (s *Service) logAction(ctx context.Context, g *Game, actorID, action string, payload map[string]interface{}) {
	if s.Publisher == nil {
		return
	}
	rec := ActionRecord{
		GameID:     g.ID,
		ActorID:    actorID,
		ActionType: action,
		Payload:    payload,
		Timestamp:  time.Now().UnixMilli(),
	}
	if err := s.Publisher.Publish(ctx, rec); err != nil {
		s.Log.WithField("game", g.ID).WithError(err).Warn("failed to publish action record")
	}
}
