// internal/game/round.go
package game

// Submission is a contestant's guess (or the round's correct answer): which
// persona the model was instructed to embody, and which action it was
// instructed to perform. Immutable once recorded; one per player per phase,
// first write wins.
type Submission struct {
	Persona string `json:"persona"`
	Action  string `json:"action"`
}

// Phase is one question/answer/score cycle within a round.
type Phase struct {
	PhaseNumber     int                   `json:"phaseNumber"`
	QuestionAskerID string                `json:"questionAskerId"`
	Question        string                `json:"question"`
	QuestionLocked  bool                  `json:"questionLocked"`
	LLMResponse     string                `json:"llmResponse"`
	Submissions     map[string]Submission `json:"submissions"`
	IsScored        bool                  `json:"isScored"`
}

// Round is a sequence of phases sharing one fixed correct persona/action pair
// and answer pools. It ends when some phase submission matches the correct
// answer exactly.
type Round struct {
	RoundNumber   int        `json:"roundNumber"`
	CorrectAnswer Submission `json:"correctAnswer"`
	PersonaPool   []string   `json:"personaPool"`
	ActionPool    []string   `json:"actionPool"`
	Phases        []*Phase   `json:"phases"`
}

// RoundSetup is the host-submitted configuration for a new round: the correct
// answer plus the decoy pools shown to answering contestants.
type RoundSetup struct {
	Persona     string   `json:"persona"`
	Action      string   `json:"action"`
	PersonaPool []string `json:"personaPool"`
	ActionPool  []string `json:"actionPool"`
}

// Validate checks a round setup: persona and action must be present and each
// pool needs at least two distinct options.
func (s RoundSetup) Validate() error {
	if s.Persona == "" || s.Action == "" {
		return ErrSetupIncomplete
	}
	if countDistinct(s.PersonaPool) < 2 || countDistinct(s.ActionPool) < 2 {
		return ErrSetupIncomplete
	}
	return nil
}

func countDistinct(options []string) int {
	seen := make(map[string]struct{}, len(options))
	for _, o := range options {
		seen[o] = struct{}{}
	}
	return len(seen)
}

// NewRound builds a round from a validated setup. The pools always contain the
// correct answer; if the host's pools omit it, it is added rather than leaking
// the answer by its absence from the decoys.
func NewRound(roundNumber int, setup RoundSetup) (*Round, error) {
	if err := setup.Validate(); err != nil {
		return nil, err
	}
	return &Round{
		RoundNumber:   roundNumber,
		CorrectAnswer: Submission{Persona: setup.Persona, Action: setup.Action},
		PersonaPool:   ensureOption(setup.PersonaPool, setup.Persona),
		ActionPool:    ensureOption(setup.ActionPool, setup.Action),
	}, nil
}

func ensureOption(pool []string, option string) []string {
	for _, o := range pool {
		if o == option {
			return pool
		}
	}
	return append(pool, option)
}

// BeginPhase appends a fresh phase with the given asker and returns it. The
// question starts empty and mutable; it stays editable until locked by the
// asking→responding transition.
func (r *Round) BeginPhase(askerID string) *Phase {
	p := &Phase{
		PhaseNumber:     len(r.Phases) + 1,
		QuestionAskerID: askerID,
		Submissions:     make(map[string]Submission),
	}
	r.Phases = append(r.Phases, p)
	return p
}

// CurrentPhase returns the last phase of the round, or nil before the first
// phase begins. History is append-only, so "current" is always the tail.
func (r *Round) CurrentPhase() *Phase {
	if len(r.Phases) == 0 {
		return nil
	}
	return r.Phases[len(r.Phases)-1]
}

// Phase returns the phase with the given 1-based number, or nil if out of
// range. Phase numbers are dense, so this is a direct index.
func (r *Round) Phase(phaseNumber int) *Phase {
	if phaseNumber < 1 || phaseNumber > len(r.Phases) {
		return nil
	}
	return r.Phases[phaseNumber-1]
}

// HasCorrectGuess reports whether any submission across any phase of the round
// matches the correct answer exactly. This is the round termination rule.
func (r *Round) HasCorrectGuess() bool {
	for _, p := range r.Phases {
		for _, sub := range p.Submissions {
			if sub == r.CorrectAnswer {
				return true
			}
		}
	}
	return false
}
