package eou

import (
	"strings"
	"sync"

	"github.com/eleven-am/voice-backend/internal/sttmodel"
)

// Scorer maintains conversation history and pending user text, trimmed
// to 2*maxContextTurns entries, and implements the commit rule: a
// pending user turn is folded into history only once its EOU probability
// crosses threshold.
type Scorer struct {
	mu sync.Mutex

	model          Model
	threshold      float64
	maxContextTurn int

	history []sttmodel.ConversationTurn
	pending string
}

// NewScorer creates a Scorer bound to one model instance. maxContextTurns
// bounds history to 2*maxContextTurns entries.
func NewScorer(model Model, threshold float64, maxContextTurns int) *Scorer {
	return &Scorer{model: model, threshold: threshold, maxContextTurn: maxContextTurns}
}

// ScoreFinalUserTranscript runs the per-final-transcript scoring step:
// append text to the pending user text, score a provisional history,
// commit the pending turn to history if the score meets threshold, and
// return the probability to attach to the transcript.
func (s *Scorer) ScoreFinalUserTranscript(text string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = strings.TrimSpace(s.pending + " " + text)

	provisional := append(append([]sttmodel.ConversationTurn{}, s.history...), sttmodel.ConversationTurn{
		Role:    sttmodel.RoleUser,
		Content: s.pending,
	})

	p := s.model.Predict(provisional)

	if p >= s.threshold {
		s.history = append(s.history, sttmodel.ConversationTurn{Role: sttmodel.RoleUser, Content: s.pending})
		s.pending = ""
		s.trimLocked()
	}

	return p
}

// AppendAssistantTurn records an explicit assistant turn in history.
func (s *Scorer) AppendAssistantTurn(content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, sttmodel.ConversationTurn{Role: sttmodel.RoleAssistant, Content: content})
	s.trimLocked()
}

// trimLocked enforces the 2*maxContextTurns retention bound. Must be
// called with s.mu held.
func (s *Scorer) trimLocked() {
	limit := 2 * s.maxContextTurn
	if limit <= 0 || len(s.history) <= limit {
		return
	}
	s.history = s.history[len(s.history)-limit:]
}

// History returns a copy of the committed conversation history.
func (s *Scorer) History() []sttmodel.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sttmodel.ConversationTurn, len(s.history))
	copy(out, s.history)
	return out
}

// PendingUserText returns the not-yet-committed accumulated user text.
func (s *Scorer) PendingUserText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}
