package eou

import (
	"testing"

	"github.com/eleven-am/voice-backend/internal/sttmodel"
)

// thresholdModel returns a score driven directly by the test so commit
// behaviour can be exercised without the heuristic's text parsing.
type thresholdModel struct{ score float64 }

func (m thresholdModel) Predict([]sttmodel.ConversationTurn) float64 { return m.score }

func TestScorerCommitsAboveThreshold(t *testing.T) {
	model := &thresholdModel{score: 0.9}
	s := NewScorer(model, 0.5, 10)

	p := s.ScoreFinalUserTranscript("hello there")
	if p != 0.9 {
		t.Fatalf("p = %v, want 0.9", p)
	}

	history := s.History()
	if len(history) != 1 || history[0].Content != "hello there" {
		t.Fatalf("history = %+v, want one committed turn", history)
	}
	if s.PendingUserText() != "" {
		t.Fatalf("pending = %q, want empty after commit", s.PendingUserText())
	}
}

func TestScorerAccumulatesPendingBelowThreshold(t *testing.T) {
	model := &thresholdModel{score: 0.2}
	s := NewScorer(model, 0.5, 10)

	s.ScoreFinalUserTranscript("so I was thinking")
	s.ScoreFinalUserTranscript("about the thing")

	if len(s.History()) != 0 {
		t.Fatalf("expected zero committed turns below threshold, got %+v", s.History())
	}
	want := "so I was thinking about the thing"
	if s.PendingUserText() != want {
		t.Fatalf("pending = %q, want %q", s.PendingUserText(), want)
	}
}

func TestScorerTrimsHistoryToMaxContextTurns(t *testing.T) {
	model := &thresholdModel{score: 0.9}
	s := NewScorer(model, 0.5, 2)

	for i := 0; i < 5; i++ {
		s.ScoreFinalUserTranscript("turn")
		s.AppendAssistantTurn("reply")
	}

	if len(s.History()) != 4 {
		t.Fatalf("len(History()) = %d, want 4 (2*maxContextTurns)", len(s.History()))
	}
}

func TestHeuristicModelPunctuation(t *testing.T) {
	m := NewHeuristicModel()

	complete := m.Predict([]sttmodel.ConversationTurn{{Role: sttmodel.RoleUser, Content: "what time is it?"}})
	if complete < 0.8 {
		t.Fatalf("complete score = %v, want >= 0.8", complete)
	}

	trailing := m.Predict([]sttmodel.ConversationTurn{{Role: sttmodel.RoleUser, Content: "I was going to say and"}})
	if trailing > 0.3 {
		t.Fatalf("trailing-conjunction score = %v, want <= 0.3", trailing)
	}
}
