package eou

import (
	"strings"

	"github.com/eleven-am/voice-backend/internal/sttmodel"
)

// trailingConjunctions are words that strongly suggest the speaker is not
// done (a pending clause), lowering the completion score even when the
// text ends without obvious continuation punctuation.
var trailingConjunctions = map[string]bool{
	"and": true, "but": true, "or": true, "so": true, "because": true,
	"if": true, "when": true, "that": true, "which": true, "um": true, "uh": true,
}

// HeuristicModel is a dependency-free EOU scorer: it looks only at the
// most recent user turn's trailing punctuation and final word, a stand-in
// for a trained sequence classifier. The rest of the core only depends on
// the Model.Predict contract, so a neural scorer can replace this without
// touching any caller.
type HeuristicModel struct{}

// NewHeuristicModel creates the default heuristic scorer.
func NewHeuristicModel() *HeuristicModel { return &HeuristicModel{} }

// Predict implements Model.
func (HeuristicModel) Predict(turns []sttmodel.ConversationTurn) float64 {
	var last *sttmodel.ConversationTurn
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == sttmodel.RoleUser {
			last = &turns[i]
			break
		}
	}
	if last == nil {
		return 0.5
	}

	content := strings.TrimSpace(last.Content)
	if content == "" {
		return 0
	}

	switch content[len(content)-1] {
	case '.', '!', '?':
		return 0.9
	case ',', ';', ':', '-':
		return 0.15
	}

	words := strings.Fields(strings.ToLower(content))
	if len(words) > 0 && trailingConjunctions[words[len(words)-1]] {
		return 0.1
	}

	return 0.55
}
