// Package eou implements end-of-utterance scoring: a collaborator
// interface over conversation turns, a default heuristic implementation,
// and the running-history/commit-rule bookkeeping the STT pipeline
// drives.
package eou

import "github.com/eleven-am/voice-backend/internal/sttmodel"

// Model is the EOU collaborator interface: predict(turns) -> probability
// in [0, 1] that the conversation, as given, is complete. Internals of
// any neural classifier are out of scope; the core only depends on this
// contract.
type Model interface {
	Predict(turns []sttmodel.ConversationTurn) float64
}
