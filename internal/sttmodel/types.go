// Package sttmodel holds the data types shared by the transcription,
// partial-transcript, EOU and STT pipeline subsystems, so none of them
// need to import each other just to pass a Transcript around.
package sttmodel

// Word is a single word-level timing, offsets in seconds relative to the
// start of the audio it was transcribed from.
type Word struct {
	Text       string
	StartS     float64
	EndS       float64
	Confidence float64
}

// Segment is a sentence/phrase-level timing, same offset convention as
// Word.
type Segment struct {
	Text   string
	StartS float64
	EndS   float64
}

// Usage carries accounting fields surfaced to clients; the core only
// threads it through, it never interprets the values.
type Usage struct {
	AudioSeconds float64
	Characters   int
}

// Transcript is the result of one transcription pass, partial or final.
// EOUProbability is valid only when !IsPartial (is_partial implies
// eou_probability absent).
type Transcript struct {
	Text                 string
	IsPartial            bool
	StartMs              int
	EndMs                int
	AudioDurationMs      int
	ProcessingDurationMs int
	Words                []Word
	Segments             []Segment
	Model                string
	Usage                Usage
	EOUProbability       *float64
}

// Role distinguishes the two conversation participants tracked for EOU
// scoring.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one entry of the running EOU conversation history.
type ConversationTurn struct {
	Role    Role
	Content string
}
