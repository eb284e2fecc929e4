// Package tts implements the Synthesizer: text chunking,
// OOM/CPU-fallback-aware streaming synthesis, and the five response-format
// encoders.
package tts

import "strings"

// MaxChunkChars is the default chunk_text boundary.
const MaxChunkChars = 250

// ChunkText splits text into chunks of at most maxChars bytes, preferring
// sentence boundaries, then word boundaries:
//  1. if the whole (whitespace-normalised) text fits, one chunk;
//  2. else split on sentence terminators (.!? followed by whitespace) and
//     greedily pack sentences into chunks of <= maxChars;
//  3. any sentence longer than maxChars is greedily split on word
//     boundaries; a single word longer than maxChars forms a chunk of its
//     own and is the one case where a chunk exceeds maxChars.
func ChunkText(text string, maxChars int) []string {
	normalized := normalizeWhitespace(text)
	if normalized == "" {
		return nil
	}
	if len(normalized) <= maxChars {
		return []string{normalized}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, sentence := range splitSentences(normalized) {
		if len(sentence) > maxChars {
			flush()
			chunks = append(chunks, splitWords(sentence, maxChars)...)
			continue
		}
		if current.Len() == 0 {
			current.WriteString(sentence)
			continue
		}
		if current.Len()+1+len(sentence) <= maxChars {
			current.WriteByte(' ')
			current.WriteString(sentence)
			continue
		}
		flush()
		current.WriteString(sentence)
	}
	flush()

	return chunks
}

// normalizeWhitespace collapses runs of whitespace to single spaces and
// trims the ends, matching the invariant that rejoining chunks with single
// spaces reproduces the whitespace-normalised input.
func normalizeWhitespace(text string) string {
	fields := strings.Fields(text)
	return strings.Join(fields, " ")
}

// splitSentences splits on '.', '!' or '?' followed by whitespace,
// keeping the terminator attached to its sentence.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		if i+1 < len(text) && text[i+1] != ' ' {
			continue
		}
		sentences = append(sentences, text[start:i+1])
		start = i + 2
		if start > len(text) {
			start = len(text)
		}
		i = start - 1
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

// splitWords greedily packs words into chunks of at most maxChars,
// splitting a single sentence that is itself longer than maxChars.
func splitWords(sentence string, maxChars int) []string {
	words := strings.Fields(sentence)
	var chunks []string
	var current strings.Builder

	for _, w := range words {
		if current.Len() == 0 {
			current.WriteString(w)
			continue
		}
		if current.Len()+1+len(w) <= maxChars {
			current.WriteByte(' ')
			current.WriteString(w)
			continue
		}
		chunks = append(chunks, current.String())
		current.Reset()
		current.WriteString(w)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
