package vadmodel

// MergeActiveRuns collapses a per-subframe activity sequence into spans,
// applying hangover: a gap of inactive subframes shorter than
// minSilenceMs does not end the current span, matching how a real frame
// classifier (e.g. Silero) reports one continuous utterance across brief
// dips rather than one span per active subframe. frameMs is the duration
// each entry in active represents; spans are returned in subframe-index
// units (caller converts to sample indices).
func MergeActiveRuns(active []bool, frameMs float64, minSilenceMs int) []SpeechSpan {
	if frameMs <= 0 {
		return nil
	}
	hangoverFrames := int(float64(minSilenceMs) / frameMs)

	var spans []SpeechSpan
	open := false
	var start int
	gap := 0

	for i, a := range active {
		if a {
			if !open {
				open = true
				start = i
			}
			gap = 0
			continue
		}
		if open {
			gap++
			if gap > hangoverFrames {
				spans = append(spans, SpeechSpan{StartSample: start, EndSample: i - gap + 1})
				open = false
				gap = 0
			}
		}
	}
	if open {
		spans = append(spans, SpeechSpan{StartSample: start, EndSample: len(active) - gap})
	}
	return spans
}
