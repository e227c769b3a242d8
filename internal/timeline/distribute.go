package timeline

import (
	"math"
	"strings"
)

// Distribute allocates the translated text across the timeline's speech
// blocks, proportional to each block's share of the total speech duration.
//
// Words are consumed strictly in order and never split; rounding drift is
// resolved by appending the unconsumed tail to the last speech block, so
// concatenating the assigned texts in block order always reproduces the full
// input. Empty input text yields empty block texts, which downstream
// rendering treats as "pad with silence" rather than a synthesis request.
//
// The input timeline is not modified; the returned timeline carries copied
// blocks with text assigned.
func Distribute(t Timeline, text string) (Timeline, error) {
	if t.SpeechBlockCount() == 0 {
		return Timeline{}, ErrNoSpeechBlocks
	}
	totalSpeech := t.SpeechDuration()
	if totalSpeech <= 0 {
		return Timeline{}, ErrDegenerateTimeline
	}

	out := Timeline{
		TotalDuration: t.TotalDuration,
		Blocks:        append([]Block(nil), t.Blocks...),
	}

	words := strings.Fields(text)
	total := len(words)
	consumed := 0
	lastSpeech := -1
	for i := range out.Blocks {
		if out.Blocks[i].Kind == Speech {
			lastSpeech = i
		}
	}

	for i := range out.Blocks {
		block := &out.Blocks[i]
		if block.Kind != Speech {
			continue
		}
		if i == lastSpeech {
			block.Text = strings.Join(words[consumed:], " ")
			consumed = total
			continue
		}
		share := int(math.Round(float64(total) * block.Duration() / totalSpeech))
		if share > total-consumed {
			share = total - consumed
		}
		block.Text = strings.Join(words[consumed:consumed+share], " ")
		consumed += share
	}

	return out, nil
}
