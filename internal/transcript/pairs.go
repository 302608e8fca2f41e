package transcript

import (
	"strings"
)

// Pair is one prompt/response exchange recovered from a transcript.
type Pair struct {
	Prompt   string
	Response string
}

// Pairs walks parsed entries in order and joins each run of user text
// with the assistant text that answers it. Consecutive messages from the
// same side collapse into one turn; a trailing unanswered prompt still
// yields a pair with an empty response. System entries are dropped.
func Pairs(entries []ParsedEntry) []Pair {
	var pairs []Pair
	var prompt, response []string

	flush := func() {
		if len(prompt) == 0 && len(response) == 0 {
			return
		}
		pairs = append(pairs, Pair{
			Prompt:   strings.Join(prompt, "\n"),
			Response: strings.Join(response, "\n"),
		})
		prompt = prompt[:0]
		response = response[:0]
	}

	for _, e := range entries {
		switch e.Type {
		case "user":
			if len(response) > 0 {
				flush()
			}
			prompt = append(prompt, e.Text)
		case "assistant":
			response = append(response, e.Text)
		}
	}
	flush()

	return pairs
}

// Clip truncates s to at most max bytes, appending "..." when anything
// was dropped. max <= 0 disables clipping.
func Clip(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
