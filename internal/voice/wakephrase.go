package voice

import (
	"regexp"
	"strings"
)

var wsRe = regexp.MustCompile(`\s+`)

const tokenTrimSet = " ,.!?;:-\"'`~"

// WakeDetector gates transcripts on a configured set of wake phrases.
// WindowSecs widens matching from a strict prefix to anywhere within the
// first few words, assuming roughly three spoken words per second.
type WakeDetector struct {
	phrases    []string
	windowSecs int
}

func NewWakeDetector(phrases []string, windowSecs int) *WakeDetector {
	norm := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			norm = append(norm, p)
		}
	}
	return &WakeDetector{phrases: norm, windowSecs: windowSecs}
}

// Detect returns (matched, stripped) where stripped is the text after the
// wake phrase, or empty when nothing follows it.
func (w *WakeDetector) Detect(text string) (bool, string) {
	if text == "" {
		return false, ""
	}
	s := wsRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), " ")
	s = strings.TrimLeft(s, " \t\"'`~")

	for _, wp := range w.phrases {
		if s == wp {
			return true, ""
		}
		if w.windowSecs == 0 {
			if stripped, ok := matchPrefix(s, wp); ok {
				return true, stripped
			}
			continue
		}
		if stripped, ok := matchWindow(s, wp, w.windowSecs); ok {
			return true, stripped
		}
	}
	return false, ""
}

// matchPrefix requires the wake phrase at the start of the text, followed
// by a separator.
func matchPrefix(s, wp string) (string, bool) {
	for _, sep := range []string{" ", ",", ".", "!", "?", ":"} {
		if strings.HasPrefix(s, wp+sep) {
			return strings.TrimLeft(s[len(wp)+len(sep):], tokenTrimSet), true
		}
	}
	return "", false
}

// matchWindow searches for the wake-phrase word sequence within the first
// windowSecs*3 words of the text.
func matchWindow(s, wp string, windowSecs int) (string, bool) {
	words := strings.Fields(s)
	wpWords := strings.Fields(wp)
	if len(wpWords) == 0 {
		return "", false
	}
	k := windowSecs * 3
	if k < 3 {
		k = 3
	}
	limit := len(words) - len(wpWords)
	if limit > k-len(wpWords) {
		limit = k - len(wpWords)
	}
	for i := 0; i <= limit; i++ {
		match := true
		for j := range wpWords {
			if strings.Trim(words[i+j], tokenTrimSet) != wpWords[j] {
				match = false
				break
			}
		}
		if match {
			rest := strings.Join(words[i+len(wpWords):], " ")
			return strings.Trim(rest, tokenTrimSet), true
		}
	}
	return "", false
}
