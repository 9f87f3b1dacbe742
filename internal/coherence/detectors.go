package coherence

import (
	"strings"

	"github.com/streamgate/controller/internal/stance"
)

// #region tangent-patterns

// tangentMarkers open a unit that swerves away from the current thread.
var tangentMarkers = []string{
	"anyway,",
	"on a completely different note",
	"speaking of which",
	"random thought",
	"by the way",
	"unrelated, but",
	"this reminds me",
}

// #endregion

// #region contradiction-patterns

// contradictionMarkers signal the output reversing itself mid-stream.
var contradictionMarkers = []string{
	"on second thought",
	"actually, no",
	"actually no",
	"wait, that's wrong",
	"that's not true",
	"i was wrong",
	"scratch that",
	"i take that back",
	"contrary to what i said",
}

// #endregion

// #region hallucination-patterns

// memoryCues are false-memory phrasings; fabricationCues are unearned
// appeals to authority. Both are counted across the recent buffer, not
// just the current unit, so a cue habit trips the flag even when each
// unit alone looks harmless.
var memoryCues = []string{
	"as i mentioned earlier",
	"as mentioned before",
	"as i said before",
	"as stated earlier",
	"as we discussed",
	"like i said",
	"as noted above",
}

var fabricationCues = []string{
	"studies show",
	"research proves",
	"it is a well-known fact",
	"experts agree",
	"statistics indicate",
	"it has been proven",
}

// #endregion

// #region stance-patterns

// frameBreakPatterns break any supplied stance regardless of frame.
var frameBreakPatterns = []string{
	"as an ai",
	"as a language model",
	"i cannot",
	"i'm not able to",
	"i am not able to",
	"my programming",
	"my training",
	"my limitations",
}

// frameViolations maps a frame to phrasings incompatible with it.
var frameViolations = map[stance.Frame][]string{
	stance.FrameStoic: {
		"i'm so excited", "amazing!!", "this is incredible", "i can't believe",
	},
	stance.FramePragmatic: {
		"imagine if", "in a dream world", "what if reality",
	},
	stance.FramePlayful: {
		"strictly speaking", "per the specification", "formally,",
	},
}

// #endregion

// #region local-detectors

// DefaultLocalDetectors returns the built-in short-window detectors.
func DefaultLocalDetectors() []Detector {
	return []Detector{
		detectImmediateRepetition,
		detectPhraseRepetition,
		detectSyntaxDefects,
		detectTangent,
		detectToneShift,
	}
}

// detectImmediateRepetition penalizes a unit that repeats the previous one.
func detectImmediateRepetition(in Input) Detection {
	if len(in.Recent) == 0 {
		return Detection{}
	}
	cur := normalize(in.Text)
	if cur == "" {
		return Detection{}
	}
	if cur == normalize(in.Recent[len(in.Recent)-1]) {
		return Detection{Penalty: 0.4, Flags: []Flag{FlagRepetition}}
	}
	return Detection{}
}

// detectPhraseRepetition penalizes a unit whose content already occurred
// within the recent buffer.
func detectPhraseRepetition(in Input) Detection {
	cur := normalize(in.Text)
	if len(cur) < 4 {
		return Detection{}
	}
	count := 0
	for _, prev := range in.Recent {
		if strings.Contains(normalize(prev), cur) {
			count++
		}
	}
	if count >= 2 {
		return Detection{Penalty: 0.3, Flags: []Flag{FlagRepetition}}
	}
	return Detection{}
}

// detectSyntaxDefects penalizes doubled punctuation and bracket imbalance.
// Ellipses are exempt; a single dangling bracket is tolerated because a
// unit may legitimately open a parenthetical that a later unit closes.
func detectSyntaxDefects(in Input) Detection {
	var penalty float64

	if hasDoubledPunctuation(in.Text) {
		penalty += 0.2
	}

	window := strings.Join(in.Recent, "") + in.Text
	if imbalance := bracketImbalance(window); imbalance > 1 {
		penalty += 0.15
	}

	if penalty == 0 {
		return Detection{}
	}
	return Detection{Penalty: penalty, Flags: []Flag{FlagIncoherentSyntax}}
}

// detectTangent penalizes units that open with an abrupt-tangent marker.
func detectTangent(in Input) Detection {
	lower := strings.ToLower(strings.TrimSpace(in.Text))
	for _, m := range tangentMarkers {
		if strings.HasPrefix(lower, m) {
			return Detection{Penalty: 0.25, Flags: []Flag{FlagTopicDrift}}
		}
	}
	return Detection{}
}

// detectToneShift penalizes a sudden burst of exclamation against a
// declarative recent window.
func detectToneShift(in Input) Detection {
	if len(in.Recent) < 3 || strings.Count(in.Text, "!") < 2 {
		return Detection{}
	}
	for _, prev := range in.Recent {
		if strings.Contains(prev, "!") {
			return Detection{}
		}
	}
	return Detection{Penalty: 0.1, Flags: []Flag{FlagToneShift}}
}

// #endregion local-detectors

// #region global-detectors

// DefaultGlobalDetectors returns the built-in whole-stream detectors.
func DefaultGlobalDetectors() []Detector {
	return []Detector{
		detectContradiction,
		detectStanceViolation,
		detectHallucinationCues,
	}
}

// detectContradiction penalizes self-reversal markers once there is prior
// output to contradict.
func detectContradiction(in Input) Detection {
	if strings.TrimSpace(in.Response) == "" {
		return Detection{}
	}
	lower := strings.ToLower(in.Text)
	for _, m := range contradictionMarkers {
		if strings.Contains(lower, m) {
			return Detection{Penalty: 0.3, Flags: []Flag{FlagContradiction}}
		}
	}
	return Detection{}
}

// detectStanceViolation penalizes output that breaks the supplied frame.
// Without a stance it is a no-op.
func detectStanceViolation(in Input) Detection {
	if in.Stance == nil || in.Stance.Frame == stance.FrameNone {
		return Detection{}
	}
	lower := strings.ToLower(in.Text)
	for _, p := range frameBreakPatterns {
		if strings.Contains(lower, p) {
			return Detection{Penalty: 0.35, Flags: []Flag{FlagStanceViolation}}
		}
	}
	for _, p := range frameViolations[in.Stance.Frame] {
		if strings.Contains(lower, p) {
			return Detection{Penalty: 0.25, Flags: []Flag{FlagStanceViolation}}
		}
	}
	return Detection{}
}

// detectHallucinationCues counts memory and fabrication cues across the
// recent buffer plus the current unit. Three memory cues or two
// fabrication cues trip the flag.
func detectHallucinationCues(in Input) Detection {
	memory := countOccurrences(in.Text, memoryCues)
	fabricated := countOccurrences(in.Text, fabricationCues)
	for _, prev := range in.Recent {
		memory += countOccurrences(prev, memoryCues)
		fabricated += countOccurrences(prev, fabricationCues)
	}
	if memory >= 3 || fabricated >= 2 {
		return Detection{Penalty: 0.4, Flags: []Flag{FlagHallucinationRisk}}
	}
	return Detection{}
}

// #endregion global-detectors

// #region helpers

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// countOccurrences counts non-overlapping occurrences of every pattern in text.
func countOccurrences(text string, patterns []string) int {
	lower := strings.ToLower(text)
	total := 0
	for _, p := range patterns {
		total += strings.Count(lower, p)
	}
	return total
}

// hasDoubledPunctuation reports runs of two identical sentence punctuation
// marks. Three or more periods count as an ellipsis and pass.
func hasDoubledPunctuation(text string) bool {
	runes := []rune(text)
	for i := 1; i < len(runes); i++ {
		switch runes[i] {
		case ',', ';', ':', '!', '?':
			if runes[i-1] == runes[i] {
				return true
			}
		case '.':
			if runes[i-1] != '.' {
				continue
			}
			// run of periods: only a pair is a defect
			run := 2
			for j := i + 1; j < len(runes) && runes[j] == '.'; j++ {
				run++
			}
			if run == 2 {
				return true
			}
			i += run - 2
		}
	}
	return false
}

// bracketImbalance returns the absolute open/close mismatch summed over
// parens, square brackets, and braces.
func bracketImbalance(text string) int {
	var paren, square, brace int
	for _, r := range text {
		switch r {
		case '(':
			paren++
		case ')':
			paren--
		case '[':
			square++
		case ']':
			square--
		case '{':
			brace++
		case '}':
			brace--
		}
	}
	return abs(paren) + abs(square) + abs(brace)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// #endregion helpers
