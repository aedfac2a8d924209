package report

import (
	"fmt"
	"strings"

	"github.com/wgomg/aidetector/internal/analysis"
	"github.com/wgomg/aidetector/internal/classifier"
)

// Score thresholds for the "likely source" tier, in percent.
const (
	TopTierThreshold = 98.0
	MidTierThreshold = 90.0
)

const (
	TierTopModel   = "Highly structured output, likely a top-tier model (GPT-4 / Claude class)"
	TierMidModel   = "Mid-tier conversational model (ChatGPT / Gemini class)"
	TierBasicTool  = "Basic AI or paraphrasing tool"
	TierHumanLike  = "Looks convincingly human-written."
	summaryHeading = "--- Analysis Result ---"
)

// Tier picks the likely source. The score thresholds are checked before the
// label, so a very confident Human result still lands in a model tier.
func Tier(label classifier.Label, score float64) string {
	switch {
	case score > TopTierThreshold:
		return TierTopModel
	case score > MidTierThreshold:
		return TierMidModel
	case label == classifier.AI:
		return TierBasicTool
	default:
		return TierHumanLike
	}
}

func Summary(result analysis.Result) string {
	var b strings.Builder
	b.WriteString(summaryHeading + "\n")
	if result.Label == classifier.AI {
		b.WriteString("ALERT: This text is likely AI generated!\n")
	} else {
		b.WriteString("This text looks human-written.\n")
	}
	fmt.Fprintf(&b, "Confidence Score: %.2f%%\n", result.Score)
	fmt.Fprintf(&b, "Possible Source: %s\n", Tier(result.Label, result.Score))
	return b.String()
}
