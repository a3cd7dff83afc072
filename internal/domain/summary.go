package domain

import (
	"fmt"
	"strings"
)

// Likelihood band phrases, keyed on exceedance percentage.
const (
	phraseRare         = "This is a rare occurrence."
	phraseOccasional   = "This happens occasionally."
	phraseFairlyCommon = "This is fairly common."
	phraseVeryLikely   = "This is very likely."
)

// Summarize renders a one-sentence narrative for a stats result. With an
// exceedance block it reports the chance of exceeding the threshold and a
// likelihood phrase; otherwise it reports mean, median and range. A result
// without valid values yields an explicit insufficient-data sentence.
func Summarize(s StatsResult, v Variable, threshold *float64) string {
	label := v.Label()
	if s.Count == 0 || s.NoData {
		return fmt.Sprintf("Insufficient data: no valid %s observations were found for this location and date window.", label)
	}

	if e := s.Exceedance; e != nil {
		return fmt.Sprintf("Based on %d observations, there is a %.1f%% chance that %s exceeds %s. %s",
			s.Count, e.Percentage, label, formatValue(e.Threshold, v.DisplayUnits), LikelihoodPhrase(e.Percentage))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Based on %d observations, %s averages %s (median %s), ranging from %s to %s.",
		s.Count, label,
		formatValue(s.Mean, v.DisplayUnits),
		formatValue(s.Median, v.DisplayUnits),
		formatValue(s.Min, v.DisplayUnits),
		formatValue(s.Max, v.DisplayUnits),
	)
	if threshold != nil {
		b.WriteString(" The threshold was not a finite number and was ignored.")
	}
	return b.String()
}

// LikelihoodPhrase maps an exceedance percentage to its qualitative band:
// below 10 rare, below 30 occasional, below 60 fairly common, else very likely.
func LikelihoodPhrase(percentage float64) string {
	switch {
	case percentage < 10:
		return phraseRare
	case percentage < 30:
		return phraseOccasional
	case percentage < 60:
		return phraseFairlyCommon
	default:
		return phraseVeryLikely
	}
}

func formatValue(v float64, units string) string {
	if units == "" {
		return fmt.Sprintf("%.1f", v)
	}
	return fmt.Sprintf("%.1f %s", v, units)
}
