package canon

import "regexp"

// Financial event patterns tagged onto articles at canonicalization. Tags
// survive dedup merges as a union over members.
var eventPatterns = []struct {
	tag string
	re  *regexp.Regexp
}{
	{"dividend", regexp.MustCompile(`(?i)\bdividends?\b`)},
	{"buyback", regexp.MustCompile(`(?i)\bbuy[- ]?backs?\b`)},
	{"merger_acquisition", regexp.MustCompile(`(?i)\b(mergers?|acquisitions?|acquires?|acquired|takeovers?)\b`)},
	{"ipo", regexp.MustCompile(`(?i)\b(ipo|initial public offering)\b`)},
	{"earnings", regexp.MustCompile(`(?i)\b(earnings|quarterly results|net profit|net loss|q[1-4] results)\b`)},
	{"rate_change", regexp.MustCompile(`(?i)\b(rate (hike|cut)|repo rate|interest rates?)\b`)},
	{"policy_change", regexp.MustCompile(`(?i)\b(policy (change|review|decision)|monetary policy)\b`)},
}

// DetectEvents returns the event tags matching text, in pattern-table order.
func DetectEvents(text string) []string {
	var tags []string
	for _, p := range eventPatterns {
		if p.re.MatchString(text) {
			tags = append(tags, p.tag)
		}
	}
	return tags
}
