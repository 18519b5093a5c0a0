package extract

import (
	"log/slog"
	"strings"
)

// prereqAnchorWindow is how many preceding non-empty paragraphs are
// searched for the course line a prerequisite annotation belongs to.
const prereqAnchorWindow = 4

// Prerequisites scans paragraph text for "Prerequisite: ..." annotations
// and maps each to the code of the nearest preceding course line. Empty
// paragraphs do not count toward the search window. An annotation with no
// anchor in the window is dropped; a code seen twice keeps the last text.
func Prerequisites(paragraphs []string) map[string]string {
	prereqs := make(map[string]string)

	for i, para := range paragraphs {
		text, ok := MatchPrerequisite(para)
		if !ok {
			continue
		}

		seen := 0
		anchored := false
		for j := i - 1; j >= 0 && seen < prereqAnchorWindow; j-- {
			prev := paragraphs[j]
			if strings.TrimSpace(prev) == "" {
				continue
			}
			seen++
			if code, ok := LeadingCode(prev); ok {
				prereqs[code] = text
				anchored = true
				break
			}
		}
		if !anchored {
			slog.Debug("extract: prerequisite without course anchor", "paragraph", i, "text", text)
		}
	}
	return prereqs
}
