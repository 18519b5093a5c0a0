package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/brunobiangulo/studyplan/plan"
)

var (
	reProgramCode      = regexp.MustCompile(`(?i)Code\s+(\d{10,})`)
	reProgramCodeLabel = regexp.MustCompile(`(?i)Program\s*Code[:\s]*([A-Z0-9\-]+)`)
	reProgramTitle     = regexp.MustCompile(`(?i)Program\s+(Bachelor[^\n]+(?:\([^)]+\))?)`)
	reBachelorTitle    = regexp.MustCompile(`(?i)(Bachelor\s+of\s+\w+\s+Program\s+in[^\n]+(?:\([^)]+\))?)`)
	reTotalCredits     = regexp.MustCompile(`(?i)Total\s*(?:Credits?|หน่วยกิต)[:\s]*(\d+)`)
	reBareCredits      = regexp.MustCompile(`(?i)(\d{2,3})\s*Credits?`)
)

const (
	unknownProgramCode = "UNKNOWN"
	defaultTitle       = "Study Plan"
)

// ProgramInfo pulls the program code, title and total credits out of the
// whole document text, falling back to placeholders when absent.
func ProgramInfo(text string) plan.ProgramInfo {
	info := plan.ProgramInfo{
		ProgramCode:  unknownProgramCode,
		ProgramTitle: defaultTitle,
		TotalCredits: plan.DefaultTotalCredits,
	}

	if m := reProgramCode.FindStringSubmatch(text); m != nil {
		info.ProgramCode = m[1]
	} else if m := reProgramCodeLabel.FindStringSubmatch(text); m != nil {
		info.ProgramCode = m[1]
	}

	if m := reProgramTitle.FindStringSubmatch(text); m != nil {
		info.ProgramTitle = collapseSpaces(m[1])
	} else if m := reBachelorTitle.FindStringSubmatch(text); m != nil {
		info.ProgramTitle = collapseSpaces(m[1])
	}

	m := reTotalCredits.FindStringSubmatch(text)
	if m == nil {
		m = reBareCredits.FindStringSubmatch(text)
	}
	if m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			info.TotalCredits = n
		}
	}

	return info
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
