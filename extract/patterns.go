package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/brunobiangulo/studyplan/plan"
)

// ---------------------------------------------------------------------------
// Regex patterns for the study-plan table convention. Each production rule
// has its own recognizer below; a nil/false result means "not this kind of
// line" and is never an error.
// ---------------------------------------------------------------------------
var (
	// Course code anywhere in text: CSX3001, CSX 3001, GE 1401, MA 1201
	reCourseCode = regexp.MustCompile(`[A-Z]{2,4}\s*\d{4}`)
	// Course code at the very start of a line.
	reLeadingCode = regexp.MustCompile(`^([A-Z]{2,4}\s*\d{4})`)
	// CODE TITLE CREDITS, e.g. "CSX 3001 Fundamentals of Computer Programming 3 (2-2-5)"
	reCourseLine = regexp.MustCompile(`([A-Z]{2,4}\s*\d{4})\s+([^0-9]+?)\s+(\d+\s*\([\d\-]+\))`)
	// Leading digit run of a credits cell: "3 (3-0-6)" -> 3
	reCreditsNumber = regexp.MustCompile(`^(\d+)`)
	// "Two Major Elective", "1 Free Elective Course"
	reMajorElective = regexp.MustCompile(`(?i)(one|two|three|four|five|six|seven|eight|nine|ten|\d+)\s+Major\s+Elective`)
	reFreeElective  = regexp.MustCompile(`(?i)(one|two|three|four|five|six|seven|eight|nine|ten|\d+)\s+Free\s+Elective`)
	// Placeholder gates are case-sensitive so a coded course titled
	// "... major elective ..." stays a course.
	reHasMajor = regexp.MustCompile(`Major\s+Elective`)
	reHasFree  = regexp.MustCompile(`Free\s+Elective`)
	// Line that opens an OR alternative: "or GE1401 ..."
	reOrPrefix = regexp.MustCompile(`(?i)^or\s`)
	// "Prerequisite: ..." / "Prerequisites: ..."
	rePrerequisite = regexp.MustCompile(`(?i)^prerequisites?\s*:\s*(.+)`)
	// Term table terminator.
	reTotal = regexp.MustCompile(`(?i)Total`)
)

// termHeaders holds the compiled "Year N, Semester M" header pattern for
// each of the eight terms.
var termHeaders = func() map[plan.Term]*regexp.Regexp {
	m := make(map[plan.Term]*regexp.Regexp, len(plan.Terms))
	for _, t := range plan.Terms {
		m[t] = termHeaderPattern(t)
	}
	return m
}()

func termHeaderPattern(t plan.Term) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(?i)Year\s*%d[\s,]*Semester\s*%d`, t.Year, t.Semester))
}

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// CourseMatch is one CODE TITLE CREDITS occurrence on a line.
type CourseMatch struct {
	Code    string // normalized, no spaces
	Title   string
	Credits int
}

// MatchCourses returns every CODE TITLE CREDITS occurrence on line, left
// to right.
func MatchCourses(line string) []CourseMatch {
	found := reCourseLine.FindAllStringSubmatch(line, -1)
	if len(found) == 0 {
		return nil
	}
	matches := make([]CourseMatch, 0, len(found))
	for _, m := range found {
		matches = append(matches, CourseMatch{
			Code:    plan.NormalizeCode(m[1]),
			Title:   strings.TrimSpace(m[2]),
			Credits: ParseCredits(m[3]),
		})
	}
	return matches
}

// ParseCredits reads the leading number of a credits cell such as
// "3 (3-0-6)". Anything unparsable or non-positive yields the default.
func ParseCredits(s string) int {
	m := reCreditsNumber.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return plan.DefaultCredits
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return plan.DefaultCredits
	}
	return n
}

// MatchElective recognizes an elective placeholder line and returns the
// placeholder title and how many slots it stands for.
func MatchElective(line string) (title string, count int, ok bool) {
	switch {
	case reHasMajor.MatchString(line):
		return plan.MajorElectiveTitle, electiveCount(reMajorElective, line), true
	case reHasFree.MatchString(line):
		return plan.FreeElectiveTitle, electiveCount(reFreeElective, line), true
	}
	return "", 0, false
}

func electiveCount(re *regexp.Regexp, line string) int {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return 1
	}
	return ParseQuantity(m[1])
}

// MaxElectiveQuantity bounds how many placeholder slots one elective line
// may expand to. The spelled-out quantities stop at ten as well.
const MaxElectiveQuantity = 10

// ParseQuantity turns "3" or "three" into 3. Unrecognized words and digit
// runs above MaxElectiveQuantity yield 1.
func ParseQuantity(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n > MaxElectiveQuantity {
			return 1
		}
		return n
	}
	if n, ok := numberWords[s]; ok {
		return n
	}
	return 1
}

// IsTableHeader reports whether line is the "Course Code | Course Title |
// Credits" marker that opens a term table.
func IsTableHeader(line string) bool {
	return strings.Contains(line, "Course Code") &&
		strings.Contains(line, "Course Title") &&
		strings.Contains(line, "Credits")
}

// IsTotalLine reports whether line closes a term table.
func IsTotalLine(line string) bool {
	return reTotal.MatchString(line)
}

// StripOrPrefix removes a leading "or" word. The bool reports whether one
// was present.
func StripOrPrefix(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if !reOrPrefix.MatchString(line) {
		return line, false
	}
	return strings.TrimSpace(line[2:]), true
}

// HasInlineOr reports whether line joins alternatives with " or ".
func HasInlineOr(line string) bool {
	return strings.Contains(strings.ToLower(line), " or ")
}

// MatchPrerequisite recognizes a "Prerequisite: ..." annotation and
// returns its trailing text.
func MatchPrerequisite(line string) (string, bool) {
	m := rePrerequisite.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	text := strings.TrimSpace(m[1])
	return text, text != ""
}

// LeadingCode returns the normalized course code a line starts with.
func LeadingCode(line string) (string, bool) {
	m := reLeadingCode.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	return plan.NormalizeCode(m[1]), true
}

// FindCodes returns every course code embedded in text, normalized, in
// order of appearance.
func FindCodes(text string) []string {
	raw := reCourseCode.FindAllString(text, -1)
	codes := make([]string, 0, len(raw))
	for _, c := range raw {
		codes = append(codes, plan.NormalizeCode(c))
	}
	return codes
}
