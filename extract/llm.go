package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/brunobiangulo/studyplan/llm"
	"github.com/brunobiangulo/studyplan/plan"
)

// LLMExtractor asks a chat model for the whole study plan in one call and
// post-processes the answer so it satisfies the same invariants as the
// regex path.
type LLMExtractor struct {
	provider llm.Provider
	model    string
	// maxChars bounds the document text sent to the model. Zero means no
	// limit.
	maxChars int
}

// NewLLMExtractor creates an extractor backed by provider. model may be
// empty to use the provider's configured default.
func NewLLMExtractor(provider llm.Provider, model string, maxChars int) *LLMExtractor {
	return &LLMExtractor{provider: provider, model: model, maxChars: maxChars}
}

func (e *LLMExtractor) Name() string { return "llm" }

const extractionPrompt = `You are an expert academic data extractor. Extract the university study plan from the document text and return it as JSON.

Extract courses ONLY from the study plan table under "Year X, Semester Y" headers (Year 1 to 4, Semester 1 and 2). Ignore course descriptions and narrative paragraphs.

RULES:
1. Extract program metadata: program_code, program_title, total_credits.
2. Course codes are 2 to 4 capital letters followed by 4 digits (CSX3001, ITX2007, GE1401, MA1201). Write them without spaces.
3. For each elective slot create a row with course_code "" and course_title "Major Elective Course" or "Free Elective Course". "Two Major Elective" means two rows.
4. For prerequisites, extract ONLY course codes from "Prerequisite:" text, joined with ", ". Ignore status requirements such as "Junior standing". Only include codes that exist in the study plan.
5. For courses offered as alternatives in the same semester set or_flag to "or", otherwise "".
6. credits is the leading number of the credits cell, e.g. "3 (3-0-6)" is 3.
7. Return ONLY valid JSON.

JSON FORMAT:
{
  "program_info": {"program_code": "string", "program_title": "string", "total_credits": 0},
  "courses": [
    {"year": 1, "semester": 1, "course_code": "string", "course_title": "string", "credits": 3, "prerequisite": "string", "or_flag": "string"}
  ]
}`

// Extract sends the joined document lines to the model and returns the
// cleaned result. Transport and decoding failures are returned wrapped.
func (e *LLMExtractor) Extract(ctx context.Context, in Input) (*Result, error) {
	if e.provider == nil {
		return nil, fmt.Errorf("llm extractor: no provider configured")
	}

	text := strings.Join(in.Lines, "\n")
	if e.maxChars > 0 && len(text) > e.maxChars {
		slog.Warn("extract: truncating document for llm", "chars", len(text), "limit", e.maxChars)
		text = truncateUTF8(text, e.maxChars)
	}

	resp, err := e.provider.Chat(ctx, llm.ChatRequest{
		Model: e.model,
		Messages: []llm.Message{
			{Role: "system", Content: extractionPrompt},
			{Role: "user", Content: "Document Text:\n" + text},
		},
		Temperature: 0,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("llm extraction: %w", err)
	}
	if resp.Truncated() {
		return nil, fmt.Errorf("llm extraction: answer cut off at the output limit after %d tokens", resp.CompletionTokens)
	}

	jsonStr, err := extractJSON(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("parsing llm extraction result: %w", err)
	}

	var raw Result
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("unmarshalling llm extraction result: %w", err)
	}

	result := &Result{
		ProgramInfo: cleanProgramInfo(raw.ProgramInfo, strings.Join(in.Lines, "\n")),
		Courses:     Validate(cleanCourses(raw.Courses)),
		Method:      e.Name(),
	}

	slog.Info("extract: llm extraction complete",
		"model", resp.Model,
		"courses", len(result.Courses),
		"tokens", resp.TotalTokens,
	)
	return result, nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// cleanCourses enforces the course invariants on model output: codes
// normalized, credits positive, terms in range, electives titled with the
// canonical placeholders and or_flag restricted to "or" or "".
func cleanCourses(in []plan.Course) []plan.Course {
	out := make([]plan.Course, 0, len(in))
	for _, c := range in {
		if c.Year < 1 || c.Year > 4 || c.Semester < 1 || c.Semester > 2 {
			slog.Debug("extract: dropping course outside study plan terms",
				"code", c.Code, "year", c.Year, "semester", c.Semester)
			continue
		}
		c.Code = plan.NormalizeCode(c.Code)
		c.Title = strings.TrimSpace(c.Title)
		if c.Credits <= 0 {
			c.Credits = plan.DefaultCredits
		}
		if c.Code == "" {
			switch lower := strings.ToLower(c.Title); {
			case strings.Contains(lower, "major elective"):
				c.Title = plan.MajorElectiveTitle
			case strings.Contains(lower, "free elective"):
				c.Title = plan.FreeElectiveTitle
			}
		}
		if strings.EqualFold(strings.TrimSpace(c.OrFlag), plan.OrFlag) {
			c.OrFlag = plan.OrFlag
		} else {
			c.OrFlag = ""
		}
		if strings.TrimSpace(c.Prerequisite) == "-" {
			c.Prerequisite = ""
		}
		out = append(out, c)
	}
	return plan.SortByTerm(out)
}

// cleanProgramInfo fills fields the model left empty from the regex
// heuristics over the same text.
func cleanProgramInfo(info plan.ProgramInfo, text string) plan.ProgramInfo {
	fallback := ProgramInfo(text)
	if strings.TrimSpace(info.ProgramCode) == "" {
		info.ProgramCode = fallback.ProgramCode
	}
	if strings.TrimSpace(info.ProgramTitle) == "" {
		info.ProgramTitle = fallback.ProgramTitle
	}
	if info.TotalCredits <= 0 {
		info.TotalCredits = fallback.TotalCredits
	}
	return info
}

// codeBlockRe strips markdown code fences from LLM output.
var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// extractJSON attempts to find a valid JSON object in the LLM response text.
// It handles common LLM quirks: markdown code blocks, text before/after JSON.
func extractJSON(raw string) (string, error) {
	if m := codeBlockRe.FindStringSubmatch(raw); len(m) > 1 {
		raw = m[1]
	}

	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "{") {
		return raw, nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1], nil
	}

	return "", fmt.Errorf("no JSON object found in response")
}
