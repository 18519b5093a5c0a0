package parser

import "strings"

// Normalize flattens parsed blocks into logical text lines. Each paragraph
// becomes one line and each table row one line, except rows where some
// cell holds stacked entries: those are split into aligned lines, one per
// stacked position. Empty paragraphs and rows are dropped; order is kept.
func Normalize(blocks []Block) []string {
	var lines []string
	for _, b := range blocks {
		switch b.Kind {
		case BlockParagraph:
			if t := strings.TrimSpace(b.Text); t != "" {
				lines = append(lines, t)
			}
		case BlockTable:
			for _, row := range b.Rows {
				lines = append(lines, NormalizeRow(row)...)
			}
		}
	}
	return lines
}

// NormalizeRow turns one table row into one or more logical lines. When
// any cell contains a line break, the cells are split on it and zipped by
// position; non-empty fragments at each position are joined with a space.
func NormalizeRow(cells []string) []string {
	split := make([][]string, len(cells))
	maxLines := 1
	for i, c := range cells {
		split[i] = strings.Split(strings.TrimSpace(c), "\n")
		if n := len(split[i]); n > maxLines {
			maxLines = n
		}
	}

	var lines []string
	for pos := 0; pos < maxLines; pos++ {
		parts := make([]string, 0, len(cells))
		for _, frags := range split {
			if pos >= len(frags) {
				continue
			}
			if f := strings.TrimSpace(frags[pos]); f != "" {
				parts = append(parts, f)
			}
		}
		if len(parts) > 0 {
			lines = append(lines, strings.Join(parts, " "))
		}
	}
	return lines
}

// Text joins normalized lines into a single newline-separated document.
func Text(lines []string) string {
	return strings.Join(lines, "\n")
}
