package parser

import "context"

// BlockKind distinguishes free paragraphs from table rows.
type BlockKind string

const (
	BlockParagraph BlockKind = "paragraph"
	BlockTable     BlockKind = "table"
)

// ParseResult is what a parser produces from a document file.
type ParseResult struct {
	Blocks   []Block // Paragraphs and tables in document order
	Method   string  // "native"
	Metadata map[string]string
}

// Block is one body element of a parsed document. Paragraph blocks carry
// Text; table blocks carry Rows of cell texts. A cell holding several
// stacked entries keeps them separated by "\n".
type Block struct {
	Kind       BlockKind
	Text       string
	Rows       [][]string
	PageNumber int
}

// Paragraphs returns the raw paragraph texts in order, including empty
// ones. Table content is excluded.
func (r *ParseResult) Paragraphs() []string {
	var paras []string
	for _, b := range r.Blocks {
		if b.Kind == BlockParagraph {
			paras = append(paras, b.Text)
		}
	}
	return paras
}

// Parser can parse a specific document format.
type Parser interface {
	Parse(ctx context.Context, path string) (*ParseResult, error)
	SupportedFormats() []string
}
