package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

type PDFParser struct{}

func (p *PDFParser) SupportedFormats() []string { return []string{"pdf"} }

// Parse extracts plain text page by page. PDFs carry no table structure
// we can rely on, so every text line becomes a paragraph block.
func (p *PDFParser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	var blocks []Block

	for i := 1; i <= totalPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract
			continue
		}

		blocks = append(blocks, splitPageIntoBlocks(text, i)...)
	}

	return &ParseResult{
		Blocks: blocks,
		Method: "native",
		Metadata: map[string]string{
			"pages": fmt.Sprintf("%d", totalPages),
		},
	}, nil
}

// splitPageIntoBlocks turns one page of extracted text into paragraph
// blocks, one per line. Blank lines are kept as empty paragraphs so that
// nearby-line lookups see the same spacing the page had.
func splitPageIntoBlocks(text string, pageNum int) []Block {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	blocks := make([]Block, 0, len(lines))
	for _, line := range lines {
		blocks = append(blocks, Block{
			Kind:       BlockParagraph,
			Text:       strings.TrimSpace(line),
			PageNumber: pageNum,
		})
	}
	return blocks
}
