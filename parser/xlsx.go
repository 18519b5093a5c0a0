package parser

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

type XLSXParser struct{}

func (p *XLSXParser) SupportedFormats() []string { return []string{"xlsx"} }

// Parse reads every sheet as one table block. A sheet name is emitted as a
// paragraph ahead of its rows so that term headers kept in sheet names
// ("Year 1, Semester 1") still reach the extractor.
func (p *XLSXParser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening XLSX: %w", err)
	}
	defer f.Close()

	var blocks []Block
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}

		if len(rows) == 0 {
			continue
		}

		blocks = append(blocks,
			Block{Kind: BlockParagraph, Text: sheet},
			Block{Kind: BlockTable, Rows: rows},
		)
	}

	if len(blocks) == 0 {
		return nil, fmt.Errorf("no data found in XLSX")
	}

	return &ParseResult{
		Blocks: blocks,
		Method: "native",
		Metadata: map[string]string{
			"sheet_count": fmt.Sprintf("%d", len(blocks)/2),
		},
	}, nil
}
