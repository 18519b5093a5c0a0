package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

type DOCXParser struct{}

func (p *DOCXParser) SupportedFormats() []string { return []string{"docx"} }

func (p *DOCXParser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening DOCX: %w", err)
	}
	defer r.Close()

	// Find word/document.xml
	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("word/document.xml not found in DOCX")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("opening document.xml: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}

	blocks, err := parseDocxXML(data)
	if err != nil {
		return nil, fmt.Errorf("parsing DOCX XML: %w", err)
	}

	return &ParseResult{
		Blocks: blocks,
		Method: "native",
	}, nil
}

// parseDocxXML walks word/document.xml and returns body paragraphs and
// tables in the order they appear. Content controls and other wrappers are
// descended into; section properties are skipped.
func parseDocxXML(data []byte) ([]Block, error) {
	d := xml.NewDecoder(bytes.NewReader(data))

	var blocks []Block
	inBody, sawBody := false, false
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if !inBody {
				if t.Name.Local == "body" {
					inBody, sawBody = true, true
				}
				continue
			}
			switch t.Name.Local {
			case "p":
				text, err := decodeDocxPara(d)
				if err != nil {
					return nil, err
				}
				blocks = append(blocks, Block{Kind: BlockParagraph, Text: text})
			case "tbl":
				rows, err := decodeDocxTable(d)
				if err != nil {
					return nil, err
				}
				blocks = append(blocks, Block{Kind: BlockTable, Rows: rows})
			case "sectPr":
				if err := d.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "body" {
				inBody = false
			}
		}
	}

	if !sawBody {
		return nil, fmt.Errorf("document body not found")
	}
	return blocks, nil
}

// decodeDocxPara reads a w:p element whose start tag was already consumed
// and returns its text. Line breaks become "\n" and tabs "\t".
func decodeDocxPara(d *xml.Decoder) (string, error) {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				var s string
				if err := d.DecodeElement(&s, &t); err != nil {
					return "", err
				}
				b.WriteString(s)
			case "br", "cr":
				b.WriteString("\n")
				if err := d.Skip(); err != nil {
					return "", err
				}
			case "tab":
				b.WriteString("\t")
				if err := d.Skip(); err != nil {
					return "", err
				}
			case "pPr", "rPr", "instrText", "delText":
				if err := d.Skip(); err != nil {
					return "", err
				}
			default:
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}
	return b.String(), nil
}

// decodeDocxTable reads a w:tbl element whose start tag was already
// consumed and returns its rows of cell texts.
func decodeDocxTable(d *xml.Decoder) ([][]string, error) {
	var rows [][]string
	var row []string
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tr":
				row = nil
				depth++
			case "tc":
				cell, err := decodeDocxCell(d)
				if err != nil {
					return nil, err
				}
				row = append(row, cell)
			case "tblPr", "tblGrid", "trPr":
				if err := d.Skip(); err != nil {
					return nil, err
				}
			default:
				depth++
			}
		case xml.EndElement:
			if t.Name.Local == "tr" {
				rows = append(rows, row)
				row = nil
			}
			depth--
		}
	}
	return rows, nil
}

// decodeDocxCell reads a w:tc element and joins its paragraphs with "\n".
// Rows of a nested table are appended as further lines of the cell.
func decodeDocxCell(d *xml.Decoder) (string, error) {
	var paras []string
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				text, err := decodeDocxPara(d)
				if err != nil {
					return "", err
				}
				paras = append(paras, text)
			case "tbl":
				rows, err := decodeDocxTable(d)
				if err != nil {
					return "", err
				}
				for _, r := range rows {
					paras = append(paras, strings.Join(r, " "))
				}
			case "tcPr":
				if err := d.Skip(); err != nil {
					return "", err
				}
			default:
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}
	return strings.Join(paras, "\n"), nil
}
