package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	types "github.com/andrewmcdan/AI-Document-Interview-System/internal/domain"
)

// extractDOCX reads word/document.xml and joins non-blank paragraphs into a
// single page-1 segment. DOCX carries no reliable page boundaries, so the
// whole body counts as one page.
func extractDOCX(path string) ([]types.Segment, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body = f
			break
		}
	}
	if body == nil {
		return nil, fmt.Errorf("docx missing word/document.xml")
	}

	rc, err := body.Open()
	if err != nil {
		return nil, fmt.Errorf("open docx body: %w", err)
	}
	defer rc.Close()

	paragraphs, err := docxParagraphs(rc)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(strings.Join(paragraphs, "\n"))
	if text == "" {
		return nil, nil
	}
	page := 1
	return []types.Segment{{Text: text, Page: &page}}, nil
}

// docxParagraphs collects <w:t> runs per <w:p> paragraph. Tabs and breaks
// inside a paragraph become spaces; blank paragraphs are skipped.
func docxParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		current    strings.Builder
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse docx xml: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "p":
				current.Reset()
			case "t":
				var run string
				if err := dec.DecodeElement(&run, &el); err != nil {
					return nil, fmt.Errorf("parse docx run: %w", err)
				}
				current.WriteString(run)
			case "tab", "br":
				current.WriteString(" ")
			}
		case xml.EndElement:
			if el.Name.Local == "p" {
				if text := strings.TrimSpace(current.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
				current.Reset()
			}
		}
	}
	return paragraphs, nil
}
