package extract

import (
	"context"
	"fmt"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	types "github.com/andrewmcdan/AI-Document-Interview-System/internal/domain"
)

// extractPDF walks pages in order, keeping true 1-based page numbers even
// when earlier pages yield nothing. A document with no machine-readable text
// on any page falls through to the OCR engine; with no engine configured it
// yields zero segments.
func (e *Extractor) extractPDF(ctx context.Context, path string) ([]types.Segment, error) {
	segments, err := readPDFPages(path)
	if err != nil {
		return nil, err
	}
	if len(segments) > 0 {
		return segments, nil
	}

	if e.ocr == nil || !e.ocr.Available(ctx) {
		e.log.Warn("pdf has no machine-readable text and no OCR engine is available", "path", path)
		return nil, nil
	}
	e.log.Info("pdf has no machine-readable text, running ocr", "engine", e.ocr.Name())
	return e.ocr.RecognizePDF(ctx, path)
}

// readPDFPages recovers from parser panics: the pdf library faults on some
// malformed files instead of returning an error.
func readPDFPages(path string) (segments []types.Segment, err error) {
	defer func() {
		if r := recover(); r != nil {
			segments = nil
			err = fmt.Errorf("pdf parse: %v", r)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	// Font objects are cached across pages so repeated charmaps parse once.
	fonts := make(map[string]*pdflib.Font)

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := page.Font(name)
				fonts[name] = &font
			}
		}

		text, terr := page.GetPlainText(fonts)
		if terr != nil || strings.TrimSpace(text) == "" {
			text = pageTextByRow(page)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		pageNo := i
		segments = append(segments, types.Segment{Text: text, Page: &pageNo})
	}
	return segments, nil
}

// pageTextByRow is the low-level fallback for pages where the plain-text
// walk comes back empty, typically due to unusual content streams.
func pageTextByRow(page pdflib.Page) string {
	rows, err := page.GetTextByRow()
	if err != nil {
		return ""
	}
	var b strings.Builder
	for _, row := range rows {
		for _, piece := range row.Content {
			b.WriteString(piece.S)
		}
		b.WriteString("\n")
	}
	return b.String()
}
