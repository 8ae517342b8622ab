// Package extract turns uploaded document files into ordered text segments.
//
// PDFs extract page by page, layout-aware first with a low-level per-row
// fallback, and run through OCR when no page has machine-readable text.
// DOCX and plain text collapse to a single segment. Every extracted segment
// is normalized and repeated headers/footers are stripped before the result
// is handed to the chunker.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	types "github.com/andrewmcdan/AI-Document-Interview-System/internal/domain"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/ingestion/textproc"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/ctxutil"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
)

type Extractor struct {
	log *logger.Logger
	ocr OCREngine
}

// New builds an extractor. ocr may be nil when no engine is configured;
// scanned PDFs then extract to nothing.
func New(log *logger.Logger, ocr OCREngine) *Extractor {
	return &Extractor{
		log: log.With("service", "TextExtractor"),
		ocr: ocr,
	}
}

// Extract dispatches on the file extension and returns cleaned, non-empty
// segments or fails with ErrUnsupportedFormat / ErrNoTextExtracted.
func (e *Extractor) Extract(ctx context.Context, path string) ([]types.Segment, error) {
	ctx = ctxutil.Default(ctx)

	var (
		segments []types.Segment
		err      error
	)
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		segments, err = e.extractPDF(ctx, path)
	case ".docx":
		segments, err = extractDOCX(path)
	case ".txt", ".md":
		segments, err = extractText(path)
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	cleaned := make([]types.Segment, 0, len(segments))
	for _, seg := range segments {
		seg.Text = textproc.Normalize(seg.Text)
		if seg.Text == "" {
			continue
		}
		cleaned = append(cleaned, seg)
	}
	cleaned = textproc.StripRepeatedEdges(cleaned)

	if len(cleaned) == 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrNoTextExtracted, filepath.Base(path))
	}
	return cleaned, nil
}
