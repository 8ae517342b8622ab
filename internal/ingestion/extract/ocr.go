package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	types "github.com/andrewmcdan/AI-Document-Interview-System/internal/domain"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/ctxutil"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/docai"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
)

// OCREngine recognizes text from a scanned PDF. Engines report their own
// availability so a missing system dependency degrades to zero segments
// instead of failing the extraction outright.
type OCREngine interface {
	Name() string
	Available(ctx context.Context) bool
	RecognizePDF(ctx context.Context, pdfPath string) ([]types.Segment, error)
}

// tesseractEngine shells out to pdftoppm (poppler-utils) for page rendering
// and tesseract for recognition. Both binaries must be on PATH.
type tesseractEngine struct {
	log *logger.Logger

	tesseractPath string
	pdftoppmPath  string

	workRoot string
	dpi      int

	defaultTimeout time.Duration
}

func NewTesseractEngine(log *logger.Logger) OCREngine {
	slog := log.With("service", "TesseractOCR")
	return &tesseractEngine{
		log:            slog,
		tesseractPath:  "tesseract",
		pdftoppmPath:   "pdftoppm",
		workRoot:       "/tmp/aidoc-ocr",
		dpi:            200,
		defaultTimeout: 10 * time.Minute,
	}
}

func (t *tesseractEngine) Name() string { return "tesseract" }

func (t *tesseractEngine) Available(ctx context.Context) bool {
	for _, bin := range []string{t.tesseractPath, t.pdftoppmPath} {
		if _, err := exec.LookPath(bin); err != nil {
			return false
		}
	}
	return true
}

func (t *tesseractEngine) RecognizePDF(ctx context.Context, pdfPath string) ([]types.Segment, error) {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, t.defaultTimeout)
	defer cancel()

	if pdfPath == "" {
		return nil, fmt.Errorf("pdfPath required")
	}
	if err := os.MkdirAll(t.workRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create workRoot: %w", err)
	}
	outDir, err := os.MkdirTemp(t.workRoot, "ocr-*")
	if err != nil {
		return nil, fmt.Errorf("create ocr workdir: %w", err)
	}
	defer os.RemoveAll(outDir)

	prefix := filepath.Join(outDir, "page")
	cmd := exec.CommandContext(ctx, t.pdftoppmPath, "-r", strconv.Itoa(t.dpi), "-png", pdfPath, prefix)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w; out=%s", err, string(out))
	}

	images, err := globSorted(outDir, `^page-\d+\.png$`)
	if err != nil || len(images) == 0 {
		return nil, fmt.Errorf("no page images produced by pdftoppm; out=%s", string(out))
	}

	var segments []types.Segment
	for _, img := range images {
		text, err := t.recognizeImage(ctx, img)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		page, ok := pageNumberFromImage(filepath.Base(img))
		if !ok {
			continue
		}
		segments = append(segments, types.Segment{Text: text, Page: &page})
	}
	t.log.Info("ocr finished", "pages_rendered", len(images), "pages_with_text", len(segments))
	return segments, nil
}

func (t *tesseractEngine) recognizeImage(ctx context.Context, imgPath string) (string, error) {
	// Recognized text arrives on stdout; diagnostics go to stderr.
	cmd := exec.CommandContext(ctx, t.tesseractPath, imgPath, "stdout")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract failed on %s: %w", filepath.Base(imgPath), err)
	}
	return string(out), nil
}

// pdftoppm names rendered pages page-N.png with the true 1-based page number,
// zero-padded to the page count width.
var pageImageRE = regexp.MustCompile(`^page-0*(\d+)\.png$`)

func pageNumberFromImage(name string) (int, bool) {
	m := pageImageRE.FindStringSubmatch(strings.ToLower(name))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func globSorted(dir string, pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if re.MatchString(strings.ToLower(e.Name())) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// docaiEngine adapts the Document AI processor to the OCR cascade for
// deployments without local tesseract.
type docaiEngine struct {
	log  *logger.Logger
	proc docai.Processor
}

func NewDocAIEngine(log *logger.Logger, proc docai.Processor) OCREngine {
	return &docaiEngine{log: log.With("service", "DocAIOCR"), proc: proc}
}

func (d *docaiEngine) Name() string { return "docai" }

func (d *docaiEngine) Available(ctx context.Context) bool { return d.proc != nil }

func (d *docaiEngine) RecognizePDF(ctx context.Context, pdfPath string) ([]types.Segment, error) {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("read pdf for ocr: %w", err)
	}
	pages, err := d.proc.ProcessPDF(ctx, data)
	if err != nil {
		return nil, err
	}

	segments := make([]types.Segment, 0, len(pages))
	for _, pt := range pages {
		if strings.TrimSpace(pt.Text) == "" {
			continue
		}
		page := pt.Page
		segments = append(segments, types.Segment{Text: pt.Text, Page: &page})
	}
	return segments, nil
}
