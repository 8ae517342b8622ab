// Package docai wraps Google Document AI as an OCR backend for scanned
// PDFs. It is selected with AIDOC_OCR_ENGINE=docai.
package docai

import (
	"context"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/ctxutil"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/envutil"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/gcputil"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
)

// PageText is recognized text for one page, 1-based.
type PageText struct {
	Page int
	Text string
}

type Processor interface {
	ProcessPDF(ctx context.Context, data []byte) ([]PageText, error)
	Close() error
}

type Config struct {
	ProjectID        string
	Location         string
	ProcessorID      string
	ProcessorVersion string
}

func ConfigFromEnv() Config {
	return Config{
		ProjectID:        strings.TrimSpace(envutil.String("DOCUMENTAI_PROJECT_ID", "")),
		Location:         strings.TrimSpace(envutil.String("DOCUMENTAI_LOCATION", "us")),
		ProcessorID:      strings.TrimSpace(envutil.String("DOCUMENTAI_PROCESSOR_ID", "")),
		ProcessorVersion: strings.TrimSpace(envutil.String("DOCUMENTAI_PROCESSOR_VERSION", "")),
	}
}

// Complete reports whether the config names a processor.
func (c Config) Complete() bool {
	return c.ProjectID != "" && c.Location != "" && c.ProcessorID != ""
}

type processor struct {
	log    *logger.Logger
	cfg    Config
	client *documentai.DocumentProcessorClient
}

func NewProcessor(log *logger.Logger, cfg Config) (Processor, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if !cfg.Complete() {
		return nil, fmt.Errorf("documentai config incomplete: project, location and processor id are required")
	}

	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)
	opts := append([]option.ClientOption{option.WithEndpoint(endpoint)}, gcputil.ClientOptionsFromEnv()...)
	client, err := documentai.NewDocumentProcessorClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}

	slog := log.With("service", "DocumentAI")
	slog.Info("Document AI initialized", "endpoint", endpoint, "processor", cfg.ProcessorID)

	return &processor{
		log:    slog,
		cfg:    cfg,
		client: client,
	}, nil
}

func (p *processor) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}

func (p *processor) ProcessPDF(ctx context.Context, data []byte) ([]PageText, error) {
	if len(data) == 0 {
		return nil, nil
	}
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: p.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: "application/pdf",
			},
		},
		FieldMask: &fieldmaskpb.FieldMask{
			Paths: []string{"text", "pages.page_number", "pages.paragraphs"},
		},
	}

	resp, err := p.client.ProcessDocument(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("documentai ProcessDocument: %w", err)
	}
	if resp == nil || resp.Document == nil {
		return nil, nil
	}
	return pagesFromDocument(resp.Document), nil
}

func pagesFromDocument(doc *documentaipb.Document) []PageText {
	if doc == nil {
		return nil
	}

	out := []PageText{}
	for i, page := range doc.Pages {
		if page == nil {
			continue
		}
		pageNum := int(page.PageNumber)
		if pageNum <= 0 {
			pageNum = i + 1
		}

		var b strings.Builder
		for _, para := range page.Paragraphs {
			if para == nil || para.Layout == nil || para.Layout.TextAnchor == nil {
				continue
			}
			t := strings.TrimSpace(textFromAnchor(doc.Text, para.Layout.TextAnchor))
			if t == "" {
				continue
			}
			b.WriteString(t)
			b.WriteString("\n")
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			out = append(out, PageText{Page: pageNum, Text: text})
		}
	}

	// Some processors populate doc.Text but omit structured paragraphs.
	if len(out) == 0 && strings.TrimSpace(doc.Text) != "" {
		out = append(out, PageText{Page: 1, Text: strings.TrimSpace(doc.Text)})
	}
	return out
}

func textFromAnchor(full string, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil || len(anchor.TextSegments) == 0 || full == "" {
		return ""
	}
	var b strings.Builder
	for _, seg := range anchor.TextSegments {
		if seg == nil {
			continue
		}
		start := int(seg.StartIndex)
		end := int(seg.EndIndex)
		if start < 0 {
			start = 0
		}
		if end > len(full) {
			end = len(full)
		}
		if start >= end {
			continue
		}
		b.WriteString(full[start:end])
	}
	return b.String()
}

func (p *processor) processorName() string {
	base := fmt.Sprintf(
		"projects/%s/locations/%s/processors/%s",
		p.cfg.ProjectID,
		p.cfg.Location,
		p.cfg.ProcessorID,
	)
	if p.cfg.ProcessorVersion != "" {
		return base + "/processorVersions/" + p.cfg.ProcessorVersion
	}
	return base
}
