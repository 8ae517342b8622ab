package docai

import (
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
)

func anchoredParagraph(start, end int64) *documentaipb.Document_Page_Paragraph {
	return &documentaipb.Document_Page_Paragraph{
		Layout: &documentaipb.Document_Page_Layout{
			TextAnchor: &documentaipb.Document_TextAnchor{
				TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{
					{StartIndex: start, EndIndex: end},
				},
			},
		},
	}
}

func TestPagesFromDocumentAnchoredParagraphs(t *testing.T) {
	doc := &documentaipb.Document{
		Text: "first page text second page text",
		Pages: []*documentaipb.Document_Page{
			{
				PageNumber: 1,
				Paragraphs: []*documentaipb.Document_Page_Paragraph{
					anchoredParagraph(0, 15),
				},
			},
			{
				PageNumber: 2,
				Paragraphs: []*documentaipb.Document_Page_Paragraph{
					anchoredParagraph(16, 32),
				},
			},
		},
	}

	pages := pagesFromDocument(doc)
	if len(pages) != 2 {
		t.Fatalf("pages length: want=2 got=%d", len(pages))
	}
	if pages[0].Page != 1 || pages[0].Text != "first page text" {
		t.Fatalf("page 1: got page=%d text=%q", pages[0].Page, pages[0].Text)
	}
	if pages[1].Page != 2 || pages[1].Text != "second page text" {
		t.Fatalf("page 2: got page=%d text=%q", pages[1].Page, pages[1].Text)
	}
}

func TestPagesFromDocumentFallsBackToPrimaryText(t *testing.T) {
	doc := &documentaipb.Document{
		Text:  "whole document text with no page structure",
		Pages: nil,
	}

	pages := pagesFromDocument(doc)
	if len(pages) != 1 {
		t.Fatalf("pages length: want=1 got=%d", len(pages))
	}
	if pages[0].Page != 1 {
		t.Fatalf("fallback page: want=1 got=%d", pages[0].Page)
	}
	if pages[0].Text != "whole document text with no page structure" {
		t.Fatalf("fallback text: got=%q", pages[0].Text)
	}
}

func TestTextFromAnchorClampsRanges(t *testing.T) {
	full := "short"
	anchor := &documentaipb.Document_TextAnchor{
		TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{
			{StartIndex: -3, EndIndex: 2},
			{StartIndex: 3, EndIndex: 99},
		},
	}
	if got := textFromAnchor(full, anchor); got != "shrt" {
		t.Fatalf("textFromAnchor: want=%q got=%q", "shrt", got)
	}
}

func TestConfigComplete(t *testing.T) {
	if (Config{}).Complete() {
		t.Fatalf("empty config should not be complete")
	}
	cfg := Config{ProjectID: "p", Location: "us", ProcessorID: "proc"}
	if !cfg.Complete() {
		t.Fatalf("config with project, location and processor should be complete")
	}
}
