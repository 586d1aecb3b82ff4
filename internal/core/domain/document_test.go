package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindForPath(t *testing.T) {
	assert.Equal(t, DocumentKindPDF, KindForPath("/tmp/report.pdf"))
	assert.Equal(t, DocumentKindImage, KindForPath("/tmp/scan.PNG"))
	assert.Equal(t, DocumentKindImage, KindForPath("photo.jpeg"))
	assert.Equal(t, DocumentKindPDF, KindForPath("noext"))
}

func TestExtractedText_Text(t *testing.T) {
	text := ExtractedText{
		Source: "a.pdf",
		Method: ExtractionDirect,
		Pages: []PageText{
			{Number: 1, Text: "first page"},
			{Number: 3, Text: "third page"},
		},
	}

	rendered := text.Text()

	assert.Contains(t, rendered, "--- PDF: a.pdf | Page: 1 ---\nfirst page\n")
	assert.Contains(t, rendered, "--- PDF: a.pdf | Page: 3 ---\nthird page\n")
	assert.Less(t, strings.Index(rendered, "first page"), strings.Index(rendered, "third page"))
}

func TestExtractedText_Empty(t *testing.T) {
	assert.True(t, ExtractedText{}.Empty())
	assert.True(t, ExtractedText{Pages: []PageText{{Number: 1, Text: "  \n"}}}.Empty())
	assert.False(t, ExtractedText{Pages: []PageText{{Number: 1, Text: "x"}}}.Empty())
}
