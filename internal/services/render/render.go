package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/referolabs/refero/internal/models"
)

// Format is a supported download format
type Format string

const (
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
)

// ParseFormat validates a format string, defaulting to txt
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "txt", "text":
		return FormatText, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported format %q (want txt, md, html or pdf)", value)
	}
}

// ContentType returns the MIME type served for the format
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Render serializes a report into the requested format
func Render(report *models.Report, format Format) ([]byte, error) {
	switch format {
	case FormatText:
		return renderText(report), nil
	case FormatMarkdown:
		return renderMarkdown(report), nil
	case FormatHTML:
		return renderHTML(report)
	case FormatPDF:
		return renderPDF(report)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func renderText(report *models.Report) []byte {
	var b strings.Builder
	b.WriteString(report.Theme)
	b.WriteString("\n\n")
	for _, section := range report.Sections {
		b.WriteString(section.Title)
		b.WriteString("\n\n")
		b.WriteString(section.Content)
		b.WriteString("\n\n")
	}
	return []byte(strings.TrimRight(b.String(), "\n") + "\n")
}

func renderMarkdown(report *models.Report) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", report.Theme)
	for _, section := range report.Sections {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", section.Title, section.Content)
	}
	return []byte(strings.TrimRight(b.String(), "\n") + "\n")
}

func renderHTML(report *models.Report) ([]byte, error) {
	md := goldmark.New(
		goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
	)

	var body bytes.Buffer
	if err := md.Convert(renderMarkdown(report), &body); err != nil {
		return nil, fmt.Errorf("failed to render HTML: %w", err)
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n", htmlEscape(report.Theme))
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}

func renderPDF(report *models.Report) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	translate := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, translate(report.Theme), "", "L", false)
	pdf.Ln(4)

	for _, section := range report.Sections {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.MultiCell(0, 7, translate(section.Title), "", "L", false)
		pdf.Ln(1)
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, translate(section.Content), "", "L", false)
		pdf.Ln(4)
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return out.Bytes(), nil
}

func htmlEscape(s string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return replacer.Replace(s)
}
