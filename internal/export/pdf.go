package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// RenderPDF renders the document as a text-only A4 PDF.
func RenderPDF(doc Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	left, _, right, _ := pdf.GetMargins()
	pageW, _ := pdf.GetPageSize()
	textW := pageW - left - right

	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(textW, 8, doc.Title, "", "L", false)
	pdf.Ln(2)

	for _, section := range doc.Sections {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.MultiCell(textW, 6, section.Heading, "", "L", false)

		pdf.SetFont("Helvetica", "", 11)
		for _, p := range section.Paragraphs {
			pdf.MultiCell(textW, 6, p, "", "L", false)
		}
		for _, b := range section.Bullets {
			pdf.MultiCell(textW, 6, "- "+b, "", "L", false)
		}
		pdf.Ln(2)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return buf.Bytes(), nil
}
