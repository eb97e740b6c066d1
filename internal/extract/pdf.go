package extract

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

// pdfDocument wraps a ledongthuc/pdf reader and the underlying file handle.
type pdfDocument struct {
	file   *os.File
	reader *pdf.Reader
}

// OpenPDF opens the PDF at path. Returns an error if the file cannot be read
// or is not a parsable PDF.
func OpenPDF(path string) (Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open PDF %s: %w", path, err)
	}
	return &pdfDocument{file: f, reader: r}, nil
}

func (d *pdfDocument) PageCount() int {
	return d.reader.NumPage()
}

func (d *pdfDocument) PageText(n int) (string, error) {
	page := d.reader.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extract page %d: %w", n, err)
	}
	return text, nil
}

func (d *pdfDocument) Close() error {
	return d.file.Close()
}
