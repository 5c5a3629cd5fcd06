package extract

import (
	"bytes"

	"github.com/ledongthuc/pdf"
)

// PDF extracts the text layer of a PDF document. Pages without a text
// layer (scanned images) contribute nothing; a PDF with no text layer
// at all extracts to the empty string.
type PDF struct{}

func (*PDF) Extract(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
