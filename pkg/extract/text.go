package extract

import "os"

// PlainText extracts text from .txt files by reading them verbatim.
type PlainText struct{}

func (*PlainText) Extract(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
