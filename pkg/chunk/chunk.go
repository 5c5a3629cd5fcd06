package chunk

import "fmt"

// Default window configuration used by the ingestion pipeline.
const (
	DefaultSize    = 500
	DefaultOverlap = 50
)

// Splitter cuts text into fixed-size overlapping windows.
type Splitter struct {
	size    int
	overlap int
}

// New creates a Splitter. The stride (size - overlap) must be strictly
// positive, otherwise splitting would never terminate.
func New(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must be non-negative, got %d", overlap)
	}
	if size-overlap <= 0 {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than size %d", overlap, size)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Default returns a Splitter with the default window configuration.
func Default() *Splitter {
	s, err := New(DefaultSize, DefaultOverlap)
	if err != nil {
		panic(err) // unreachable with the constants above
	}
	return s
}

// Split returns the ordered sequence of windows covering text. Windows
// are measured in runes, never bytes, so multi-byte text is not cut
// mid-character. Consecutive windows overlap by exactly the configured
// overlap; the final window may be shorter. Empty text yields no
// windows.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	stride := s.size - s.overlap
	var chunks []string
	for start := 0; start < len(runes); start += stride {
		end := start + s.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// Size returns the configured window size.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the configured window overlap.
func (s *Splitter) Overlap() int { return s.overlap }
