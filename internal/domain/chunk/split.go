package chunk

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/pdfchat/internal/domain"
)

// PageSeparator marks page boundaries in extracted text.
const PageSeparator = "\n\n"

// Default window used by the upload pipeline.
const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// Options configures the sliding window. Sizes are in characters (runes).
type Options struct {
	Size    int
	Overlap int
}

// DefaultOptions returns the window used for uploaded PDFs.
func DefaultOptions() Options {
	return Options{Size: DefaultSize, Overlap: DefaultOverlap}
}

// Validate rejects windows that cannot advance.
func (o Options) Validate() error {
	if o.Size <= 0 {
		return fmt.Errorf("%w: size must be positive, got %d", domain.ErrInvalidChunkConfig, o.Size)
	}
	if o.Overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", domain.ErrInvalidChunkConfig, o.Overlap)
	}
	if o.Overlap >= o.Size {
		return fmt.Errorf("%w: overlap %d must be smaller than size %d",
			domain.ErrInvalidChunkConfig, o.Overlap, o.Size)
	}
	return nil
}

// Split cuts text into windows of opts.Size advancing by Size-Overlap.
// The last window is clipped to the end of the text and ends the iteration.
// Whitespace-only windows are dropped; ChunkIndex counts kept chunks only.
func Split(text string, opts Options) ([]TextChunk, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return []TextChunk{}, nil
	}

	pages := pageStarts(runes)
	step := opts.Size - opts.Overlap
	out := make([]TextChunk, 0, n/step+1)

	for start := 0; start < n; start += step {
		end := min(start+opts.Size, n)
		content := string(runes[start:end])

		if strings.TrimSpace(content) != "" {
			out = append(out, TextChunk{
				Content: content,
				Metadata: Metadata{
					PageNumber: sort.SearchInts(pages, start+1),
					ChunkIndex: len(out),
				},
			})
		}

		if end == n {
			break
		}
	}

	return out, nil
}

// pageStarts returns the rune offset where each page begins.
func pageStarts(runes []rune) []int {
	starts := []int{0}
	for i := 0; i+1 < len(runes); i++ {
		if runes[i] == '\n' && runes[i+1] == '\n' {
			starts = append(starts, i+2)
			i++
		}
	}
	return starts
}
