package chunk

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kailas-cloud/pdfchat/internal/domain"
)

func contents(cs []TextChunk) []string { return Contents(cs) }

func TestSplit_Example(t *testing.T) {
	got, err := Split("ABCDEFGHIJ", Options{Size: 4, Overlap: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"ABCD", "DEFG", "GHIJ"}
	if !reflect.DeepEqual(contents(got), want) {
		t.Fatalf("got %q, want %q", contents(got), want)
	}
	for i, c := range got {
		if c.Index() != i {
			t.Errorf("chunk %d has index %d", i, c.Index())
		}
		if c.Metadata.PageNumber != 1 {
			t.Errorf("chunk %d page = %d, want 1", i, c.Metadata.PageNumber)
		}
	}
}

func TestSplit_InvalidConfig(t *testing.T) {
	tests := []Options{
		{Size: 0, Overlap: 0},
		{Size: -1, Overlap: 0},
		{Size: 4, Overlap: -1},
		{Size: 4, Overlap: 4},
		{Size: 4, Overlap: 10},
	}
	for _, o := range tests {
		_, err := Split("anything", o)
		if !errors.Is(err, domain.ErrInvalidChunkConfig) {
			t.Errorf("Split(%+v) err = %v, want ErrInvalidChunkConfig", o, err)
		}
	}
}

func TestSplit_EmptyText(t *testing.T) {
	got, err := Split("", DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", got)
	}
}

func TestSplit_ZeroOverlapPartitions(t *testing.T) {
	text := "abcdefghijklmnopqrstuvwxyz"
	for size := 1; size <= len(text)+2; size++ {
		got, err := Split(text, Options{Size: size})
		if err != nil {
			t.Fatalf("size %d: %v", size, err)
		}
		wantN := (len(text) + size - 1) / size
		if len(got) != wantN {
			t.Errorf("size %d: %d chunks, want %d", size, len(got), wantN)
		}
		if strings.Join(contents(got), "") != text {
			t.Errorf("size %d: pieces do not reconstruct text", size)
		}
		for _, c := range got {
			if utf8.RuneCountInString(c.Content) > size {
				t.Errorf("size %d: chunk %q too long", size, c.Content)
			}
		}
	}
}

func TestSplit_ReconstructsWithOverlap(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog"
	for size := 1; size <= 15; size++ {
		for overlap := 0; overlap < size; overlap++ {
			got, err := Split(text, Options{Size: size, Overlap: overlap})
			if err != nil {
				t.Fatalf("size=%d overlap=%d: %v", size, overlap, err)
			}

			// Windows covering only spaces are dropped, so rebuild from kept
			// windows only when every window survived.
			step := size - overlap
			expected := 1
			if len(text) > size {
				expected += (len(text) - size + step - 1) / step
			}
			if len(got) != expected {
				continue
			}

			var b strings.Builder
			for i, c := range got {
				if i == 0 {
					b.WriteString(c.Content)
					continue
				}
				b.WriteString(string([]rune(c.Content)[overlap:]))
			}
			if b.String() != text {
				t.Errorf("size=%d overlap=%d: reconstructed %q", size, overlap, b.String())
			}
		}
	}
}

func TestSplit_ContentIsSubstring(t *testing.T) {
	text := "alpha beta gamma delta epsilon zeta eta theta"
	got, err := Split(text, Options{Size: 7, Overlap: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range got {
		if !strings.Contains(text, c.Content) {
			t.Errorf("chunk %q is not a substring of the text", c.Content)
		}
	}
}

func TestSplit_DropsWhitespaceWithoutGaps(t *testing.T) {
	got, err := Split("AAAA    BBBB", Options{Size: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(contents(got), []string{"AAAA", "BBBB"}) {
		t.Fatalf("got %q", contents(got))
	}
	if got[1].Index() != 1 {
		t.Errorf("second kept chunk index = %d, want 1", got[1].Index())
	}
}

func TestSplit_PageNumbers(t *testing.T) {
	text := "page one" + PageSeparator + "page two" + PageSeparator + "three"
	got, err := Split(text, Options{Size: 8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{1, 1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %d chunks (%q), want %d", len(got), contents(got), len(want))
	}
	for i, c := range got {
		if c.Metadata.PageNumber != want[i] {
			t.Errorf("chunk %d (%q) page = %d, want %d", i, c.Content, c.Metadata.PageNumber, want[i])
		}
	}
}

func TestSplit_MultiByteRunes(t *testing.T) {
	text := "héllo wörld ünïcode"
	got, err := Split(text, Options{Size: 3, Overlap: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range got {
		if !utf8.ValidString(c.Content) {
			t.Errorf("chunk %q is not valid UTF-8", c.Content)
		}
		if utf8.RuneCountInString(c.Content) > 3 {
			t.Errorf("chunk %q longer than 3 runes", c.Content)
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet ", 200)
	a, _ := Split(text, DefaultOptions())
	b, _ := Split(text, DefaultOptions())
	if !reflect.DeepEqual(a, b) {
		t.Fatal("identical input produced different chunks")
	}
}

func TestPair(t *testing.T) {
	chunks := []TextChunk{
		{Content: "a", Metadata: Metadata{ChunkIndex: 0}},
		{Content: "b", Metadata: Metadata{ChunkIndex: 1}},
	}
	out, err := Pair("doc", chunks, [][]float32{{1}, {2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[1].Content != "b" || out[1].Embedding[0] != 2 || out[1].DocumentID != "doc" {
		t.Errorf("unexpected pairing: %+v", out[1])
	}

	if _, err := Pair("doc", chunks, [][]float32{{1}}); !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("length mismatch err = %v, want ErrEmbeddingProviderError", err)
	}
	if _, err := Pair("doc", chunks, [][]float32{{1}, {}}); !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("empty vector err = %v, want ErrEmbeddingProviderError", err)
	}
}

func TestMetadata_With(t *testing.T) {
	m := Metadata{PageNumber: 2, ChunkIndex: 5}
	m2 := m.With("source", "upload")
	if m.Extra != nil {
		t.Error("With must not mutate the receiver")
	}
	if m2.Extra["source"] != "upload" {
		t.Errorf("Extra = %v", m2.Extra)
	}
	if m3 := m2.With(KeyPageNumber, "9"); m3.PageNumber != 2 {
		t.Error("recognized keys must not be overridden through Extra")
	}
}
