package document

import (
	"strings"
	"testing"
	"time"
)

func TestNew_Valid(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("X", 3600))

	doc, err := New("doc-1", "report.pdf", "http://blob/doc-1-report.pdf", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID() != "doc-1" {
		t.Errorf("ID() = %q", doc.ID())
	}
	if doc.Status() != StatusUploaded {
		t.Errorf("Status() = %q, want %q", doc.Status(), StatusUploaded)
	}
	if doc.UploadedAt().Location() != time.UTC {
		t.Errorf("UploadedAt() should be UTC, got %v", doc.UploadedAt().Location())
	}
	if !doc.ProcessedAt().IsZero() {
		t.Errorf("ProcessedAt() should be zero for a new document")
	}
	if doc.Queryable() {
		t.Error("new document should not be queryable")
	}
}

func TestNew_Invalid(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name, id, file, url string
	}{
		{"empty id", "", "a.pdf", "u"},
		{"bad chars", "doc 1", "a.pdf", "u"},
		{"too long", strings.Repeat("a", MaxIDLength+1), "a.pdf", "u"},
		{"no file name", "doc-1", "  ", "u"},
		{"no url", "doc-1", "a.pdf", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.id, tc.file, tc.url, now); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusUploaded, StatusProcessing, true},
		{StatusProcessing, StatusProcessed, true},
		{StatusProcessing, StatusFailed, true},
		{StatusUploaded, StatusFailed, true},
		{StatusProcessed, StatusProcessing, true},
		{StatusFailed, StatusProcessing, true},
		{StatusProcessing, StatusProcessing, true},
		{StatusUploaded, StatusProcessed, false},
		{StatusProcessed, StatusUploaded, false},
		{StatusProcessed, StatusFailed, false},
		{StatusFailed, StatusProcessed, false},
	}
	for _, tc := range tests {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestAllowedFrom_ReturnsCopy(t *testing.T) {
	a := AllowedFrom(StatusProcessed)
	a[0] = StatusFailed
	if AllowedFrom(StatusProcessed)[0] != StatusProcessing {
		t.Fatal("AllowedFrom must not expose the internal table")
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"uploaded", "processing", "processed", "processing_failed"} {
		if _, err := ParseStatus(s); err != nil {
			t.Errorf("ParseStatus(%q) unexpected error: %v", s, err)
		}
	}
	if _, err := ParseStatus("pending"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	if StatusProcessing.IsTerminal() || StatusUploaded.IsTerminal() {
		t.Error("uploaded/processing must not be terminal")
	}
	if !StatusProcessed.IsTerminal() || !StatusFailed.IsTerminal() {
		t.Error("processed/processing_failed must be terminal")
	}
}

func TestReconstruct(t *testing.T) {
	up := time.Unix(100, 0).UTC()
	done := time.Unix(200, 0).UTC()
	doc := Reconstruct("d", "f.pdf", "u", StatusProcessed, up, done, 7, "")
	if doc.ChunkCount() != 7 || !doc.ProcessedAt().Equal(done) || !doc.Queryable() {
		t.Errorf("unexpected reconstructed document: %+v", doc)
	}
}
