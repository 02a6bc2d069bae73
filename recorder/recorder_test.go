package recorder

import (
	"image"
	"os"
	"path/filepath"
	"testing"
)

func TestOfferWritesEveryNthFrame(t *testing.T) {
	dir := t.TempDir()
	r, err := New(dir, 3)
	if err != nil {
		t.Fatal(err)
	}
	img := image.NewGray(image.Rect(0, 0, 4, 4))

	var wrote int
	for i := 0; i < 9; i++ {
		ok, err := r.Offer(img)
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			wrote++
		}
	}
	if wrote != 3 {
		t.Fatalf("wrote = %d, want 3 (every 3rd of 9 offers)", wrote)
	}
	if r.Written() != 3 {
		t.Fatalf("Written() = %d, want 3", r.Written())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
}

func TestNewCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dump")
	if _, err := New(dir, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("expected %s to exist: %v", dir, err)
	}
}
