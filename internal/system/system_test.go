package system

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func touch(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	ts := time.Now().Add(-age)
	if err := os.Chtimes(path, ts, ts); err != nil {
		t.Fatal(err)
	}
}

func TestFindLatest(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "old.pdf"), 2*time.Hour)
	touch(t, filepath.Join(dir, "new.PDF"), time.Hour)
	touch(t, filepath.Join(dir, "scan.png"), 3*time.Hour)
	touch(t, filepath.Join(dir, "fresh.tiff"), time.Minute)

	pdf, err := FindLatestPDF(dir)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(pdf) != "new.PDF" {
		t.Errorf("Expected new.PDF, got %s", pdf)
	}

	img, err := FindLatestImage(dir)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(img) != "fresh.tiff" {
		t.Errorf("Expected fresh.tiff, got %s", img)
	}

	// PDFs win over images when resolving a directory.
	in, err := ResolveInput(dir)
	if err != nil {
		t.Fatal(err)
	}
	if in != pdf {
		t.Errorf("Expected ResolveInput to pick %s, got %s", pdf, in)
	}

	file := filepath.Join(dir, "scan.png")
	if got, _ := ResolveInput(file); got != file {
		t.Errorf("Expected file path unchanged, got %s", got)
	}
	if _, err := FindLatestPDF(t.TempDir()); err == nil {
		t.Error("Expected error for empty directory")
	}
}

func TestImagePool(t *testing.T) {
	p := NewImagePool()
	rect := image.Rect(0, 0, 16, 4)

	img := p.Get(rect)
	if img.Bounds() != rect || len(img.Pix) != 16*4*4 {
		t.Fatalf("Unexpected buffer: bounds %v, %d bytes", img.Bounds(), len(img.Pix))
	}
	p.Put(img)

	shifted := image.Rect(0, 10, 16, 14)
	img2 := p.Get(shifted)
	if img2.Bounds() != shifted {
		t.Errorf("Expected bounds %v, got %v", shifted, img2.Bounds())
	}
	img2.Pix[img2.PixOffset(0, 13)] = 7
	if img2.Pix[img2.PixOffset(0, 13)] != 7 {
		t.Error("Pixel offset broken after rebasing")
	}

	p.Put(nil)
}

func TestSnapshot(t *testing.T) {
	u, err := Snapshot()
	if err != nil {
		t.Logf("Partial snapshot: %v", err)
	}
	if u.Goroutines < 1 || u.HeapInUseBytes == 0 {
		t.Errorf("Runtime fields missing: %+v", u)
	}
	t.Logf("Usage: %s", u)
}
