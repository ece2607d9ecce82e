package loaders

import (
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.png")
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImageLoaderDecodesRGBA(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	src.SetRGBA(1, 0, color.RGBA{0, 255, 0, 255})
	src.SetRGBA(0, 1, color.RGBA{0, 0, 255, 255})
	src.SetRGBA(1, 1, color.RGBA{255, 255, 255, 255})
	path := writePNG(t, src)

	loader := &ImageLoader{}
	img, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Width != 2 || img.Height != 2 {
		t.Fatalf("image is %dx%d, want 2x2", img.Width, img.Height)
	}
	if len(img.Pixels) != 2*2*4 {
		t.Fatalf("pixel buffer is %d bytes, want 16", len(img.Pixels))
	}
	// Row-major from the top-left, RGBA.
	if img.Pixels[0] != 255 || img.Pixels[1] != 0 || img.Pixels[2] != 0 {
		t.Errorf("top-left pixel is %v, want red", img.Pixels[0:4])
	}
	if img.Pixels[12] != 255 || img.Pixels[13] != 255 || img.Pixels[14] != 255 {
		t.Errorf("bottom-right pixel is %v, want white", img.Pixels[12:16])
	}
}

func TestImageLoaderDownscales(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 64, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 64; x++ {
			src.SetRGBA(x, y, color.RGBA{10, 20, 30, 255})
		}
	}
	path := writePNG(t, src)

	loader := &ImageLoader{MaxDimension: 8}
	img, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Width != 8 || img.Height != 2 {
		t.Fatalf("image is %dx%d, want 8x2", img.Width, img.Height)
	}
	if img.Pixels[0] != 10 || img.Pixels[1] != 20 || img.Pixels[2] != 30 {
		t.Errorf("scaled pixel is %v, want the source colour", img.Pixels[0:4])
	}
}

func TestFitWithin(t *testing.T) {
	cases := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{100, 50, 200, 100, 50},
		{400, 100, 200, 200, 50},
		{100, 400, 200, 50, 200},
		{256, 256, 64, 64, 64},
		{4096, 1, 64, 64, 1},
	}
	for _, c := range cases {
		w, h := fitWithin(c.w, c.h, c.max)
		if w != c.wantW || h != c.wantH {
			t.Errorf("fitWithin(%d, %d, %d) = (%d, %d), want (%d, %d)",
				c.w, c.h, c.max, w, h, c.wantW, c.wantH)
		}
	}
}

func TestShaderLoader(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "ok.spv")
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data, spirvMagic)
	if err := os.WriteFile(valid, data, 0o644); err != nil {
		t.Fatal(err)
	}

	loader := &ShaderLoader{}
	got, err := loader.Load(valid)
	if err != nil {
		t.Fatalf("Load failed on a valid module: %v", err)
	}
	if len(got) != 8 {
		t.Errorf("loaded %d bytes, want 8", len(got))
	}

	badMagic := filepath.Join(dir, "bad.spv")
	if err := os.WriteFile(badMagic, make([]byte, 8), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loader.Load(badMagic); err == nil {
		t.Error("Load should reject a module with a bad magic")
	}

	truncated := filepath.Join(dir, "short.spv")
	if err := os.WriteFile(truncated, data[:6], 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loader.Load(truncated); err == nil {
		t.Error("Load should reject a module whose size is not a word multiple")
	}

	if _, err := loader.Load(filepath.Join(dir, "missing.spv")); err == nil {
		t.Error("Load should fail on a missing file")
	}
}
