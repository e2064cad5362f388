package images

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDataURIRoundTrip(t *testing.T) {
	data := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}
	uri := EncodeDataURI("image/png", data)

	mimeType, decoded, err := DecodeDataURI(uri)
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if mimeType != "image/png" || !bytes.Equal(decoded, data) {
		t.Errorf("Expected image/png %v, got %s %v", data, mimeType, decoded)
	}
}

func TestDecodeDataURI_Invalid(t *testing.T) {
	tests := []string{
		"",
		"image/png;base64,AAAA",
		"data:image/png;base64",
		"data:text/plain,hello",
		"data:image/png;base64,!!!",
	}
	for _, uri := range tests {
		if _, _, err := DecodeDataURI(uri); !errors.Is(err, ErrInvalidDataURI) {
			t.Errorf("Expected ErrInvalidDataURI for %q, got %v", uri, err)
		}
	}
}

func TestFetcherLoad(t *testing.T) {
	pngData := testPNG(t, 4, 3)
	ctx := context.Background()
	f := NewFetcher()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(pngData)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "ref.png")
	if err := os.WriteFile(path, pngData, 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	for name, source := range map[string]string{
		"data uri": EncodeDataURI("image/png", pngData),
		"url":      server.URL + "/ref.png",
		"file":     path,
	} {
		t.Run(name, func(t *testing.T) {
			ref, err := f.Load(ctx, source)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if ref.MIMEType != "image/png" || ref.Width != 4 || ref.Height != 3 {
				t.Errorf("Unexpected reference %s %dx%d", ref.MIMEType, ref.Width, ref.Height)
			}
		})
	}

	if _, err := f.Load(ctx, server.URL+"/missing.png"); err == nil {
		t.Error("Expected error for 404")
	}
	if _, err := f.Load(ctx, EncodeDataURI("image/png", []byte("not an image"))); err == nil {
		t.Error("Expected error for undecodable image")
	}
}

func TestWriteZip(t *testing.T) {
	payloads := map[string]string{
		"1":        EncodeDataURI("image/png", []byte("one")),
		"forced_2": EncodeDataURI("image/jpeg", []byte("two")),
		"broken":   "not a data uri",
	}

	var buf bytes.Buffer
	n, err := WriteZip(&buf, payloads)
	if err != nil {
		t.Fatalf("WriteZip failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 files, got %d", n)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("Failed to read archive: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	if len(names) != 2 || names[0] != "images/1.png" || names[1] != "images/forced_2.jpg" {
		t.Errorf("Unexpected archive entries %v", names)
	}
}

func TestWriteBackup(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBackup(&buf, map[string]string{"1": "data:image/png;base64,AAAA"}); err != nil {
		t.Fatalf("WriteBackup failed: %v", err)
	}

	var backup Backup
	if err := json.Unmarshal(buf.Bytes(), &backup); err != nil {
		t.Fatalf("Backup is not JSON: %v", err)
	}
	if backup.Images["1"] != "data:image/png;base64,AAAA" {
		t.Errorf("Unexpected backup %v", backup)
	}
}
