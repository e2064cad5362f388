package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/promptmarket/gallery/internal/providers"
)

func TestGenerateImage(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("Expected /images/generations, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected bearer auth, got %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString([]byte("png-bytes"))}},
		})
	}))
	defer server.Close()

	client, err := New("test-key", server.URL)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	resp, err := client.GenerateImage(context.Background(), providers.Request{
		Model:       DefaultModel,
		Parts:       []providers.Part{providers.TextPart("a cat sleeping")},
		AspectRatio: "16:9",
	})
	if err != nil {
		t.Fatalf("GenerateImage failed: %v", err)
	}

	if got["prompt"] != "a cat sleeping" || got["size"] != "1536x1024" {
		t.Errorf("Unexpected request body %v", got)
	}
	if _, ok := got["response_format"]; ok {
		t.Error("Expected no response_format for gpt-image models")
	}

	img, ok := resp.FirstImage()
	if !ok {
		t.Fatal("Expected an image part")
	}
	if string(img.Data) != "png-bytes" || img.MIMEType != "image/png" {
		t.Errorf("Unexpected image part %q %s", img.Data, img.MIMEType)
	}
}

func TestGenerateImage_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "You exceeded your current quota", "type": "insufficient_quota"}}`))
	}))
	defer server.Close()

	client, _ := New("test-key", server.URL)
	_, err := client.GenerateImage(context.Background(), providers.Request{
		Model: DefaultModel,
		Parts: []providers.Part{providers.TextPart("x")},
	})

	var apiErr *providers.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.Code != 429 || apiErr.Status != "insufficient_quota" {
		t.Errorf("Unexpected error fields %+v", apiErr)
	}
}

func TestGenerateImage_ReferenceUsesEdits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/edits" {
			t.Errorf("Expected /images/edits, got %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("Failed to parse form: %v", err)
		}
		if r.FormValue("prompt") != "restyle" {
			t.Errorf("Expected prompt field, got %q", r.FormValue("prompt"))
		}
		if _, _, err := r.FormFile("image"); err != nil {
			t.Errorf("Expected image file: %v", err)
		}
		_, _ = w.Write([]byte(`{"data": [{"b64_json": "AAAA"}], "output_format": "webp"}`))
	}))
	defer server.Close()

	client, _ := New("test-key", server.URL)
	resp, err := client.GenerateImage(context.Background(), providers.Request{
		Model: DefaultModel,
		Parts: []providers.Part{
			providers.ImagePart("image/jpeg", []byte{0xff, 0xd8}),
			providers.TextPart("restyle"),
		},
	})
	if err != nil {
		t.Fatalf("GenerateImage failed: %v", err)
	}
	if img, _ := resp.FirstImage(); img.MIMEType != "image/webp" {
		t.Errorf("Expected image/webp, got %s", img.MIMEType)
	}
}

func TestSizeFor(t *testing.T) {
	tests := []struct {
		model, ratio, want string
	}{
		{DefaultModel, "3:4", "1024x1536"},
		{DefaultModel, "1:1", "1024x1024"},
		{FallbackModel, "3:4", "1024x1792"},
		{FallbackModel, "16:9", "1792x1024"},
		{FallbackModel, "", "1024x1024"},
	}
	for _, tt := range tests {
		if got := SizeFor(tt.model, tt.ratio); got != tt.want {
			t.Errorf("SizeFor(%s, %s): expected %s, got %s", tt.model, tt.ratio, tt.want, got)
		}
	}
}
