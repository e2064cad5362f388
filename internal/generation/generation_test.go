package generation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/promptmarket/gallery/internal/images"
	"github.com/promptmarket/gallery/internal/models"
	"github.com/promptmarket/gallery/internal/providers"
)

type fakeModel struct {
	calls     []providers.Request
	responses []*providers.Response
	errs      []error
}

func (f *fakeModel) GenerateImage(ctx context.Context, req providers.Request) (*providers.Response, error) {
	i := len(f.calls)
	f.calls = append(f.calls, req)
	var (
		resp *providers.Response
		err  error
	)
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return resp, err
}

func imageResponse(mimeType string, data []byte) *providers.Response {
	return &providers.Response{Candidates: []providers.Candidate{{
		Parts: []providers.Part{providers.TextPart("here you go"), providers.ImagePart(mimeType, data)},
	}}}
}

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		name     string
		template string
		subject  string
		fallback string
		want     string
	}{
		{"scenario A", "a cat {subject}", "sleeping", "", "a cat sleeping"},
		{"empty subject uses default", "a photo of {subject}", "", "", "a photo of something amazing"},
		{"persona fallback", "{subject}, 8k", "  ", PersonaDefaultSubject, "standing confidently, 8k"},
		{"only first placeholder", "{subject} and {subject}", "x", "", "x and {subject}"},
		{"aspect flags stripped", "a tower {subject} --ar 16:9", "at dusk", "", "a tower at dusk"},
		{"several aspect flags", "--ar 3:4 wide --ar  1:1", "", "", "wide"},
		{"no placeholder", "static prompt", "ignored", "", "static prompt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildPrompt(tt.template, tt.subject, tt.fallback); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestAspectRatioFor(t *testing.T) {
	tests := map[models.AspectRatio]string{
		models.AspectPortrait:  "3:4",
		models.AspectLandscape: "16:9",
		models.AspectSquare:    "1:1",
		"":                     "1:1",
		"panorama":             "1:1",
	}
	for hint, want := range tests {
		if got := AspectRatioFor(hint); got != want {
			t.Errorf("AspectRatioFor(%q): expected %s, got %s", hint, want, got)
		}
	}
}

func TestSubjectFromTitle(t *testing.T) {
	tests := map[string]string{
		"Cyberpunk Samurai Warrior": "Samurai Warrior",
		"Nova":                      "Nova",
		"Trailing ":                 "Trailing ",
	}
	for title, want := range tests {
		if got := SubjectFromTitle(title); got != want {
			t.Errorf("SubjectFromTitle(%q): expected %q, got %q", title, want, got)
		}
	}
}

func TestGenerate_ScenarioA(t *testing.T) {
	model := &fakeModel{responses: []*providers.Response{imageResponse("image/png", []byte("img"))}}
	client := NewClient(model, "pro", "flash")

	payload, err := client.Generate(context.Background(), Request{
		Template:    "a cat {subject}",
		Subject:     "sleeping",
		AspectRatio: models.AspectSquare,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if payload != images.EncodeDataURI("image/png", []byte("img")) {
		t.Errorf("Unexpected payload %q", payload)
	}
	want := []providers.Request{{
		Model:       "pro",
		Parts:       []providers.Part{providers.TextPart("a cat sleeping")},
		AspectRatio: "1:1",
	}}
	if diff := cmp.Diff(want, model.calls); diff != "" {
		t.Errorf("Calls mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerate_ScenarioB_FallbackOnForbidden(t *testing.T) {
	model := &fakeModel{
		errs:      []error{&providers.APIError{Code: 403, Message: "forbidden"}},
		responses: []*providers.Response{nil, imageResponse("image/jpeg", []byte("flash"))},
	}
	client := NewClient(model, "pro", "flash")

	payload, err := client.Generate(context.Background(), Request{
		Template:       "portrait of {subject}",
		Subject:        "a fox",
		AspectRatio:    models.AspectPortrait,
		ReferenceImage: images.EncodeDataURI("image/png", []byte("ref")),
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if payload != images.EncodeDataURI("image/jpeg", []byte("flash")) {
		t.Errorf("Unexpected payload %q", payload)
	}

	if len(model.calls) != 2 {
		t.Fatalf("Expected exactly 2 calls, got %d", len(model.calls))
	}
	if model.calls[0].Model != "pro" || model.calls[1].Model != "flash" {
		t.Errorf("Expected pro then flash, got %s then %s", model.calls[0].Model, model.calls[1].Model)
	}
	if diff := cmp.Diff(model.calls[0].Parts, model.calls[1].Parts); diff != "" {
		t.Errorf("Fallback parts differ (-pro +flash):\n%s", diff)
	}
	if !model.calls[0].Parts[0].IsImage() || model.calls[0].Parts[1].Text != "portrait of a fox" {
		t.Errorf("Expected image part then text part, got %+v", model.calls[0].Parts)
	}
	if model.calls[1].AspectRatio != "3:4" {
		t.Errorf("Expected 3:4, got %s", model.calls[1].AspectRatio)
	}
}

func TestGenerate_FallbackByMessage(t *testing.T) {
	model := &fakeModel{
		errs:      []error{errors.New("models/pro is not found for API version v1beta")},
		responses: []*providers.Response{nil, imageResponse("image/png", []byte("x"))},
	}

	if _, err := NewClient(model, "pro", "flash").Generate(context.Background(), Request{Template: "{subject}"}); err != nil {
		t.Fatalf("Expected fallback to succeed, got %v", err)
	}
	if len(model.calls) != 2 {
		t.Errorf("Expected 2 calls, got %d", len(model.calls))
	}
}

func TestGenerate_FallbackFailureSurfaces(t *testing.T) {
	model := &fakeModel{errs: []error{
		&providers.APIError{Code: 404, Message: "no pro"},
		&providers.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"},
	}}

	_, err := NewClient(model, "pro", "flash").Generate(context.Background(), Request{Template: "{subject}"})

	var gErr *GenerationError
	if !errors.As(err, &gErr) {
		t.Fatalf("Expected GenerationError, got %v", err)
	}
	if gErr.Model != "flash" || gErr.Code != 429 || gErr.Status != "RESOURCE_EXHAUSTED" {
		t.Errorf("Unexpected error %+v", gErr)
	}
	if len(model.calls) != 2 {
		t.Errorf("Expected 2 calls, got %d", len(model.calls))
	}
}

func TestGenerate_OtherErrorsNotRetried(t *testing.T) {
	model := &fakeModel{errs: []error{&providers.APIError{Code: 429, Message: "Quota exceeded"}}}

	_, err := NewClient(model, "pro", "flash").Generate(context.Background(), Request{Template: "{subject}"})
	if err == nil {
		t.Fatal("Expected error")
	}
	if len(model.calls) != 1 {
		t.Errorf("Expected 1 call, got %d", len(model.calls))
	}
}

func TestGenerate_NoImageIsSoftFailure(t *testing.T) {
	model := &fakeModel{responses: []*providers.Response{{Candidates: []providers.Candidate{{
		Parts: []providers.Part{providers.TextPart("I cannot draw that")},
	}}}}}

	payload, err := NewClient(model, "pro", "flash").Generate(context.Background(), Request{Template: "{subject}"})
	if err != nil || payload != "" {
		t.Errorf("Expected empty payload and nil error, got %q %v", payload, err)
	}
}

func TestGenerate_MissingCredentials(t *testing.T) {
	_, err := NewClient(nil, "pro", "flash").Generate(context.Background(), Request{Template: "{subject}"})
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("Expected ErrMissingCredentials, got %v", err)
	}
}

func TestGenerate_InvalidReference(t *testing.T) {
	model := &fakeModel{}
	_, err := NewClient(model, "pro", "flash").Generate(context.Background(), Request{
		Template:       "{subject}",
		ReferenceImage: "https://example.com/not-a-data-uri.png",
	})
	if !errors.Is(err, ErrInvalidReference) {
		t.Errorf("Expected ErrInvalidReference, got %v", err)
	}
	if len(model.calls) != 0 {
		t.Errorf("Expected no model calls, got %d", len(model.calls))
	}
}

func TestIsAccessDenied(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&providers.APIError{Code: 403}, true},
		{&providers.APIError{Code: 404}, true},
		{&providers.APIError{Status: "PERMISSION_DENIED"}, true},
		{errors.New("Permission denied on resource"), true},
		{errors.New("model NOT FOUND"), true},
		{&providers.APIError{Code: 429, Message: "quota"}, false},
		{errors.New("connection reset"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsAccessDenied(tt.err); got != tt.want {
			t.Errorf("IsAccessDenied(%v): expected %v, got %v", tt.err, tt.want, got)
		}
	}
}

type memoryImages map[string]string

func (m memoryImages) PutImage(ctx context.Context, id, payload string) error {
	m[id] = payload
	return nil
}

type characterList []models.Character

func (c characterList) Find(ctx context.Context, id string) (models.Character, bool) {
	for _, ch := range c {
		if ch.ID == id {
			return ch, true
		}
	}
	return models.Character{}, false
}

type recordingCatalog struct {
	patched map[string]models.CatalogItem
}

func (r *recordingCatalog) UpdateItemByID(id string, fn func(*models.CatalogItem)) bool {
	item := r.patched[id]
	fn(&item)
	r.patched[id] = item
	return true
}

func TestService_GenerateForItem(t *testing.T) {
	characters := characterList{
		{ID: "char_1", Name: "Elara", Description: "an elven archer"},
		{ID: "char_5", Name: "Luna", Description: "a moon witch", IsPremium: true},
	}
	free := models.CatalogItem{ID: "7", Title: "Neon City", Template: "a street of {subject}", AspectRatio: models.AspectLandscape}
	locked := models.CatalogItem{ID: "3", Title: "Golden Hour", Template: "{subject}", IsPremium: true}

	t.Run("stores and patches", func(t *testing.T) {
		model := &fakeModel{responses: []*providers.Response{imageResponse("image/png", []byte("ok"))}}
		store := memoryImages{}
		catalog := &recordingCatalog{patched: map[string]models.CatalogItem{}}
		svc := NewService(NewClient(model, "pro", "flash"), store, characters, catalog, nil)

		payload, err := svc.GenerateForItem(context.Background(), free, Options{Subject: "rain"})
		if err != nil {
			t.Fatalf("GenerateForItem failed: %v", err)
		}
		if store["7"] != payload || catalog.patched["7"].CustomThumbnail != payload {
			t.Error("Expected payload stored and attached to catalog")
		}
		if got := model.calls[0].Parts[0].Text; got != "a street of rain" {
			t.Errorf("Unexpected prompt %q", got)
		}
	})

	t.Run("persona composition", func(t *testing.T) {
		model := &fakeModel{responses: []*providers.Response{imageResponse("image/png", []byte("ok"))}}
		svc := NewService(NewClient(model, "pro", "flash"), memoryImages{}, characters, nil, nil)

		if _, err := svc.GenerateForItem(context.Background(), free, Options{CharacterID: "char_1"}); err != nil {
			t.Fatalf("GenerateForItem failed: %v", err)
		}
		if got := model.calls[0].Parts[0].Text; got != "a street of an elven archer, standing confidently" {
			t.Errorf("Unexpected persona prompt %q", got)
		}
	})

	t.Run("premium gating", func(t *testing.T) {
		model := &fakeModel{}
		svc := NewService(NewClient(model, "pro", "flash"), memoryImages{}, characters, nil, func() bool { return false })

		if _, err := svc.GenerateForItem(context.Background(), locked, Options{}); !errors.Is(err, ErrPremiumRequired) {
			t.Errorf("Expected ErrPremiumRequired for premium item, got %v", err)
		}
		if _, err := svc.GenerateForItem(context.Background(), free, Options{CharacterID: "char_5"}); !errors.Is(err, ErrPremiumRequired) {
			t.Errorf("Expected ErrPremiumRequired for premium character, got %v", err)
		}
		if _, err := svc.GenerateForItem(context.Background(), free, Options{CharacterID: "nobody"}); !errors.Is(err, ErrUnknownCharacter) {
			t.Errorf("Expected ErrUnknownCharacter, got %v", err)
		}
		if len(model.calls) != 0 {
			t.Errorf("Expected no model calls, got %d", len(model.calls))
		}
	})

	t.Run("empty response", func(t *testing.T) {
		model := &fakeModel{responses: []*providers.Response{{}}}
		store := memoryImages{}
		svc := NewService(NewClient(model, "pro", "flash"), store, characters, nil, func() bool { return true })

		if _, err := svc.GenerateForItem(context.Background(), locked, Options{}); !errors.Is(err, ErrNoImage) {
			t.Errorf("Expected ErrNoImage, got %v", err)
		}
		if len(store) != 0 {
			t.Error("Expected nothing stored")
		}
	})
}
