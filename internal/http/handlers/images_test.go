package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pixelforge/internal/domain"
)

func decodeError(t *testing.T, body *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var decoded map[string]errorBody
	if err := json.NewDecoder(body.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return decoded["error"]
}

func TestImagesGenerateSuccess(t *testing.T) {
	app, gen, gens, _, _ := newTestApp(t)
	seed := int64(42)
	gen.result = &domain.GenerationResult{
		ResultURL: "https://cdn.example.com/out.png",
		Seed:      &seed,
		Duration:  1500 * time.Millisecond,
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/images/generate",
		strings.NewReader(`{"prompt": "a red fox", "aspect_ratio": "16:9"}`))
	rec := httptest.NewRecorder()
	app.ImagesGenerate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp generationResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ResultURL != "https://cdn.example.com/out.png" {
		t.Errorf("result_url = %q", resp.ResultURL)
	}
	if resp.Seed == nil || *resp.Seed != 42 {
		t.Errorf("seed = %v, want 42", resp.Seed)
	}
	if resp.DurationMS != 1500 {
		t.Errorf("duration_ms = %d, want 1500", resp.DurationMS)
	}
	if gen.lastReq.Model != "flux-schnell" {
		t.Errorf("model = %q, want the default", gen.lastReq.Model)
	}
	if gen.lastReq.AspectRatio != domain.AspectLandscape {
		t.Errorf("aspect = %q, want 16:9", gen.lastReq.AspectRatio)
	}
	if len(gens.items) != 1 {
		t.Fatalf("history records = %d, want 1", len(gens.items))
	}
}

func TestImagesGenerateValidation(t *testing.T) {
	app, _, _, _, _ := newTestApp(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty prompt", `{"prompt": "  "}`},
		{"bad json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/images/generate", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			app.ImagesGenerate(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestImagesGenerateErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"quota", domain.ErrQuotaExceeded, http.StatusTooManyRequests, "quota_exceeded"},
		{"unknown model", domain.ErrUnsupportedProvider, http.StatusBadRequest, "unsupported_model"},
		{"enqueue", domain.ErrEnqueue, http.StatusBadGateway, "enqueue_failed"},
		{"malformed", domain.ErrMalformedResponse, http.StatusBadGateway, "malformed_response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, gen, _, _, _ := newTestApp(t)
			gen.err = tt.err

			req := httptest.NewRequest(http.MethodPost, "/v1/images/generate",
				strings.NewReader(`{"prompt": "a red fox"}`))
			rec := httptest.NewRecorder()
			app.ImagesGenerate(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if got := decodeError(t, rec); got.Code != tt.wantBody {
				t.Fatalf("error code = %q, want %q", got.Code, tt.wantBody)
			}
		})
	}
}

func TestImagesGenerateNoResult(t *testing.T) {
	app, gen, gens, _, _ := newTestApp(t)
	gen.result = nil // backend completed without data

	req := httptest.NewRequest(http.MethodPost, "/v1/images/generate",
		strings.NewReader(`{"prompt": "a red fox"}`))
	rec := httptest.NewRecorder()
	app.ImagesGenerate(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if got := decodeError(t, rec); got.Code != "no_result" {
		t.Fatalf("error code = %q, want no_result", got.Code)
	}
	if len(gens.items) != 0 {
		t.Fatal("missing results must not enter history")
	}
}

func TestImagesGeneratePersistFailureOmitsID(t *testing.T) {
	app, gen, gens, _, _ := newTestApp(t)
	gen.result = &domain.GenerationResult{ResultURL: "https://cdn.example.com/out.png"}
	gens.err = errProviderDown

	req := httptest.NewRequest(http.MethodPost, "/v1/images/generate",
		strings.NewReader(`{"prompt": "a red fox"}`))
	rec := httptest.NewRecorder()
	app.ImagesGenerate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, the result is still usable", rec.Code)
	}
	var resp generationResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID != "" {
		t.Fatalf("id = %q, must not reference a record that was never stored", resp.ID)
	}
	if resp.ResultURL != "https://cdn.example.com/out.png" {
		t.Fatalf("result_url = %q", resp.ResultURL)
	}
}

func TestImagesUpscaleRequiresAbsoluteURL(t *testing.T) {
	app, _, _, _, _ := newTestApp(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/images/upscale",
		strings.NewReader(`{"image_url": "generated/a.png"}`))
	rec := httptest.NewRecorder()
	app.ImagesUpscale(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestImagesUpscalePassesSourceURL(t *testing.T) {
	app, gen, _, _, _ := newTestApp(t)
	gen.result = &domain.GenerationResult{ResultURL: "https://cdn.example.com/big.png"}

	req := httptest.NewRequest(http.MethodPost, "/v1/images/upscale",
		strings.NewReader(`{"image_url": "https://cdn.example.com/small.png"}`))
	rec := httptest.NewRecorder()
	app.ImagesUpscale(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if gen.lastSource != "https://cdn.example.com/small.png" {
		t.Fatalf("source url = %q", gen.lastSource)
	}
}
