package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jo-hoe/goregister/internal/core"
	frontend "github.com/jo-hoe/goregister/internal/frontend"
	"github.com/labstack/echo/v4"
)

func newServer(t *testing.T) (*echo.Echo, *core.ServiceConfig) {
	t.Helper()
	config := core.DefaultConfig()
	config.Database.ConnectionString = ":memory:"
	config.Uploads.Directory = t.TempDir()

	coreService, err := core.NewCoreService(config)
	if err != nil {
		t.Fatalf("NewCoreService error: %v", err)
	}
	t.Cleanup(func() { _ = coreService.Close() })

	server := defineServer(config)
	frontend.NewFrontendService(config, coreService).SetRoutes(server)
	return server, config
}

func oversizedRegistration(t *testing.T, size int) *http.Request {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{G: 255, A: 255})
	var picture bytes.Buffer
	if err := png.Encode(&picture, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	picture.Write(make([]byte, size))

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	fields := map[string]string{
		"name":      "Jane Doe",
		"dob":       "1990-05-17",
		"gender":    "female",
		"email":     "jane@example.com",
		"mobile":    "9876543210",
		"address":   "1 Main Road",
		"state":     "gujarat",
		"education": "master",
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	part, err := writer.CreateFormFile("image", "big.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(picture.Bytes()); err != nil {
		t.Fatalf("write file part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/?action=register", &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func TestDefineServer_OversizedUploadRendersForm(t *testing.T) {
	server, _ := newServer(t)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, oversizedRegistration(t, 8<<20))

	if rec.Code == http.StatusRequestEntityTooLarge {
		t.Fatalf("expected the form to handle the size, got 413: %s", rec.Body.String())
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "File is too large. Maximum size is 5MB.") {
		t.Fatalf("expected size error in register form, got %s", rec.Body.String())
	}
}

func TestDefineServer_BodyLimitOutsideForm(t *testing.T) {
	server, config := newServer(t)

	body := bytes.Repeat([]byte("x"), int(config.MaxRequestBytes())+1)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/icon.svg", bytes.NewReader(body)))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}
