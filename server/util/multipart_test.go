package util

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
)

type testPart struct {
	field, filename, contentType, body string
}

func makeMultipartRequest(t *testing.T, values map[string]string, parts []testPart) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range values {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}

	for _, p := range parts {
		head := textproto.MIMEHeader{}
		head.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		if p.contentType != "" {
			head.Set("Content-Type", p.contentType)
		}
		pw, err := w.CreatePart(head)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		_, _ = pw.Write([]byte(p.body))
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestParseMultipart_ValuesAndFiles(t *testing.T) {
	req := makeMultipartRequest(t, map[string]string{"title": "hello"}, []testPart{
		{field: "image", filename: "a.jpg", contentType: "image/jpeg", body: "abc"},
	})

	pm, err := ParseMultipart(httptest.NewRecorder(), req, 1<<20, 1<<20)
	if err != nil {
		t.Fatalf("ParseMultipart: %v", err)
	}
	defer pm.CloseFiles()

	if got := pm.Values["title"]; got != "hello" {
		t.Fatalf("expected title value, got %#v", got)
	}
	if mf := pm.FileByKey("image"); mf == nil || mf.Header.Filename != "a.jpg" {
		t.Fatalf("expected image file, got %+v", mf)
	}
	if pm.FileByKey("video") != nil {
		t.Fatalf("expected no video file")
	}
}

func TestParseMultipart_FileTooLarge(t *testing.T) {
	req := makeMultipartRequest(t, nil, []testPart{
		{field: "image", filename: "a.jpg", contentType: "image/jpeg", body: "0123456789"},
	})

	_, err := ParseMultipart(httptest.NewRecorder(), req, 1<<20, 5)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestParseMultipart_BodyCapped(t *testing.T) {
	req := makeMultipartRequest(t, map[string]string{"title": "a fairly long title value"}, []testPart{
		{field: "image", filename: "a.jpg", contentType: "image/jpeg", body: "0123456789"},
	})

	if _, err := ParseMultipart(httptest.NewRecorder(), req, 4, 4); err == nil {
		t.Fatalf("expected oversized body to fail")
	}
}

func TestPendingUploads(t *testing.T) {
	req := makeMultipartRequest(t, nil, []testPart{
		{field: "image", filename: "cover.png", contentType: "image/png", body: "png-bytes"},
		{field: "video", filename: "clip.mp4", contentType: "application/octet-stream", body: "mp4-bytes"},
		{field: "image", filename: "second.png", contentType: "image/png", body: "ignored"},
	})

	pm, err := ParseMultipart(httptest.NewRecorder(), req, 1<<20, 1<<20)
	if err != nil {
		t.Fatalf("ParseMultipart: %v", err)
	}
	defer pm.CloseFiles()

	uploads, err := pm.PendingUploads()
	if err != nil {
		t.Fatalf("PendingUploads: %v", err)
	}

	if len(uploads) != 2 {
		t.Fatalf("expected 2 uploads, got %d", len(uploads))
	}

	img := uploads["image"]
	if string(img.Buffer) != "png-bytes" || img.MimeType != "image/png" || img.OriginalName != "cover.png" {
		t.Fatalf("unexpected image upload %+v", img)
	}

	if vid := uploads["video"]; vid.MimeType != "video/mp4" {
		t.Fatalf("expected inferred video/mp4, got %q", vid.MimeType)
	}
}
