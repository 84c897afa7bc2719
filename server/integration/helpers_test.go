package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/indieinfra/plaza/config"
	"github.com/indieinfra/plaza/server"
	"github.com/indieinfra/plaza/server/auth"
	"github.com/indieinfra/plaza/storage/document"
)

const testSecret = "integration-secret-value"

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.Server{
			Address: "127.0.0.1",
			Port:    8080,
			Limits:  config.ServerLimits{MaxFileSize: 1 << 20, MaxMultipartMem: 1 << 20},
		},
		Auth: config.Auth{JwtSecret: testSecret},
		Media: config.Media{
			Namespace:         "app",
			DefaultProfilePic: "/images/default-profile.png",
		},
	}
}

type client struct {
	t   *testing.T
	srv *httptest.Server
	cfg *config.Config
}

func startServer(t *testing.T, cfg *config.Config) *client {
	t.Helper()

	st, err := server.NewState(cfg)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}

	srv := httptest.NewServer(server.NewHandler(st))
	t.Cleanup(srv.Close)

	return &client{t: t, srv: srv, cfg: cfg}
}

func (c *client) send(method, path, subject, field, filename, contentType string, data []byte) *http.Response {
	c.t.Helper()

	var body io.Reader
	var formType string
	if field != "" {
		buf := &bytes.Buffer{}
		w := multipart.NewWriter(buf)
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			c.t.Fatal(err)
		}
		_, _ = part.Write(data)
		_ = w.Close()
		body = buf
		formType = w.FormDataContentType()
	}

	req, err := http.NewRequest(method, c.srv.URL+path, body)
	if err != nil {
		c.t.Fatal(err)
	}
	if formType != "" {
		req.Header.Set("Content-Type", formType)
	}

	token, err := auth.IssueAccessToken(&c.cfg.Auth, subject, time.Minute)
	if err != nil {
		c.t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.srv.Client().Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	c.t.Cleanup(func() { _ = res.Body.Close() })

	return res
}

func (c *client) expect(res *http.Response, status int) {
	c.t.Helper()

	if res.StatusCode != status {
		b, _ := io.ReadAll(res.Body)
		c.t.Fatalf("expected %d, got %d: %s", status, res.StatusCode, b)
	}
}

func decodeDocument(t *testing.T, res *http.Response) document.Document {
	t.Helper()

	var doc document.Document
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	return doc
}

var jpegData = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, []byte("fake image data")...)

var mp4Data = append([]byte{0x00, 0x00, 0x00, 0x20, 0x66, 0x74, 0x79, 0x70}, []byte("fake video data")...)
