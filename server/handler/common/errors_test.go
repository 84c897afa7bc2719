package common

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/indieinfra/plaza/asset"
	"github.com/indieinfra/plaza/lifecycle"
	"github.com/indieinfra/plaza/server/util"
	"github.com/indieinfra/plaza/storage/document"
)

func TestLogAndWriteError_Mapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"internal", errors.New("boom"), http.StatusInternalServerError},
		{"not found", fmt.Errorf("load: %w", document.ErrNotFound), http.StatusNotFound},
		{"too large", fmt.Errorf("%w: %w", asset.ErrValidation, asset.ErrPayloadTooLarge), http.StatusRequestEntityTooLarge},
		{"transport too large", util.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{"unsupported", fmt.Errorf("%w: %w", asset.ErrValidation, asset.ErrUnsupportedMediaType), http.StatusUnsupportedMediaType},
		{"empty", fmt.Errorf("%w: %w", asset.ErrValidation, asset.ErrEmptyUpload), http.StatusBadRequest},
		{"unknown field", fmt.Errorf("%w %q", lifecycle.ErrUnknownField, "banner"), http.StatusBadRequest},
		{"upload failed", fmt.Errorf("%w: timeout", asset.ErrUploadFailed), http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/post", nil)

			LogAndWriteError(rr, req, "op", tc.err)

			if rr.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rr.Code)
			}
		})
	}
}
