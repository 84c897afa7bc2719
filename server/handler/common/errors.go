package common

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/indieinfra/plaza/asset"
	"github.com/indieinfra/plaza/lifecycle"
	"github.com/indieinfra/plaza/server/resp"
	"github.com/indieinfra/plaza/server/util"
	"github.com/indieinfra/plaza/storage/document"
)

// LogAndWriteError logs an error with request context and maps known conditions to client responses.
func LogAndWriteError(w http.ResponseWriter, r *http.Request, op string, err error) {
	rl := util.FromContext(r.Context())
	if rl == nil {
		rl = util.WithRequest(log.Default(), r, "")
	}

	switch {
	case errors.Is(err, asset.ErrPayloadTooLarge), errors.Is(err, util.ErrFileTooLarge):
		rl.Infof("%s rejected: %v", op, err)
		resp.WritePayloadTooLarge(w, err.Error())
	case errors.Is(err, asset.ErrUnsupportedMediaType):
		rl.Infof("%s rejected: %v", op, err)
		resp.WriteUnsupportedMediaType(w, err.Error())
	case errors.Is(err, asset.ErrValidation), errors.Is(err, lifecycle.ErrUnknownField):
		rl.Infof("%s rejected: %v", op, err)
		resp.WriteInvalidRequest(w, err.Error())
	case errors.Is(err, document.ErrNotFound):
		rl.Infof("%s: %v", op, err)
		resp.WriteNotFound(w, "not found")
	case errors.Is(err, asset.ErrUploadFailed):
		rl.Errorf("%s failed: %v", op, err)
		resp.WriteBadGateway(w, fmt.Sprintf("%s failed: asset store unavailable", op))
	default:
		rl.Errorf("%s failed: %v", op, err)
		resp.WriteInternalServerError(w, fmt.Sprintf("%s failed", op))
	}
}
