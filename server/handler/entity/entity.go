package entity

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/indieinfra/plaza/asset"
	"github.com/indieinfra/plaza/server/auth"
	"github.com/indieinfra/plaza/server/handler/common"
	"github.com/indieinfra/plaza/server/resp"
	"github.com/indieinfra/plaza/server/state"
	"github.com/indieinfra/plaza/server/util"
	"github.com/indieinfra/plaza/storage/document"
)

func pathKind(w http.ResponseWriter, r *http.Request) (document.Kind, bool) {
	kind := document.Kind(r.PathValue("kind"))
	if !kind.Valid() {
		resp.WriteNotFound(w, fmt.Sprintf("unknown entity kind %q", kind))
		return "", false
	}

	return kind, true
}

// loadOwned fetches the addressed document and checks that the caller owns it.
func loadOwned(st *state.PlazaState, w http.ResponseWriter, r *http.Request, op string) (*document.Document, bool) {
	kind, ok := pathKind(w, r)
	if !ok {
		return nil, false
	}

	doc, err := st.Documents.Get(r.Context(), kind, r.PathValue("id"))
	if err != nil {
		common.LogAndWriteError(w, r, op, err)
		return nil, false
	}

	if doc.OwnerID != auth.Subject(r.Context()) {
		resp.WriteForbidden(w, fmt.Sprintf("%s %q belongs to another user", kind, doc.ID))
		return nil, false
	}

	return doc, true
}

func parseUploads(st *state.PlazaState, w http.ResponseWriter, r *http.Request) (*util.ParsedMultipart, map[string]asset.PendingUpload, bool) {
	if _, ok := util.RequireMultipartContentType(w, r); !ok {
		return nil, nil, false
	}

	maxMemory := int64(st.Cfg.Server.Limits.MaxMultipartMem)
	maxSize := int64(st.Cfg.Server.Limits.MaxFileSize)

	pm, err := util.ParseMultipart(w, r, maxMemory, maxSize)
	if err != nil {
		if errors.Is(err, util.ErrFileTooLarge) {
			common.LogAndWriteError(w, r, "parse upload", err)
		} else {
			resp.WriteInvalidRequest(w, fmt.Sprintf("invalid multipart body: %v", err))
		}
		return nil, nil, false
	}

	uploads, err := pm.PendingUploads()
	if err != nil {
		pm.CloseFiles()
		resp.WriteInvalidRequest(w, err.Error())
		return nil, nil, false
	}

	return pm, uploads, true
}

// HandleCreate creates an entity from a multipart body. Plain form values become attributes and
// file parts become media, keyed by their field name. A user document takes the caller's id.
func HandleCreate(st *state.PlazaState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, ok := pathKind(w, r)
		if !ok {
			return
		}

		pm, uploads, ok := parseUploads(st, w, r)
		if !ok {
			return
		}
		defer pm.CloseFiles()

		subject := auth.Subject(r.Context())
		doc := &document.Document{
			Kind:       kind,
			ID:         uuid.NewString(),
			OwnerID:    subject,
			Attributes: map[string]any(pm.Values),
		}

		if kind == document.KindUser {
			doc.ID = subject
			if _, err := st.Documents.Get(r.Context(), kind, subject); err == nil {
				resp.WriteConflict(w, fmt.Sprintf("user %q already exists", subject))
				return
			} else if !errors.Is(err, document.ErrNotFound) {
				common.LogAndWriteError(w, r, "create user", err)
				return
			}
		}

		if err := st.Coordinator.CreateEntity(r.Context(), doc, uploads); err != nil {
			common.LogAndWriteError(w, r, fmt.Sprintf("create %s", kind), err)
			return
		}

		resp.WriteCreated(w, fmt.Sprintf("/v1/%s/%s", kind, doc.ID), doc)
	}
}

func HandleGet(st *state.PlazaState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, ok := pathKind(w, r)
		if !ok {
			return
		}

		doc, err := st.Documents.Get(r.Context(), kind, r.PathValue("id"))
		if err != nil {
			common.LogAndWriteError(w, r, fmt.Sprintf("get %s", kind), err)
			return
		}

		resp.WriteOK(w, doc)
	}
}

// HandleReplaceMedia replaces one media field with the "file" part of a multipart body.
func HandleReplaceMedia(st *state.PlazaState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, ok := loadOwned(st, w, r, "replace media")
		if !ok {
			return
		}

		pm, uploads, ok := parseUploads(st, w, r)
		if !ok {
			return
		}
		defer pm.CloseFiles()

		up, ok := uploads["file"]
		if !ok {
			resp.WriteInvalidRequest(w, `a "file" part is required`)
			return
		}

		ref, err := st.Coordinator.ReplaceMedia(r.Context(), doc.Kind, doc.ID, r.PathValue("field"), up)
		if err != nil {
			common.LogAndWriteError(w, r, "replace media", err)
			return
		}

		resp.WriteOK(w, ref)
	}
}

func HandleRemoveMedia(st *state.PlazaState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, ok := loadOwned(st, w, r, "remove media")
		if !ok {
			return
		}

		if err := st.Coordinator.RemoveMedia(r.Context(), doc.Kind, doc.ID, r.PathValue("field")); err != nil {
			common.LogAndWriteError(w, r, "remove media", err)
			return
		}

		resp.WriteNoContent(w)
	}
}

func HandleDelete(st *state.PlazaState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, ok := loadOwned(st, w, r, "delete")
		if !ok {
			return
		}

		if err := st.Coordinator.DeleteEntity(r.Context(), doc.Kind, doc.ID); err != nil {
			common.LogAndWriteError(w, r, fmt.Sprintf("delete %s", doc.Kind), err)
			return
		}

		resp.WriteNoContent(w)
	}
}
