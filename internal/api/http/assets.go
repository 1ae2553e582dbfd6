package http

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pigwin-3/historie-q/internal/storage"
)

const maxMediaBytes = 32 << 20

// MountAssets serves question media and published hierarchy files out of bs.
func MountAssets(r chi.Router, bs storage.BlobStore) {
	// POST /assets/media/{themeID}   multipart "file"
	r.Post("/media/{themeID}", func(w http.ResponseWriter, r *http.Request) {
		themeID, ok := intParam(w, r, "themeID")
		if !ok {
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer f.Close()

		data, err := io.ReadAll(io.LimitReader(f, maxMediaBytes+1))
		if err != nil {
			http.Error(w, "read error: "+err.Error(), http.StatusBadRequest)
			return
		}
		if len(data) > maxMediaBytes {
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		mt := mimetype.Detect(data)
		if !strings.HasPrefix(mt.String(), "image/") && !strings.HasPrefix(mt.String(), "video/") {
			http.Error(w, "unsupported media type "+mt.String(), http.StatusUnsupportedMediaType)
			return
		}

		key := path.Join("media", chi.URLParam(r, "themeID"), uuid.NewString()+mt.Extension())
		if _, err := bs.Put(r.Context(), key, bytes.NewReader(data)); err != nil {
			http.Error(w, "store error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"key": key, "url": "/assets/" + key, "type": mt.String(), "themeID": themeID,
		})
	})

	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		rc, err := bs.Get(r.Context(), key)
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		defer rc.Close()
		ct := mime.TypeByExtension(path.Ext(key))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		_, _ = io.Copy(w, rc)
	})
}
