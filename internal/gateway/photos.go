package gateway

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"github.com/erazemk/cvetlicarna/internal/imaging"
	"github.com/erazemk/cvetlicarna/internal/store"
)

// MaxPhotoBytes is the largest accepted photo upload.
const MaxPhotoBytes = 10 << 20

// UploadPhoto handles POST /photos. The raw image is normalized and stored
// under a fresh token, which the connector then attaches to a photo event.
func (g *Gateway) UploadPhoto(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body := http.MaxBytesReader(w, r.Body, MaxPhotoBytes)
	defer body.Close()

	photo, err := imaging.Normalize(body)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	token := uuid.NewString()
	if err := store.SavePhoto(r.Context(), g.DB, token, photo.Data, photo.MIME); err != nil {
		slog.Error("saving photo", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to store photo")
		return
	}

	jsonResponse(w, http.StatusCreated, map[string]string{"token": token})
}

// ServePhoto handles GET /photos/:token.
func (g *Gateway) ServePhoto(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	data, mime, err := store.GetPhoto(r.Context(), g.DB, ps.ByName("token"))
	if err != nil {
		slog.Error("loading photo", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "photo not found")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}
