package uploads

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/2beens/inkwell/internal/telemetry/metrics"
	"github.com/2beens/inkwell/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type uploadResponse struct {
	URL string `json:"url"`
}

type Handler struct {
	store          *DiskStore
	metricsManager *metrics.Manager
}

func NewHandler(store *DiskStore, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		store:          store,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/api/upload", handler.handleUpload).Methods("POST", "OPTIONS").Name("upload-image")
	router.HandleFunc("/uploads/{name}", handler.handleServe).Methods("GET").Name("serve-upload")
}

func (handler *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	// the multipart overhead on top of the file cap is negligible
	r.Body = http.MaxBytesReader(w, r.Body, MaxFileSize+1<<20)

	file, header, err := r.FormFile("image")
	if err != nil {
		log.Errorf("upload, read form file: %s", err)
		pkg.WriteJSONError(w, "image file missing or too large", http.StatusBadRequest)
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Errorf("upload, close form file: %s", err)
		}
	}()

	ref, err := handler.store.Save(
		header.Filename,
		header.Size,
		header.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		switch {
		case errors.Is(err, ErrFileTooLarge):
			pkg.WriteJSONError(w, fmt.Sprintf("image too large, max %d bytes", MaxFileSize), http.StatusBadRequest)
		case errors.Is(err, ErrNotAnImage):
			pkg.WriteJSONError(w, "only image uploads allowed", http.StatusBadRequest)
		default:
			log.Errorf("upload, save: %s", err)
			pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	handler.metricsManager.CounterUploads.Inc()

	respJson, err := json.Marshal(uploadResponse{URL: ref})
	if err != nil {
		log.Errorf("upload, marshal response: %s", err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusCreated)
}

func (handler *Handler) handleServe(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	file, err := handler.store.Open(name)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) || errors.Is(err, ErrInvalidRefName) {
			pkg.WriteJSONError(w, "file not found", http.StatusNotFound)
			return
		}
		log.Errorf("serve upload %s: %s", name, err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Errorf("serve upload, close file %s: %s", name, err)
		}
	}()

	stat, err := file.Stat()
	if err != nil {
		log.Errorf("serve upload, stat %s: %s", name, err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.ServeContent(w, r, name, stat.ModTime(), file)
}
