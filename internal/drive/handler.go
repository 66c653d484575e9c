package drive

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/gorilla/mux"
)

// FolderResolver resolves a slash separated folder path to a folder ID.
type FolderResolver interface {
	FindFolderByPath(ctx context.Context, path string) (string, error)
}

type Handler struct {
	source        FileSource
	folders       FolderResolver
	ingestService *IngestService
	defaultFolder string
}

func NewHandler(source FileSource, folders FolderResolver, ingestService *IngestService, defaultFolder string) *Handler {
	return &Handler{
		source:        source,
		folders:       folders,
		ingestService: ingestService,
		defaultFolder: defaultFolder,
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/drive/files", h.ListFiles).Methods("GET")
	router.HandleFunc("/api/drive/ingest", h.IngestFile).Methods("POST")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	folderID := query.Get("folderId")
	if folderID == "" {
		folderID = h.defaultFolder
	}

	if folderPath := query.Get("path"); folderPath != "" && h.folders != nil {
		var err error
		folderID, err = h.folders.FindFolderByPath(r.Context(), folderPath)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
	}

	files, err := h.source.ListFiles(r.Context(), folderID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	tables := make([]*File, 0, len(files))
	for _, f := range files {
		if isTableFile(f.Name) {
			tables = append(tables, f)
		}
	}
	writeJSON(w, http.StatusOK, tables)
}

func (h *Handler) IngestFile(w http.ResponseWriter, r *http.Request) {
	fileID := r.URL.Query().Get("fileId")
	if fileID == "" {
		http.Error(w, "fileId parameter is required", http.StatusBadRequest)
		return
	}
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = domain.KindStockTargets
	}

	result, err := h.ingestService.IngestFile(r.Context(), fileID, kind)
	if err != nil {
		status := http.StatusInternalServerError
		if domain.IsComputationError(err) {
			status = http.StatusUnprocessableEntity
		} else if errors.Is(err, domain.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"status": "error", "error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}
