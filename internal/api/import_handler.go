package api

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/phrazzld/tasklog/internal/api/shared"
	"github.com/phrazzld/tasklog/internal/importer"
)

// maxImportBytes bounds an uploaded CSV file.
const maxImportBytes = 10 << 20

// TaskImporter creates tasks from parsed CSV records.
type TaskImporter interface {
	Import(ctx context.Context, records []importer.Record) (importer.Summary, error)
}

// ImportHandler handles bulk task uploads.
type ImportHandler struct {
	importer TaskImporter
	logger   *slog.Logger
}

// NewImportHandler creates an ImportHandler.
func NewImportHandler(imp TaskImporter, logger *slog.Logger) *ImportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportHandler{
		importer: imp,
		logger:   logger.With(slog.String("component", "import_handler")),
	}
}

// ImportTasks handles POST /api/tasks/import with a multipart "file" field.
func (h *ImportHandler) ImportTasks(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Request must be multipart/form-data with a file")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "No file part")
		return
	}
	defer func() { _ = file.Close() }()

	if header.Filename == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "No selected file")
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid file type. Only CSV files are allowed")
		return
	}

	records, err := importer.ReadCSV(file)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	summary, err := h.importer.Import(r.Context(), records)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	h.logger.Info("tasks imported",
		slog.String("file", header.Filename),
		slog.Int("created", summary.Created),
		slog.Int("deactivated", summary.Deactivated),
		slog.Int("owners_provisioned", summary.OwnersProvisioned))
	shared.RespondWithJSON(w, r, http.StatusCreated, summary)
}
