package handlers

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cropsight/apiserver/internal/classifier"
	"github.com/cropsight/apiserver/internal/mq"
	"github.com/cropsight/apiserver/internal/services"
	"github.com/cropsight/apiserver/internal/storage"
	"github.com/google/uuid"
)

const (
	maxUploadMemory = 10 << 20
	maxUploadBytes  = 20 << 20
	formFieldFile   = "file"
)

// PredictHandler serves the inference pipeline and prediction history.
type PredictHandler struct {
	clf         classifier.Classifier
	predictions *services.PredictionService
	uploadDir   string
	logger      *slog.Logger

	// archive and broker are optional; nil disables the feature.
	archive       *storage.Archive
	broker        *mq.MQ
	brokerChannel string
}

// NewPredictHandler constructs a PredictHandler.
func NewPredictHandler(
	clf classifier.Classifier,
	predictions *services.PredictionService,
	uploadDir string,
	logger *slog.Logger,
) *PredictHandler {
	return &PredictHandler{
		clf:         clf,
		predictions: predictions,
		uploadDir:   uploadDir,
		logger:      logger,
	}
}

// WithArchive enables best-effort upload archiving.
func (h *PredictHandler) WithArchive(archive *storage.Archive) *PredictHandler {
	h.archive = archive
	return h
}

// WithBroker enables best-effort prediction-event publishing.
func (h *PredictHandler) WithBroker(broker *mq.MQ, channel string) *PredictHandler {
	h.broker = broker
	h.brokerChannel = channel
	return h
}

// PredictResponse is the inference result payload.
type PredictResponse struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	// Degraded marks placeholder results from the stub classifier so the
	// degraded mode is distinguishable from a real prediction.
	Degraded bool `json:"degraded,omitempty"`
}

// HistoryEntry is one row of a user's prediction history.
type HistoryEntry struct {
	Disease    string    `json:"disease"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// Predict classifies an uploaded leaf image. The upload is written to a
// uuid-named temporary file that is removed on every exit path. When the
// caller is authenticated the result is appended to their history.
func (h *PredictHandler) Predict(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}

	file, header, err := r.FormFile(formFieldFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	if header.Filename == "" || header.Size == 0 {
		writeError(w, http.StatusBadRequest, "no file selected")
		return
	}

	data, err := readFileLimited(file, maxUploadBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := uuid.NewString() + uploadExt(header.Filename)
	tmpPath := filepath.Join(h.uploadDir, name)
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save upload")
		return
	}
	defer func() {
		if err := os.Remove(tmpPath); err != nil {
			h.logger.Warn("failed to remove temp upload", "path", tmpPath, "error", err)
		}
	}()

	tensor, err := classifier.PreprocessFile(tmpPath, h.clf.InputSize())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "prediction failed", Details: err.Error()})
		return
	}

	result, err := h.clf.Classify(tensor)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "prediction failed", Details: err.Error()})
		return
	}

	if id, ok := identityFromContext(r.Context()); ok {
		prediction, err := h.predictions.Record(r.Context(), id.UserID, result.Label, result.Confidence)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "prediction failed", Details: err.Error()})
			return
		}

		if h.archive != nil {
			contentType := header.Header.Get("Content-Type")
			if err := h.archive.SaveUpload(r.Context(), name, data, contentType); err != nil {
				h.logger.Warn("failed to archive upload", "name", name, "error", err)
			}
		}

		if h.broker != nil {
			event := mq.PredictionEvent{
				PredictionID: prediction.ID,
				UserID:       prediction.UserID,
				Disease:      prediction.Disease,
				Confidence:   prediction.Confidence,
				RecordedAt:   prediction.CreatedAt,
			}
			if _, err := h.broker.PublishPrediction(r.Context(), h.brokerChannel, event); err != nil {
				h.logger.Warn("failed to publish prediction event", "error", err)
			}
		}
	}

	writeJSON(w, http.StatusOK, PredictResponse{
		Class:      result.Label,
		Confidence: result.Confidence,
		Degraded:   result.Degraded,
	})
}

// History returns the caller's most recent predictions, newest first. An
// unauthenticated caller gets an empty list, not an error.
func (h *PredictHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, []HistoryEntry{})
		return
	}

	predictions, err := h.predictions.Recent(r.Context(), id.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	entries := make([]HistoryEntry, 0, len(predictions))
	for _, p := range predictions {
		entries = append(entries, HistoryEntry{
			Disease:    p.Disease,
			Confidence: p.Confidence,
			Timestamp:  p.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

// ClearHistory removes all of the caller's predictions.
func (h *PredictHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}

	if err := h.predictions.Clear(r.Context(), id.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear history")
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func uploadExt(filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		return ".jpg"
	}
	return ext
}
