package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BoweryJG/mUiLinguistics/internal/api/v1/dto"
	"github.com/BoweryJG/mUiLinguistics/internal/middleware"
	"github.com/BoweryJG/mUiLinguistics/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// AnalysisHandler handles metered audio analysis requests.
type AnalysisHandler struct {
	analysisSvc service.AnalysisService
	validate    *validator.Validate
	logger      zerolog.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(analysisSvc service.AnalysisService, v *validator.Validate, logger zerolog.Logger) *AnalysisHandler {
	return &AnalysisHandler{analysisSvc: analysisSvc, validate: v, logger: logger}
}

// RegisterRoutes mounts the analysis endpoints.
func (h *AnalysisHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/analysis", authMw(http.HandlerFunc(h.requestAnalysis)))
}

// requestAnalysis godoc
// @Summary Request an audio analysis
// @Description Checks the user's quota, records the request, and returns a presigned upload URL for the audio file.
// @Tags analysis
// @Accept json
// @Produce json
// @Param analysis body dto.AnalysisRequestDTO true "Analysis request"
// @Success 200 {object} dto.AnalysisResponseDTO
// @Failure 400 {string} string "invalid request payload"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {object} dto.AnalysisRejectedDTO "quota exceeded"
// @Failure 413 {string} string "file too large"
// @Router /analysis [post]
func (h *AnalysisHandler) requestAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req dto.AnalysisRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	outcome, err := h.analysisSvc.RequestAnalysis(r.Context(), userID, req.Filename, req.FileSize)
	if err != nil {
		if errors.Is(err, service.ErrFileTooLarge) {
			http.Error(w, "File exceeds the maximum size for your plan", http.StatusRequestEntityTooLarge)
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to process analysis request")
		http.Error(w, "Error processing audio", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if !outcome.Result.Admitted {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(dto.AnalysisRejectedDTO{
			Admitted: false,
			Reason:   outcome.Result.Reason,
			Usage: dto.UsageDTO{
				Current: outcome.Result.Usage.Current,
				Limit:   outcome.Result.Usage.Limit,
			},
		})
		return
	}

	json.NewEncoder(w).Encode(dto.AnalysisResponseDTO{
		Message:     "Processing started",
		UserID:      userID,
		UploadURL:   outcome.UploadURL,
		StoragePath: outcome.StoragePath,
		Usage: dto.UsageDTO{
			Current: outcome.Result.Usage.Current,
			Limit:   outcome.Result.Usage.Limit,
		},
	})
}
