package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BoweryJG/mUiLinguistics/internal/api/v1/dto"
	"github.com/BoweryJG/mUiLinguistics/internal/middleware"
	"github.com/BoweryJG/mUiLinguistics/internal/model"
	"github.com/BoweryJG/mUiLinguistics/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type UserHandler struct {
	userService service.UserService
	usageSvc    service.UsageService
	validate    *validator.Validate
	logger      zerolog.Logger
}

func NewUserHandler(userService service.UserService, usageSvc service.UsageService, v *validator.Validate, logger zerolog.Logger) *UserHandler {
	return &UserHandler{userService: userService, usageSvc: usageSvc, validate: v, logger: logger}
}

// RegisterRoutes mounts v1 user routes
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/users/me", authMw(http.HandlerFunc(h.handleUsers)))
	mux.Handle("/users/me/usage", authMw(http.HandlerFunc(h.getUsage)))
}

func (h *UserHandler) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createUser(w, r)
	case http.MethodGet:
		h.getUser(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *UserHandler) createUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.UserCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	userModel := &model.User{
		UserID: userID,
		Name:   req.Name,
		Email:  req.Email,
	}
	createdUser, err := h.userService.Create(r.Context(), userModel)
	if err != nil {
		http.Error(w, "Failed to create user: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := dto.UserResponseDTO{
		UserID:    createdUser.UserID,
		Name:      createdUser.Name,
		Email:     createdUser.Email,
		CreatedAt: createdUser.CreatedAt,
		UpdatedAt: createdUser.UpdatedAt,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

func (h *UserHandler) getUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok {
		http.Error(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}

	user, err := h.userService.Get(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	resp := dto.UserResponseDTO{
		UserID:    user.UserID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// getUsage godoc
// @Summary Get current usage for the authenticated user
// @Description Returns the user's tier, current-period usage, quota, and reset date.
// @Tags users
// @Produce json
// @Success 200 {object} dto.UsageSummaryDTO
// @Failure 401 {string} string "unauthorized"
// @Router /users/me/usage [get]
func (h *UserHandler) getUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	sum, err := h.usageSvc.Summary(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to build usage summary")
		http.Error(w, "Error getting usage", http.StatusInternalServerError)
		return
	}

	resp := dto.UsageSummaryDTO{
		Tier:      sum.Tier,
		Usage:     sum.Usage,
		Quota:     sum.Quota,
		ResetDate: sum.ResetDate,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
