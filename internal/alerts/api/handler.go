package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	netmail "net/mail"

	"github.com/go-chi/chi/v5"

	"ra-resale/internal/alerts"
	"ra-resale/internal/extract"
	"ra-resale/internal/fetch"
	"ra-resale/internal/logger"
	"ra-resale/internal/models"
	"ra-resale/internal/utils"
)

// AlertService is the surface the HTTP layer needs from the pipeline.
type AlertService interface {
	Subscribe(ctx context.Context, url, email string) (*models.Tracker, error)
	UpdateAll(ctx context.Context) ([]alerts.UpdateResult, error)
	SendAlerts(ctx context.Context) ([]alerts.SendResult, error)
	PruneExpired(ctx context.Context) ([]alerts.PruneResult, error)
}

type Handler struct {
	Service AlertService
	Logger  *logger.Logger
}

func NewHandler(service AlertService, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// RegisterRoutes mounts the subscribe endpoint and the cron-gated batch
// endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Subscribe)

	r.Group(func(r chi.Router) {
		r.Use(CronOnly)
		r.Get("/update", h.Update)
		r.Get("/send", h.Send)
		r.Get("/prune", h.Prune)
	})
}

// CronOnly hides the batch endpoints from everything except the
// scheduler: without the scheduler identity header the routes do not
// exist.
func CronOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Appengine-Cron") != "true" {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// User-facing messages per failure reason code.
var failureMessages = map[string]string{
	"other":    "Not sure what.",
	"url":      "This doesn't look like a valid event page.",
	"form":     "Something in the form isn't right.",
	"timeout":  "RA took too long to respond. Is the site down?",
	"date":     "This event has already happened.",
	"extract":  "Could not extract ticket information from RA.",
	"inactive": "Resale is not active for this event.",
}

// Subscribe handles the tracker form: a url and an email, validated,
// then run through the pipeline synchronously.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.failure(w, http.StatusBadRequest, "form")
		return
	}

	url := r.PostFormValue("url")
	email := r.PostFormValue("email")

	if _, err := netmail.ParseAddress(email); err != nil {
		h.failure(w, http.StatusBadRequest, "form")
		return
	}
	if _, ok := extract.EventID(url); !ok {
		h.failure(w, http.StatusBadRequest, "url")
		return
	}

	tracker, err := h.Service.Subscribe(r.Context(), url, email)
	if err != nil {
		status, reason := reasonForError(err)
		h.logError("SUBSCRIBE", fmt.Sprintf("%s: %v", reason, err))
		h.failure(w, status, reason)
		return
	}

	writeJSON(w, http.StatusCreated, utils.SuccessResponse("Tracker created", map[string]string{
		"email": tracker.Email,
		"event": tracker.EventID,
	}))
}

// Update triggers the availability refresh cycle.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	updated, err := h.Service.UpdateAll(r.Context())
	if err != nil {
		h.logError("UPDATE", err.Error())
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Update cycle failed", "other"))
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Update cycle complete", map[string]interface{}{
		"updated": updated,
	}))
}

// Send triggers the notification cycle.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	sent, err := h.Service.SendAlerts(r.Context())
	if err != nil {
		h.logError("SEND", err.Error())
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Send cycle failed", "other"))
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Send cycle complete", map[string]interface{}{
		"sent": sent,
	}))
}

// Prune triggers the expired-tracker cleanup cycle.
func (h *Handler) Prune(w http.ResponseWriter, r *http.Request) {
	pruned, err := h.Service.PruneExpired(r.Context())
	if err != nil {
		h.logError("PRUNE", err.Error())
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Prune cycle failed", "other"))
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Prune cycle complete", map[string]interface{}{
		"pruned": pruned,
	}))
}

func (h *Handler) logError(category, message string) {
	if h.Logger != nil {
		h.Logger.Error(category, message)
	}
}

func (h *Handler) failure(w http.ResponseWriter, status int, reason string) {
	message, ok := failureMessages[reason]
	if !ok {
		message = failureMessages["other"]
	}
	writeJSON(w, status, utils.ErrorResponse(message, reason))
}

// reasonForError maps the typed error taxonomy onto the form's failure
// reason codes. Matching is structural only.
func reasonForError(err error) (int, string) {
	switch {
	case errors.Is(err, fetch.ErrMalformedURL):
		return http.StatusBadRequest, "url"
	case errors.Is(err, fetch.ErrTimeout), errors.Is(err, fetch.ErrUnavailable):
		return http.StatusBadGateway, "timeout"
	case errors.Is(err, alerts.ErrEventExpired):
		return http.StatusUnprocessableEntity, "date"
	case errors.Is(err, alerts.ErrResaleInactive):
		return http.StatusUnprocessableEntity, "inactive"
	case errors.Is(err, extract.ErrExtractionFailed):
		return http.StatusUnprocessableEntity, "extract"
	default:
		return http.StatusInternalServerError, "other"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
