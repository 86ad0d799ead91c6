package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/dstanic/civium/internal/service"
	"github.com/dstanic/civium/internal/transport/http/middleware"
	"github.com/google/uuid"
)

type NotificationHandler struct {
	notificationService *service.NotificationService
}

func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List returns the authoritative notification list clients reconcile
// their caches against.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	notifications, err := h.notificationService.List(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR list notifications: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, notifications)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	notifID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid notification ID")
		return
	}

	n, err := h.notificationService.MarkRead(r.Context(), userID, notifID)
	if err != nil {
		if errors.Is(err, service.ErrNotificationNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Notification not found")
		} else {
			log.Printf("ERROR mark notification read: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, n)
}
