package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/dstanic/civium/internal/domain"
	"github.com/dstanic/civium/internal/service"
	"github.com/google/uuid"
)

// EngagementHandler is the intake for domain events fired by the CRUD
// tier (a like landing on a project, a comment, a reply, a collaboration
// request or acceptance). Its only job is to feed notification fan-out.
type EngagementHandler struct {
	notificationService *service.NotificationService
}

func NewEngagementHandler(notificationService *service.NotificationService) *EngagementHandler {
	return &EngagementHandler{notificationService: notificationService}
}

type publishEventInput struct {
	RecipientID uuid.UUID                 `json:"recipient_id"`
	Type        domain.NotificationType   `json:"type"`
	Target      domain.NotificationTarget `json:"target"`
}

func (h *EngagementHandler) PublishEvent(w http.ResponseWriter, r *http.Request) {
	var input publishEventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if input.RecipientID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "MISSING_RECIPIENT", "recipient_id is required")
		return
	}

	n, err := h.notificationService.Publish(r.Context(), input.RecipientID, input.Type, input.Target)
	if err != nil {
		if errors.Is(err, service.ErrInvalidEvent) {
			writeError(w, http.StatusBadRequest, "INVALID_EVENT", "Unknown notification type or target")
		} else {
			log.Printf("ERROR publish event: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusCreated, n)
}
