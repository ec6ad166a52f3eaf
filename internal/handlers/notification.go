package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/diewo77/gestion-pepiniere/auth"
	"github.com/diewo77/gestion-pepiniere/httpx"
	"github.com/diewo77/gestion-pepiniere/internal/models"
)

// NotificationHandler lists the attention flags raised by the anniversary
// scan and the compliance checker. Flags are cleared by the compliance
// check, never through this surface.
type NotificationHandler struct {
	DB *gorm.DB
}

func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{DB: db}
}

// List: GET /notifications, scoped to the caller's société only.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	societeID, ok := auth.SocieteFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, msgAccesRefuse, nil)
		return
	}
	var notifications []models.Notification
	if err := h.DB.
		Where("societe_id = ?", societeID).
		Order("convention_id").
		Find(&notifications).Error; err != nil {
		repondreErreur(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": notifications, "total": len(notifications)})
}
