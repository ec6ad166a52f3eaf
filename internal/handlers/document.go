package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/diewo77/gestion-pepiniere/httpx"
	"github.com/diewo77/gestion-pepiniere/internal/models"
	"github.com/diewo77/gestion-pepiniere/validation"
)

// DocumentHandler manages document *metadata*. The bytes live in external
// object storage; the frontend uploads there and then registers the name
// here so the compliance checker can match it against expected patterns.
type DocumentHandler struct {
	DB      *gorm.DB
	Uploads *ConventionHandler
}

func NewDocumentHandler(db *gorm.DB, conv *ConventionHandler) *DocumentHandler {
	return &DocumentHandler{DB: db, Uploads: conv}
}

// List: GET /conventions/{id}/documents
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	_, desc, err := h.Uploads.autoriser(r)
	if err != nil {
		repondreErreur(w, r, err)
		return
	}
	var documents []models.DocumentConvention
	if err := h.DB.
		Where("convention_id = ?", desc.ConventionID).
		Order("nom_fichier").
		Find(&documents).Error; err != nil {
		repondreErreur(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": documents, "total": len(documents)})
}

// Register: POST /conventions/{id}/documents. Records an uploaded file's
// name under a fresh storage key and re-runs the compliance check, so a
// freshly filed avenant clears its notification without a second call.
func (h *DocumentHandler) Register(w http.ResponseWriter, r *http.Request) {
	acteurID, desc, err := h.Uploads.autoriser(r)
	if err != nil {
		repondreErreur(w, r, err)
		return
	}
	var req struct {
		NomFichier string `json:"nom_fichier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, msgParametres, nil)
		return
	}
	v := validation.Violations{}
	validation.Required("nom_fichier", req.NomFichier, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, msgParametres, v)
		return
	}
	doc := models.DocumentConvention{
		ConventionID: desc.ConventionID,
		NomFichier:   strings.TrimSpace(req.NomFichier),
		CleStockage:  uuid.NewString(),
		UploadUserID: acteurID,
	}
	if err := h.DB.Create(&doc).Error; err != nil {
		repondreErreur(w, r, err)
		return
	}
	h.Uploads.reverifier(desc.ConventionID)
	httpx.JSON(w, http.StatusCreated, doc)
}
