package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/diewo77/gestion-pepiniere/auth"
	"github.com/diewo77/gestion-pepiniere/httpx"
	"github.com/diewo77/gestion-pepiniere/internal/convention"
	"github.com/diewo77/gestion-pepiniere/internal/models"
	"github.com/diewo77/gestion-pepiniere/internal/policy"
	"github.com/diewo77/gestion-pepiniere/validation"
)

// User-facing messages are static French strings; the real error only ever
// reaches the server logs.
const (
	msgErreurInterne   = "Une erreur est survenue, veuillez réessayer plus tard"
	msgConflitVersion  = "La convention a été modifiée entre-temps, veuillez recharger"
	msgIntrouvable     = "Convention introuvable"
	msgAccesRefuse     = "Accès refusé"
	msgParametres      = "Paramètres invalides"
	msgBaremeManquant  = "Aucun barème ne couvre cette surface à cette date"
	msgTypeInconnu     = "Type de convention non géré"
)

// ConventionHandler exposes the conventions REST surface.
type ConventionHandler struct {
	DB           *gorm.DB
	Moteur       *convention.Moteur
	Lecteur      *convention.Lecteur
	Verificateur *convention.Verificateur
	Createur     *convention.Createur
	Scanner      *convention.Scanner
	Horloge      convention.Horloge
}

func NewConventionHandler(db *gorm.DB) *ConventionHandler {
	return &ConventionHandler{
		DB:           db,
		Moteur:       convention.NewMoteur(db),
		Lecteur:      convention.NewLecteur(db),
		Verificateur: convention.NewVerificateur(db),
		Createur:     convention.NewCreateur(db),
		Scanner:      convention.NewScanner(db),
		Horloge:      convention.AujourdHui,
	}
}

// repondreErreur maps engine errors onto the HTTP taxonomy. Anything
// unexpected is logged and answered with the generic French 500.
func repondreErreur(w http.ResponseWriter, r *http.Request, err error) {
	var vErrs validator.ValidationErrors
	switch {
	case errors.Is(err, convention.ErrConventionIntrouvable):
		httpx.JSONError(w, http.StatusNotFound, msgIntrouvable, nil)
	case errors.Is(err, policy.ErrAccesRefuse):
		httpx.JSONError(w, http.StatusForbidden, msgAccesRefuse, nil)
	case errors.Is(err, convention.ErrVersionObsolete):
		httpx.JSONError(w, http.StatusConflict, msgConflitVersion, nil)
	case errors.Is(err, convention.ErrBaremeIntrouvable):
		httpx.JSONError(w, http.StatusBadRequest, msgBaremeManquant, nil)
	case errors.Is(err, convention.ErrTypeConventionInconnu):
		httpx.JSONError(w, http.StatusBadRequest, msgTypeInconnu, nil)
	case errors.Is(err, convention.ErrLocalRequis):
		httpx.JSONError(w, http.StatusBadRequest, msgParametres, map[string]string{"ugs": "required"})
	case errors.As(err, &vErrs):
		details := map[string]string{}
		for _, f := range vErrs {
			details[f.Field()] = f.Tag()
		}
		httpx.JSONError(w, http.StatusBadRequest, msgParametres, details)
	default:
		log.WithError(err).WithField("path", r.URL.Path).Error("erreur interne")
		httpx.JSONError(w, http.StatusInternalServerError, msgErreurInterne, nil)
	}
}

// cheminConvention extracts and checks the {id}/{version} path pair.
func cheminConvention(r *http.Request) (uint, int, bool) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil || id == 0 {
		return 0, 0, false
	}
	version, err := strconv.Atoi(vars["version"])
	if err != nil || version < 1 {
		return 0, 0, false
	}
	return uint(id), version, true
}

// session pulls the acting user and their société from the request context.
func session(r *http.Request) (acteurID, societeID uint, ok bool) {
	acteurID, okA := auth.ActeurFromContext(r.Context())
	societeID, okS := auth.SocieteFromContext(r.Context())
	return acteurID, societeID, okA && okS
}

// autoriser checks company ownership of the convention and returns its
// latest desc.
func (h *ConventionHandler) autoriser(r *http.Request) (uint, *models.ConventionDesc, error) {
	acteurID, societeID, ok := session(r)
	if !ok {
		return 0, nil, policy.ErrAccesRefuse
	}
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil || id == 0 {
		return 0, nil, convention.ErrConventionIntrouvable
	}
	desc, err := policy.VerifierConvention(h.DB, societeID, uint(id))
	if err != nil {
		return 0, nil, err
	}
	return acteurID, desc, nil
}

var searchSanitizer = regexp.MustCompile(`[^a-zA-Z0-9À-ÿ \-_']`)

// conventionListItem decorates a latest-version row with its computed
// termination state for the list screen.
type conventionListItem struct {
	models.ConventionDesc
	Resilie bool `json:"resilie"`
}

// List: GET /conventions, paginated search over current-version rows.
func (h *ConventionHandler) List(w http.ResponseWriter, r *http.Request) {
	_, societeID, ok := session(r)
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, msgAccesRefuse, nil)
		return
	}
	aujourdhui := h.Horloge()

	q := r.URL.Query()
	dbq := h.DB.Model(&models.ConventionDesc{}).
		Where("societe_id = ?", societeID).
		Where("version = (SELECT MAX(version) FROM convention_descs d2 WHERE d2.convention_id = convention_descs.convention_id)")

	if v := q.Get("batiment_id"); v != "" {
		if id, err := strconv.Atoi(v); err == nil && id > 0 {
			dbq = dbq.Where("batiment_id = ?", id)
		}
	}
	if v := q.Get("typ_conv"); v == models.TypeConventionPepiniere || v == models.TypeConventionCoworking {
		dbq = dbq.Where("type_convention = ?", v)
	}
	if v := q.Get("selectedDate"); v != "" {
		if d, err := time.Parse("2006-01-02", v); err == nil {
			dbq = dbq.Where("date_debut <= ?", d).
				Where("(date_fin IS NULL OR date_fin >= ?)", d)
		}
	}
	if v := strings.TrimSpace(q.Get("search")); v != "" {
		safe := searchSanitizer.ReplaceAllString(v, "")
		like := "%" + strings.ToLower(safe) + "%"
		dbq = dbq.Where("lower(raison_sociale) LIKE ?", like)
	}
	// Active / resiliated status is a calendar-date comparison, Paris time.
	if q.Get("active") == "true" {
		dbq = dbq.Where("date_debut <= ?", aujourdhui).
			Where("(date_fin IS NULL OR date_fin >= ?)", aujourdhui)
	}
	if q.Get("resilie") == "true" {
		dbq = dbq.Where("date_fin IS NOT NULL AND date_fin < ?", aujourdhui)
	}

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			offset = n
		}
	}

	var total int64
	if err := dbq.Count(&total).Error; err != nil {
		repondreErreur(w, r, err)
		return
	}
	var descs []models.ConventionDesc
	if err := dbq.Order("convention_id desc").Limit(limit).Offset(offset).Find(&descs).Error; err != nil {
		repondreErreur(w, r, err)
		return
	}
	items := make([]conventionListItem, 0, len(descs))
	for i := range descs {
		items = append(items, conventionListItem{
			ConventionDesc: descs[i],
			Resilie:        descs[i].Resiliee(aujourdhui),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items": items, "total": total, "limit": limit, "offset": offset,
	})
}

// Versions: GET /conventions/{id}, version history, newest first.
func (h *ConventionHandler) Versions(w http.ResponseWriter, r *http.Request) {
	if _, _, err := h.autoriser(r); err != nil {
		repondreErreur(w, r, err)
		return
	}
	vars := mux.Vars(r)
	id, _ := strconv.ParseUint(vars["id"], 10, 64)
	versions, err := h.Lecteur.Versions(uint(id))
	if err != nil {
		repondreErreur(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"versions": versions})
}

// Snapshot: GET /conventions/{id}/{version}, full row set of one version.
func (h *ConventionHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if _, _, err := h.autoriser(r); err != nil {
		repondreErreur(w, r, err)
		return
	}
	id, version, ok := cheminConvention(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, msgParametres, nil)
		return
	}
	snap, err := h.Lecteur.Snapshot(id, version)
	if err != nil {
		repondreErreur(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

// ScanAnniversaires: GET /conventions/anniversaire, synchronous run of the
// daily scan (manual re-run hook).
func (h *ConventionHandler) ScanAnniversaires(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := session(r); !ok {
		httpx.JSONError(w, http.StatusForbidden, msgAccesRefuse, nil)
		return
	}
	signales, err := h.Scanner.Run()
	if err != nil {
		repondreErreur(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Scan des anniversaires terminé", "signales": signales})
}

// Checks: GET /conventions/checks/{id}/{version}, compliance check,
// side-effects the notification.
func (h *ConventionHandler) Checks(w http.ResponseWriter, r *http.Request) {
	_, desc, err := h.autoriser(r)
	if err != nil {
		repondreErreur(w, r, err)
		return
	}
	resultat, err := h.Verificateur.Verifier(desc.ConventionID)
	if err != nil {
		repondreErreur(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resultat)
}

// avenant factors the shared flow of the four single-delta amendments.
func (h *ConventionHandler) avenant(w http.ResponseWriter, r *http.Request, delta convention.Delta) {
	acteurID, desc, err := h.autoriser(r)
	if err != nil {
		repondreErreur(w, r, err)
		return
	}
	_, version, ok := cheminConvention(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, msgParametres, nil)
		return
	}
	nouvelleVersion, err := h.Moteur.Avenant(desc.ConventionID, version, acteurID, delta)
	if err != nil {
		repondreErreur(w, r, err)
		return
	}
	h.reverifier(desc.ConventionID)
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Avenant enregistré", "newVersion": nouvelleVersion})
}

// reverifier re-runs the compliance check after a successful mutation so the
// notification state always reflects the new history.
func (h *ConventionHandler) reverifier(conventionID uint) {
	if _, err := h.Verificateur.Verifier(conventionID); err != nil {
		log.WithError(err).WithField("convention", conventionID).Warn("re-vérification de conformité échouée")
	}
}

// AvenantStatutJuridique: POST /conventions/avenant-statut-juridique/{id}/{version}
func (h *ConventionHandler) AvenantStatutJuridique(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FormeJuridiqueID uint `json:"forme_juridique_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, msgParametres, nil)
		return
	}
	v := validation.Violations{}
	validation.RequiredID("forme_juridique_id", req.FormeJuridiqueID, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, msgParametres, v)
		return
	}
	h.avenant(w, r, convention.DeltaStatutJuridique{FormeJuridiqueID: req.FormeJuridiqueID})
}

// AvenantEntite: POST /conventions/avenant-entite/{id}/{version}
func (h *ConventionHandler) AvenantEntite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RaisonSociale string `json:"raison_sociale"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, msgParametres, nil)
		return
	}
	v := validation.Violations{}
	validation.Required("raison_sociale", req.RaisonSociale, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, msgParametres, v)
		return
	}
	h.avenant(w, r, convention.DeltaEntite{RaisonSociale: strings.TrimSpace(req.RaisonSociale)})
}

// Resiliation: POST /conventions/resiliation/{id}/{version}
func (h *ConventionHandler) Resiliation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DateFin *time.Time `json:"date_fin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, msgParametres, nil)
		return
	}
	h.avenant(w, r, convention.DeltaResiliation{DateFin: req.DateFin})
}

// AvenantLocal: POST /conventions/avenant-local/{id}/{version}. The body
// carries the full replacement unit set.
func (h *ConventionHandler) AvenantLocal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UGs []convention.UGInput `json:"ugs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.UGs) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, msgParametres, map[string]string{"ugs": "required"})
		return
	}
	ugs := make([]models.UGConvention, 0, len(req.UGs))
	for i, in := range req.UGs {
		v := validation.Violations{}
		prefixe := "ugs[" + strconv.Itoa(i) + "]."
		validation.RequiredID(prefixe+"ug_id", in.UGID, v)
		validation.PositiveFloat(prefixe+"surface_louee", in.SurfaceLouee, v)
		validation.RequiredDate(prefixe+"date_debut", in.DateDebut, v)
		if !v.Empty() {
			httpx.JSONError(w, http.StatusBadRequest, msgParametres, v)
			return
		}
		ugs = append(ugs, models.UGConvention{
			UGID:         in.UGID,
			DateDebut:    in.DateDebut,
			DateFin:      in.DateFin,
			SurfaceLouee: in.SurfaceLouee,
		})
	}
	h.avenant(w, r, convention.DeltaLocal{UGs: ugs})
}

// Anniversaire: POST /conventions/anniversaire/{id}/{version}. Inserts one
// version per missing anniversary, in order, in one transaction.
func (h *ConventionHandler) Anniversaire(w http.ResponseWriter, r *http.Request) {
	acteurID, desc, err := h.autoriser(r)
	if err != nil {
		repondreErreur(w, r, err)
		return
	}
	_, version, ok := cheminConvention(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, msgParametres, nil)
		return
	}
	versions, err := h.Moteur.RattrapageAnniversaires(desc.ConventionID, version, acteurID)
	if err != nil {
		repondreErreur(w, r, err)
		return
	}
	h.reverifier(desc.ConventionID)
	reponse := map[string]any{"message": "Avenants anniversaire enregistrés", "newVersions": versions}
	if len(versions) > 0 {
		reponse["newVersion"] = versions[len(versions)-1]
	}
	httpx.JSON(w, http.StatusOK, reponse)
}

// EquipementAjouter: POST /conventions/equipement/{id}/{version}
func (h *ConventionHandler) EquipementAjouter(w http.ResponseWriter, r *http.Request) {
	_, desc, err := h.autoriser(r)
	if err != nil {
		repondreErreur(w, r, err)
		return
	}
	_, version, ok := cheminConvention(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, msgParametres, nil)
		return
	}
	var req struct {
		EquipementID uint `json:"equipement_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, msgParametres, nil)
		return
	}
	v := validation.Violations{}
	validation.RequiredID("equipement_id", req.EquipementID, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, msgParametres, v)
		return
	}
	if err := h.Moteur.AjouterEquipement(desc.ConventionID, version, req.EquipementID); err != nil {
		repondreErreur(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Équipement ajouté"})
}

// EquipementRetirer: DELETE /conventions/equipement/{id}/{version}/{equipementId}
func (h *ConventionHandler) EquipementRetirer(w http.ResponseWriter, r *http.Request) {
	_, desc, err := h.autoriser(r)
	if err != nil {
		repondreErreur(w, r, err)
		return
	}
	_, version, ok := cheminConvention(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, msgParametres, nil)
		return
	}
	eqID, err := strconv.ParseUint(mux.Vars(r)["equipementId"], 10, 64)
	if err != nil || eqID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, msgParametres, map[string]string{"equipementId": "required"})
		return
	}
	if err := h.Moteur.RetirerEquipement(desc.ConventionID, version, uint(eqID)); err != nil {
		repondreErreur(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Équipement retiré"})
}

// CreatePepiniere: POST /conventions/create-pepiniere
func (h *ConventionHandler) CreatePepiniere(w http.ResponseWriter, r *http.Request) {
	h.creer(w, r, h.Createur.CreerPepiniere)
}

// CreateCoworking: POST /conventions/create-coworking
func (h *ConventionHandler) CreateCoworking(w http.ResponseWriter, r *http.Request) {
	h.creer(w, r, h.Createur.CreerCoworking)
}

func (h *ConventionHandler) creer(w http.ResponseWriter, r *http.Request, build func(uint, uint, convention.CreationInput) (uint, error)) {
	acteurID, societeID, ok := session(r)
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, msgAccesRefuse, nil)
		return
	}
	var in convention.CreationInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, msgParametres, nil)
		return
	}
	// The target building must belong to the caller's société.
	var batiment models.Batiment
	if err := h.DB.First(&batiment, in.BatimentID).Error; err != nil {
		httpx.JSONError(w, http.StatusBadRequest, msgParametres, map[string]string{"batiment_id": "unknown"})
		return
	}
	if !policy.AppartientA(societeID, &batiment) {
		httpx.JSONError(w, http.StatusForbidden, msgAccesRefuse, nil)
		return
	}
	conventionID, err := build(societeID, acteurID, in)
	if err != nil {
		repondreErreur(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"message": "Convention créée", "convention_id": conventionID, "version": 1})
}
