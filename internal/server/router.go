package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/diewo77/gestion-pepiniere/auth"
	"github.com/diewo77/gestion-pepiniere/httpx"
	"github.com/diewo77/gestion-pepiniere/internal/handlers"
	"github.com/diewo77/gestion-pepiniere/internal/models"
)

// New constructs the root http.Handler with all routes and middlewares
// applied.
func New(db *gorm.DB, corsOrigin string) http.Handler {
	r := mux.NewRouter()

	// RequireAuth re-checks that the session's user still exists and
	// belongs to the claimed société.
	auth.SetSessionVerifier(func(_ context.Context, acteurID, societeID uint) bool {
		var count int64
		err := db.Model(&models.User{}).
			Where("id = ? AND societe_id = ?", acteurID, societeID).
			Limit(1).Count(&count).Error
		return err == nil && count > 0
	})

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	ch := handlers.NewConventionHandler(db)
	nh := handlers.NewNotificationHandler(db)
	dh := handlers.NewDocumentHandler(db, ch)

	api := r.NewRoute().Subrouter()
	api.Use(auth.Middleware, auth.RequireAuth)

	conv := api.PathPrefix("/conventions").Subrouter()
	conv.HandleFunc("", ch.List).Methods(http.MethodGet)
	// Fixed segments before the {id} routes so "anniversaire" and "checks"
	// never parse as convention ids.
	conv.HandleFunc("/anniversaire", ch.ScanAnniversaires).Methods(http.MethodGet)
	conv.HandleFunc("/anniversaire/{id:[0-9]+}/{version:[0-9]+}", ch.Anniversaire).Methods(http.MethodPost)
	conv.HandleFunc("/checks/{id:[0-9]+}/{version:[0-9]+}", ch.Checks).Methods(http.MethodGet)
	conv.HandleFunc("/avenant-statut-juridique/{id:[0-9]+}/{version:[0-9]+}", ch.AvenantStatutJuridique).Methods(http.MethodPost)
	conv.HandleFunc("/avenant-entite/{id:[0-9]+}/{version:[0-9]+}", ch.AvenantEntite).Methods(http.MethodPost)
	conv.HandleFunc("/resiliation/{id:[0-9]+}/{version:[0-9]+}", ch.Resiliation).Methods(http.MethodPost)
	conv.HandleFunc("/avenant-local/{id:[0-9]+}/{version:[0-9]+}", ch.AvenantLocal).Methods(http.MethodPost)
	conv.HandleFunc("/equipement/{id:[0-9]+}/{version:[0-9]+}", ch.EquipementAjouter).Methods(http.MethodPost)
	conv.HandleFunc("/equipement/{id:[0-9]+}/{version:[0-9]+}/{equipementId:[0-9]+}", ch.EquipementRetirer).Methods(http.MethodDelete)
	conv.HandleFunc("/create-pepiniere", ch.CreatePepiniere).Methods(http.MethodPost)
	conv.HandleFunc("/create-coworking", ch.CreateCoworking).Methods(http.MethodPost)
	conv.HandleFunc("/{id:[0-9]+}", ch.Versions).Methods(http.MethodGet)
	conv.HandleFunc("/{id:[0-9]+}/documents", dh.List).Methods(http.MethodGet)
	conv.HandleFunc("/{id:[0-9]+}/documents", dh.Register).Methods(http.MethodPost)
	conv.HandleFunc("/{id:[0-9]+}/{version:[0-9]+}", ch.Snapshot).Methods(http.MethodGet)

	api.HandleFunc("/notifications", nh.List).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{corsOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	return c.Handler(withRecover(withLogging(r)))
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Info("requête traitée")
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithField("panic", rec).Error("panic récupéré")
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
