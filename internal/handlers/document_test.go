package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/diewo77/gestion-pepiniere/internal/models"
)

func TestDocumentRegisterEtList(t *testing.T) {
	conn := setupConventionTestDB(t)
	f := seedConventionFixtures(t, conn)
	ch := NewConventionHandler(conn)
	dh := NewDocumentHandler(conn, ch)
	id := creerConventionTest(t, ch, f)

	vars := map[string]string{"id": strconv.Itoa(int(id))}
	req := authedRequest(http.MethodPost, "/conventions/1/documents", `{"nom_fichier":"INITIAL_duval.pdf"}`, f.Acteur.ID, f.Societe.ID, vars)
	w := httptest.NewRecorder()
	dh.Register(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var doc models.DocumentConvention
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.CleStockage == "" {
		t.Fatalf("storage key missing: %#v", doc)
	}

	req = authedRequest(http.MethodGet, "/conventions/1/documents", "", f.Acteur.ID, f.Societe.ID, vars)
	w = httptest.NewRecorder()
	dh.List(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Items []models.DocumentConvention `json:"items"`
		Total int                         `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 {
		t.Fatalf("expected 1 document got %d", resp.Total)
	}

	// Filing the INITIAL document cleared the compliance notification.
	var notifs []models.Notification
	if err := conn.Where("convention_id = ?", id).Find(&notifs).Error; err != nil {
		t.Fatalf("notifs: %v", err)
	}
	if len(notifs) != 0 {
		t.Fatalf("notification should be cleared, got %d", len(notifs))
	}
}

func TestDocumentRegisterSansNom(t *testing.T) {
	conn := setupConventionTestDB(t)
	f := seedConventionFixtures(t, conn)
	ch := NewConventionHandler(conn)
	dh := NewDocumentHandler(conn, ch)
	id := creerConventionTest(t, ch, f)

	vars := map[string]string{"id": strconv.Itoa(int(id))}
	req := authedRequest(http.MethodPost, "/conventions/1/documents", `{"nom_fichier":"  "}`, f.Acteur.ID, f.Societe.ID, vars)
	w := httptest.NewRecorder()
	dh.Register(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestNotificationListParSociete(t *testing.T) {
	conn := setupConventionTestDB(t)
	f := seedConventionFixtures(t, conn)
	nh := NewNotificationHandler(conn)

	if err := conn.Create(&models.Notification{SocieteID: f.Societe.ID, ConventionID: 1}).Error; err != nil {
		t.Fatalf("notif: %v", err)
	}
	if err := conn.Create(&models.Notification{SocieteID: f.Autre.ID, ConventionID: 2}).Error; err != nil {
		t.Fatalf("notif: %v", err)
	}

	req := authedRequest(http.MethodGet, "/notifications", "", f.Acteur.ID, f.Societe.ID, nil)
	w := httptest.NewRecorder()
	nh.List(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Items []models.Notification `json:"items"`
		Total int                   `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || resp.Items[0].ConventionID != 1 {
		t.Fatalf("tenancy filter: %#v", resp)
	}
}
