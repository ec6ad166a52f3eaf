package policy

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/gestion-pepiniere/internal/convention"
	"github.com/diewo77/gestion-pepiniere/internal/models"
)

func TestAppartientA(t *testing.T) {
	b := &models.Batiment{SocieteID: 3}
	if !AppartientA(3, b) {
		t.Fatalf("owner should pass")
	}
	if AppartientA(4, b) {
		t.Fatalf("other société should fail")
	}
	// A resource without an owner is denied, not allowed.
	if AppartientA(3, struct{}{}) {
		t.Fatalf("non-ownable should fail")
	}
}

func TestVerifierConvention(t *testing.T) {
	nom := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", nom)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.ConventionDesc{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	debut := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for version := 1; version <= 2; version++ {
		desc := models.ConventionDesc{
			ConventionID: 10, Version: version, SocieteID: 3, BatimentID: 1,
			TypeConvention: models.TypeConventionPepiniere, TiersID: 1,
			RaisonSociale: "Duval", DateDebut: debut, Statut: "INITIAL",
		}
		if err := db.Create(&desc).Error; err != nil {
			t.Fatalf("desc v%d: %v", version, err)
		}
	}

	desc, err := VerifierConvention(db, 3, 10)
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	if desc.Version != 2 {
		t.Fatalf("should return the latest version, got %d", desc.Version)
	}

	if _, err := VerifierConvention(db, 4, 10); !errors.Is(err, ErrAccesRefuse) {
		t.Fatalf("expected ErrAccesRefuse got %v", err)
	}
	if _, err := VerifierConvention(db, 3, 999); !errors.Is(err, convention.ErrConventionIntrouvable) {
		t.Fatalf("expected ErrConventionIntrouvable got %v", err)
	}
}
