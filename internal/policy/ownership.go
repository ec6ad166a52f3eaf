package policy

import (
	"errors"

	"gorm.io/gorm"

	"github.com/diewo77/gestion-pepiniere/internal/convention"
	"github.com/diewo77/gestion-pepiniere/internal/models"
)

// ErrAccesRefuse: the acting user's société does not own the resource.
var ErrAccesRefuse = errors.New("accès refusé")

// Ownable is implemented by models that belong to one société.
// Resources without an owner are denied by default.
type Ownable interface {
	GetSocieteID() uint
}

// AppartientA checks that a resource belongs to the given société.
func AppartientA(societeID uint, resource any) bool {
	ownable, ok := resource.(Ownable)
	if !ok {
		return false
	}
	return ownable.GetSocieteID() == societeID
}

// VerifierConvention loads the latest version of a convention and checks
// that it belongs to the acting user's société. Returns the latest desc on
// success so handlers don't re-read it.
func VerifierConvention(db *gorm.DB, societeID, conventionID uint) (*models.ConventionDesc, error) {
	var desc models.ConventionDesc
	err := db.
		Where("convention_id = ?", conventionID).
		Order("version DESC").
		First(&desc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, convention.ErrConventionIntrouvable
	}
	if err != nil {
		return nil, err
	}
	if !AppartientA(societeID, &desc) {
		return nil, ErrAccesRefuse
	}
	return &desc, nil
}
