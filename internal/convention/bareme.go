package convention

import (
	"errors"
	"fmt"

	"time"

	"gorm.io/gorm"

	"github.com/diewo77/gestion-pepiniere/internal/models"
)

// Bareme resolves prices from the date-ranged surface_prix_ugs rate table.
type Bareme struct {
	DB *gorm.DB
}

func NewBareme(db *gorm.DB) *Bareme { return &Bareme{DB: db} }

// Lookup selects the unique rate row matching surface and type whose
// [date_debut, date_fin ?? +inf] range contains the reference date.
// A miss returns ErrBaremeIntrouvable: callers must treat it as a
// data-completeness error, never default the price to zero.
func (b *Bareme) Lookup(surface float64, typePrix string, dateRef time.Time) (*models.SurfacePrixUG, error) {
	var row models.SurfacePrixUG
	err := b.DB.
		Where("surface = ? AND type_prix = ?", surface, typePrix).
		Where("date_debut <= ?", dateRef).
		Where("(date_fin IS NULL OR date_fin >= ?)", dateRef).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("surface %.2f type %s au %s: %w",
			surface, typePrix, dateRef.Format("2006-01-02"), ErrBaremeIntrouvable)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// PrixSelonAge picks the yearly price column for a pépinière convention of
// the given age: year 1 for age 0, year 2 for age 1, year 3 for age 2, then
// the centre d'affaires price from the third anniversary on.
func PrixSelonAge(row *models.SurfacePrixUG, age int) float64 {
	switch {
	case age <= 0:
		return row.PrixAn1
	case age == 1:
		return row.PrixAn2
	case age == 2:
		return row.PrixAn3
	default:
		return row.PrixCentreAffaires
	}
}

// ProRata scales a catalog-surface price linearly down to the rented
// surface. Full occupancy (or a missing catalog surface) keeps the price.
func ProRata(prix, surfaceLouee, surfaceCatalogue float64) float64 {
	if surfaceCatalogue <= 0 || surfaceLouee <= 0 || surfaceLouee == surfaceCatalogue {
		return prix
	}
	return prix * surfaceLouee / surfaceCatalogue
}
