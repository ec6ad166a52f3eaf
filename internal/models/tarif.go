package models

import "time"

// Types de prix du barème.
const (
	TypePrixPepiniere      = "pepiniere"
	TypePrixCentreAffaires = "centre_affaires"
	TypePrixCoworking      = "coworking"
)

// SurfacePrixUG is a date-ranged rate row: the price grid applicable to a
// given surface and price type between DateDebut and DateFin (nil = current).
// For a fixed (Surface, TypePrix) the date ranges must not overlap; lookups
// select the row whose range contains the reference date.
type SurfacePrixUG struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Surface  float64 `gorm:"index:idx_surface_prix;not null" json:"surface"`
	TypePrix string  `gorm:"index:idx_surface_prix;size:30;not null" json:"type_prix"`

	DateDebut time.Time  `gorm:"not null" json:"price_date_start"`
	DateFin   *time.Time `json:"price_date_end,omitempty"`

	PrixAn1            float64 `json:"prix_an_1"`
	PrixAn2            float64 `json:"prix_an_2"`
	PrixAn3            float64 `json:"prix_an_3"`
	PrixCentreAffaires float64 `json:"prix_centre_affaires"`
	PrixCoworking      float64 `json:"prix_coworking"`
}
