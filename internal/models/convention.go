package models

import (
	"time"
)

// Types de convention gérés par la pépinière.
const (
	TypeConventionPepiniere = "PEPINIERE"
	TypeConventionCoworking = "COWORKING"
)

// Rubriques de facturation.
const (
	RubriqueRedevance = "REDEVANCE"
	RubriqueCharge    = "CHARGE"
)

// ConventionDesc is the head row of a convention version. A convention is an
// append-only chain of immutable versions keyed (ConventionID, Version); the
// row with the highest version is the legally binding state, lower versions
// are history. Only ConvAge (a cached derived value) is ever updated in place.
type ConventionDesc struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ConventionID uint `gorm:"uniqueIndex:idx_convdesc_version;not null" json:"convention_id"`
	Version      int  `gorm:"uniqueIndex:idx_convdesc_version;not null" json:"version"`

	// SocieteID is the owning company (for tenancy isolation).
	SocieteID uint `gorm:"index;not null" json:"societe_id"`

	BatimentID     uint   `gorm:"index;not null" json:"batiment_id"`
	TypeConvention string `gorm:"size:20;not null" json:"typ_conv"`

	// Tenant entity of record for this version. RaisonSociale and
	// FormeJuridiqueID are denormalized from Tiers and change through
	// avenants (entité / statut juridique).
	TiersID          uint   `gorm:"index;not null" json:"tiers_id"`
	RaisonSociale    string `gorm:"size:255;not null" json:"raison_sociale"`
	FormeJuridiqueID uint   `json:"forme_juridique_id"`

	DateDebut     time.Time  `gorm:"not null" json:"date_debut"`
	DateFin       *time.Time `json:"date_fin,omitempty"`
	DateSignature *time.Time `json:"date_signature,omitempty"`

	// Statut is the display label of the typed status (convention.Statut).
	Statut string `gorm:"size:100;not null" json:"statut"`

	// ConvAge is the convention age in whole years, recomputed daily.
	ConvAge int `gorm:"not null;default:0" json:"conv_age"`

	CreateUserID uint `json:"create_user_id"`
	UpdateUserID uint `json:"update_user_id"`
}

// GetSocieteID implements the policy.Ownable interface.
func (c *ConventionDesc) GetSocieteID() uint {
	return c.SocieteID
}

// Resiliee reports whether the convention is terminated as of the given
// calendar date.
func (c *ConventionDesc) Resiliee(aujourdhui time.Time) bool {
	return c.DateFin != nil && c.DateFin.Before(aujourdhui)
}

// SignataireConvention links a natural person signing on behalf of the tenant
// to one convention version.
type SignataireConvention struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ConventionID uint `gorm:"uniqueIndex:idx_sigconv;not null" json:"convention_id"`
	Version      int  `gorm:"uniqueIndex:idx_sigconv;not null" json:"version"`
	PersonneID   uint `gorm:"uniqueIndex:idx_sigconv;not null" json:"personne_id"`
}

// UGConvention is a unit (unité de gestion) occupied under a convention
// version. SurfaceLouee may be less than the unit's catalog surface when the
// occupancy is partial.
type UGConvention struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ConventionID uint `gorm:"uniqueIndex:idx_ugconv;not null" json:"convention_id"`
	Version      int  `gorm:"uniqueIndex:idx_ugconv;not null" json:"version"`
	UGID         uint `gorm:"uniqueIndex:idx_ugconv;not null" json:"ug_id"`

	DateDebut    time.Time  `gorm:"not null" json:"date_debut"`
	DateFin      *time.Time `json:"date_fin,omitempty"`
	SurfaceLouee float64    `gorm:"not null" json:"surface_louee"`
}

// EquipementConvention marks a piece of fixed equipment billed under a
// convention version. Unlike every other association it is mutable in place
// on the latest version: adding or removing equipment is not a legal
// amendment and does not create a new version.
type EquipementConvention struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ConventionID uint `gorm:"uniqueIndex:idx_eqconv;not null" json:"convention_id"`
	Version      int  `gorm:"uniqueIndex:idx_eqconv;not null" json:"version"`
	EquipementID uint `gorm:"uniqueIndex:idx_eqconv;not null" json:"equipement_id"`
}

// RubriqueConvention is a billing line item of a convention version. Exactly
// one of UGID (rubrique REDEVANCE) or EquipementID (rubrique CHARGE) is set.
type RubriqueConvention struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ConventionID uint `gorm:"index:idx_rubconv;not null" json:"convention_id"`
	Version      int  `gorm:"index:idx_rubconv;not null" json:"version"`

	UGID         *uint `json:"ug_id,omitempty"`
	EquipementID *uint `json:"equipement_id,omitempty"`

	Rubrique          string  `gorm:"size:50;not null" json:"rubrique"`
	Periodicite       string  `gorm:"size:50" json:"periodicite"`
	ConditionPaiement string  `gorm:"size:100" json:"condition_paiement"`
	Montant           float64 `gorm:"not null" json:"montant"`
}

// SequenceConvention is the single-row sequence from which new convention
// ids are drawn, inside the creation transaction, under a row lock.
type SequenceConvention struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	Prochain uint `gorm:"not null" json:"prochain"`
}
