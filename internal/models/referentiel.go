package models

import (
	"time"

	"gorm.io/gorm"
)

// Societe is an operating company of the incubator (the tenancy boundary:
// every convention, building and notification belongs to one société).
type Societe struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RaisonSociale string `gorm:"size:255;not null" json:"raison_sociale"`
	SIRET         string `gorm:"size:14" json:"siret,omitempty"`
}

// User represents an authenticated back-office user.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Prenom   string `gorm:"size:100" json:"prenom,omitempty"`
	Nom      string `gorm:"size:100" json:"nom,omitempty"`
	Password string `gorm:"size:255;not null" json:"-"` // Hashed, never exposed in JSON

	SocieteID uint    `gorm:"index;not null" json:"societe_id"`
	Societe   Societe `gorm:"foreignKey:SocieteID" json:"-"`
}

// Batiment is a managed building.
type Batiment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SocieteID uint   `gorm:"index;not null" json:"societe_id"`
	Intitule  string `gorm:"size:255;not null" json:"intitule"`
	Adresse   string `gorm:"size:500" json:"adresse,omitempty"`
	Ville     string `gorm:"size:100" json:"ville,omitempty"`
}

// GetSocieteID implements the policy.Ownable interface.
func (b *Batiment) GetSocieteID() uint {
	return b.SocieteID
}

// UG is a rentable unit (unité de gestion) of a building. Surface is the
// catalog surface used by the rate table; a convention may rent less.
type UG struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	BatimentID uint     `gorm:"index;not null" json:"batiment_id"`
	Batiment   Batiment `gorm:"foreignKey:BatimentID" json:"-"`

	Intitule string  `gorm:"size:255;not null" json:"intitule"`
	Etage    string  `gorm:"size:20" json:"etage,omitempty"`
	Surface  float64 `gorm:"not null" json:"surface"`
}

// Equipement is a piece of fixed equipment (parking, mobilier, baie
// informatique...) billable under a convention.
type Equipement struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	BatimentID uint    `gorm:"index" json:"batiment_id,omitempty"`
	Intitule   string  `gorm:"size:255;not null" json:"intitule"`
	Prix       float64 `json:"prix"`
}

// FormeJuridique is a legal-form reference entry (SARL, SAS, EI...).
type FormeJuridique struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Code     string `gorm:"size:20;uniqueIndex;not null" json:"code"`
	Intitule string `gorm:"size:255;not null" json:"intitule"`
}

// Tiers is a tenant entity (the hosted company). RaisonSociale and
// FormeJuridiqueID are the master values mirrored into convention versions;
// entity and legal-form avenants update both.
type Tiers struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SocieteID        uint   `gorm:"index;not null" json:"societe_id"`
	RaisonSociale    string `gorm:"size:255;not null" json:"raison_sociale"`
	FormeJuridiqueID uint   `json:"forme_juridique_id"`
	SIRET            string `gorm:"size:14" json:"siret,omitempty"`
	Email            string `gorm:"size:255" json:"email,omitempty"`
}

// GetSocieteID implements the policy.Ownable interface.
func (t *Tiers) GetSocieteID() uint {
	return t.SocieteID
}

// Personne is a natural person attached to a tiers, eligible to sign
// conventions on its behalf.
type Personne struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TiersID uint   `gorm:"index;not null" json:"tiers_id"`
	Prenom  string `gorm:"size:100" json:"prenom,omitempty"`
	Nom     string `gorm:"size:100;not null" json:"nom"`
	Email   string `gorm:"size:255" json:"email,omitempty"`
	Role    string `gorm:"size:100" json:"role,omitempty"`
}
