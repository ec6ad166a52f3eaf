package models

import "time"

// Notification flags a convention as needing operator attention (missing
// anniversary amendment or missing supporting document). Existence of the
// (SocieteID, ConventionID) pair is the flag; the compliance checker creates
// and clears it idempotently.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	SocieteID    uint `gorm:"uniqueIndex:idx_notif_conv;not null" json:"societe_id"`
	ConventionID uint `gorm:"uniqueIndex:idx_notif_conv;not null" json:"convention_id"`
}

// GetSocieteID implements the policy.Ownable interface.
func (n *Notification) GetSocieteID() uint {
	return n.SocieteID
}

// DocumentConvention is the metadata of a generated or uploaded legal
// document (contract, avenant...). The bytes live in external object
// storage under CleStockage; only names are needed here, for the
// compliance check against expected document patterns.
type DocumentConvention struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ConventionID uint   `gorm:"index;not null" json:"convention_id"`
	NomFichier   string `gorm:"size:255;not null" json:"nom_fichier"`
	CleStockage  string `gorm:"size:64;uniqueIndex;not null" json:"cle_stockage"`
	UploadUserID uint   `json:"upload_user_id"`
}
