package convention

import (
	"gorm.io/gorm"

	"github.com/diewo77/gestion-pepiniere/internal/models"
)

// Equipment membership is the one deliberately mutable association of the
// model: attaching or detaching equipment is not a legal amendment, so it
// edits the latest version's rows in place instead of producing a version.
// Historical versions stay untouchable: a stale version is rejected.

// AjouterEquipement attaches a piece of equipment to the current version.
// Idempotent.
func (m *Moteur) AjouterEquipement(conventionID uint, version int, equipementID uint) error {
	return m.DB.Transaction(func(tx *gorm.DB) error {
		if err := verifierVersionCourante(tx, conventionID, version); err != nil {
			return err
		}
		lien := models.EquipementConvention{
			ConventionID: conventionID,
			Version:      version,
			EquipementID: equipementID,
		}
		var existant models.EquipementConvention
		return tx.Where(lien).FirstOrCreate(&existant).Error
	})
}

// RetirerEquipement detaches a piece of equipment from the current version.
// Billing lines are left to the next amendment's reprice, like the rest of
// the membership asymmetry.
func (m *Moteur) RetirerEquipement(conventionID uint, version int, equipementID uint) error {
	return m.DB.Transaction(func(tx *gorm.DB) error {
		if err := verifierVersionCourante(tx, conventionID, version); err != nil {
			return err
		}
		return tx.
			Where("convention_id = ? AND version = ? AND equipement_id = ?", conventionID, version, equipementID).
			Delete(&models.EquipementConvention{}).Error
	})
}

func verifierVersionCourante(tx *gorm.DB, conventionID uint, version int) error {
	derniere, err := NewLecteur(tx).DerniereVersion(conventionID)
	if err != nil {
		return err
	}
	if version != derniere {
		return ErrVersionObsolete
	}
	return nil
}
