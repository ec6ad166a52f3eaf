package convention

import (
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/gestion-pepiniere/internal/models"
)

// DocumentManquant is one historical status whose backing document could not
// be matched among the stored files.
type DocumentManquant struct {
	Statut  string `json:"status"`
	Verifie bool   `json:"verified"`
}

// ResultatConformite is the outcome of a compliance check on one convention.
type ResultatConformite struct {
	AgeOK              bool               `json:"ageOk"`
	DocumentsManquants []DocumentManquant `json:"missingDocuments"`
}

// Conforme reports whether nothing needs operator attention.
func (r *ResultatConformite) Conforme() bool {
	return r.AgeOK && len(r.DocumentsManquants) == 0
}

// Verificateur checks that a convention has every anniversary amendment its
// age requires and a stored document for each historical status, then raises
// or clears the convention's notification accordingly. This is the single
// reconciliation point where the mismatch is surfaced to operators.
type Verificateur struct {
	DB *gorm.DB
}

func NewVerificateur(db *gorm.DB) *Verificateur { return &Verificateur{DB: db} }

// Verifier runs the compliance check and side-effects the notification.
func (v *Verificateur) Verifier(conventionID uint) (*ResultatConformite, error) {
	lecteur := NewLecteur(v.DB)
	var derniere models.ConventionDesc
	if err := v.DB.
		Where("convention_id = ?", conventionID).
		Order("version DESC").
		First(&derniere).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrConventionIntrouvable
		}
		return nil, err
	}
	historique, err := lecteur.Historique(conventionID)
	if err != nil {
		return nil, err
	}

	resultat := &ResultatConformite{
		AgeOK: len(AnniversairesManquants(historique, derniere.ConvAge)) == 0,
	}

	var documents []models.DocumentConvention
	if err := v.DB.Where("convention_id = ?", conventionID).Find(&documents).Error; err != nil {
		return nil, err
	}
	noms := make([]string, 0, len(documents))
	for _, doc := range documents {
		nom := doc.NomFichier
		noms = append(noms, strings.TrimSuffix(nom, filepath.Ext(nom)))
	}

	for _, statut := range historique {
		attendu := statut.NomDocument()
		if !documentPresent(noms, attendu) {
			resultat.DocumentsManquants = append(resultat.DocumentsManquants,
				DocumentManquant{Statut: statut.Label(), Verifie: false})
		}
	}

	if resultat.Conforme() {
		err = v.DB.
			Where("societe_id = ? AND convention_id = ?", derniere.SocieteID, conventionID).
			Delete(&models.Notification{}).Error
	} else {
		err = upsertNotification(v.DB, derniere.SocieteID, conventionID)
	}
	if err != nil {
		return nil, err
	}
	return resultat, nil
}

// documentPresent: a status is verified when any stored filename (extension
// stripped) starts with the expected stem.
func documentPresent(noms []string, attendu string) bool {
	for _, nom := range noms {
		if strings.HasPrefix(nom, attendu) {
			return true
		}
	}
	return false
}
