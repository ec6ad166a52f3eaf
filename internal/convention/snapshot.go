package convention

import (
	"errors"

	"gorm.io/gorm"

	"github.com/diewo77/gestion-pepiniere/internal/models"
)

// Snapshot is the full row set of one convention version across the five
// versioned tables.
type Snapshot struct {
	Desc        models.ConventionDesc        `json:"desc"`
	Signataires []models.SignataireConvention `json:"signataires"`
	UGs         []models.UGConvention         `json:"ugs"`
	Equipements []models.EquipementConvention `json:"equipements"`
	Rubriques   []models.RubriqueConvention   `json:"rubriques"`
}

// VersionResume is one line of a convention's version history.
type VersionResume struct {
	Version int    `json:"version"`
	Statut  string `json:"statut"`
	ConvAge int    `json:"conv_age"`
}

// Lecteur reads convention versions. Pure reads, no side effects.
type Lecteur struct {
	DB *gorm.DB
}

func NewLecteur(db *gorm.DB) *Lecteur { return &Lecteur{DB: db} }

// Snapshot fetches the complete row set of (conventionID, version).
func (l *Lecteur) Snapshot(conventionID uint, version int) (*Snapshot, error) {
	var snap Snapshot
	err := l.DB.
		Where("convention_id = ? AND version = ?", conventionID, version).
		First(&snap.Desc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConventionIntrouvable
	}
	if err != nil {
		return nil, err
	}
	scope := func(db *gorm.DB) *gorm.DB {
		return db.Where("convention_id = ? AND version = ?", conventionID, version)
	}
	if err := l.DB.Scopes(scope).Order("personne_id").Find(&snap.Signataires).Error; err != nil {
		return nil, err
	}
	if err := l.DB.Scopes(scope).Order("ug_id").Find(&snap.UGs).Error; err != nil {
		return nil, err
	}
	if err := l.DB.Scopes(scope).Order("equipement_id").Find(&snap.Equipements).Error; err != nil {
		return nil, err
	}
	if err := l.DB.Scopes(scope).Order("id").Find(&snap.Rubriques).Error; err != nil {
		return nil, err
	}
	return &snap, nil
}

// DerniereVersion returns the current (maximum) version number of a
// convention, or ErrConventionIntrouvable if the id is unknown.
func (l *Lecteur) DerniereVersion(conventionID uint) (int, error) {
	var desc models.ConventionDesc
	err := l.DB.
		Where("convention_id = ?", conventionID).
		Order("version DESC").
		First(&desc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrConventionIntrouvable
	}
	if err != nil {
		return 0, err
	}
	return desc.Version, nil
}

// Versions lists the whole history of a convention, newest first.
func (l *Lecteur) Versions(conventionID uint) ([]VersionResume, error) {
	var descs []models.ConventionDesc
	if err := l.DB.
		Where("convention_id = ?", conventionID).
		Order("version DESC").
		Find(&descs).Error; err != nil {
		return nil, err
	}
	if len(descs) == 0 {
		return nil, ErrConventionIntrouvable
	}
	resumes := make([]VersionResume, 0, len(descs))
	for _, d := range descs {
		resumes = append(resumes, VersionResume{Version: d.Version, Statut: d.Statut, ConvAge: d.ConvAge})
	}
	return resumes, nil
}

// Historique parses the typed statuses of every version, oldest first.
// Unparseable labels are a hard error: counters must never be derived from
// a corrupted history.
func (l *Lecteur) Historique(conventionID uint) ([]Statut, error) {
	var descs []models.ConventionDesc
	if err := l.DB.
		Where("convention_id = ?", conventionID).
		Order("version ASC").
		Find(&descs).Error; err != nil {
		return nil, err
	}
	if len(descs) == 0 {
		return nil, ErrConventionIntrouvable
	}
	historique := make([]Statut, 0, len(descs))
	for _, d := range descs {
		s, err := ParseStatut(d.Statut)
		if err != nil {
			return nil, err
		}
		historique = append(historique, s)
	}
	return historique, nil
}
