package convention

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/diewo77/gestion-pepiniere/internal/models"
)

// SignataireInput is one proposed signatory; only checked ones are kept.
type SignataireInput struct {
	PersonneID uint `json:"personne_id" validate:"required"`
	Coche      bool `json:"coche"`
}

// UGInput is one unit occupancy of the new convention.
type UGInput struct {
	UGID         uint       `json:"ug_id" validate:"required"`
	DateDebut    time.Time  `json:"date_debut" validate:"required"`
	DateFin      *time.Time `json:"date_fin,omitempty"`
	SurfaceLouee float64    `json:"surface_louee" validate:"gt=0"`
}

// EquipementInput is one billed equipment item, with its flat monthly price.
type EquipementInput struct {
	EquipementID uint    `json:"equipement_id" validate:"required"`
	Prix         float64 `json:"prix" validate:"gte=0"`
}

// CreationInput is the flat payload from which version 1 of a convention is
// built.
type CreationInput struct {
	BatimentID       uint       `json:"batiment_id" validate:"required"`
	TiersID          uint       `json:"tiers_id" validate:"required"`
	RaisonSociale    string     `json:"raison_sociale" validate:"required"`
	FormeJuridiqueID uint       `json:"forme_juridique_id"`
	DateDebut        time.Time  `json:"date_debut" validate:"required"`
	DateFin          *time.Time `json:"date_fin,omitempty"`
	DateSignature    *time.Time `json:"date_signature,omitempty"`

	Signataires []SignataireInput `json:"signataires" validate:"dive"`
	UGs         []UGInput         `json:"ugs" validate:"dive"`
	Equipements []EquipementInput `json:"equipements" validate:"dive"`
}

// Createur builds version-1 row sets for brand-new conventions. Convention
// ids come from a sequence row incremented inside the creation transaction,
// so two concurrent creations cannot collide.
type Createur struct {
	DB       *gorm.DB
	Bareme   *Bareme
	validate *validator.Validate
}

func NewCreateur(db *gorm.DB) *Createur {
	return &Createur{DB: db, Bareme: NewBareme(db), validate: validator.New()}
}

// CreerPepiniere creates an incubator convention: desc INITIAL age 0,
// checked signatories, the provided units and equipment, a REDEVANCE line
// per unit (year-1 price at the start date, pro-rated) and a CHARGE line per
// equipment item. Returns the new convention id.
func (c *Createur) CreerPepiniere(societeID, acteurID uint, in CreationInput) (uint, error) {
	if err := c.validate.Struct(in); err != nil {
		return 0, err
	}
	if len(in.UGs) == 0 {
		return 0, ErrLocalRequis
	}
	var conventionID uint
	err := c.DB.Transaction(func(tx *gorm.DB) error {
		id, err := prochainConventionID(tx)
		if err != nil {
			return err
		}
		conventionID = id

		snap := &Snapshot{
			Desc: descInitiale(id, societeID, acteurID, models.TypeConventionPepiniere, in),
		}
		snap.Signataires = signatairesCoches(id, in.Signataires)

		bareme := &Bareme{DB: tx}
		for _, ug := range in.UGs {
			var catalogue models.UG
			if err := tx.First(&catalogue, ug.UGID).Error; err != nil {
				return fmt.Errorf("ug %d: %w", ug.UGID, err)
			}
			snap.UGs = append(snap.UGs, models.UGConvention{
				ConventionID: id,
				Version:      1,
				UGID:         ug.UGID,
				DateDebut:    ug.DateDebut,
				DateFin:      ug.DateFin,
				SurfaceLouee: ug.SurfaceLouee,
			})
			row, err := bareme.Lookup(catalogue.Surface, models.TypePrixPepiniere, in.DateDebut)
			if err != nil {
				return err
			}
			prix := ProRata(row.PrixAn1, ug.SurfaceLouee, catalogue.Surface)
			ugID := ug.UGID
			snap.Rubriques = append(snap.Rubriques, models.RubriqueConvention{
				ConventionID:      id,
				Version:           1,
				UGID:              &ugID,
				Rubrique:          models.RubriqueRedevance,
				Periodicite:       PeriodiciteMensuelle,
				ConditionPaiement: ConditionTermeAEchoir,
				Montant:           prix,
			})
		}
		for _, eq := range in.Equipements {
			eqID := eq.EquipementID
			snap.Equipements = append(snap.Equipements, models.EquipementConvention{
				ConventionID: id,
				Version:      1,
				EquipementID: eq.EquipementID,
			})
			snap.Rubriques = append(snap.Rubriques, models.RubriqueConvention{
				ConventionID:      id,
				Version:           1,
				EquipementID:      &eqID,
				Rubrique:          models.RubriqueCharge,
				Periodicite:       PeriodiciteMensuelle,
				ConditionPaiement: ConditionTermeAEchoir,
				Montant:           eq.Prix,
			})
		}
		return insererSnapshot(tx, snap)
	})
	if err != nil {
		return 0, err
	}
	return conventionID, nil
}

// CreerCoworking creates a coworking convention: desc and checked
// signatories only. Coworking pricing is flat and tracked outside the
// convention's line items.
func (c *Createur) CreerCoworking(societeID, acteurID uint, in CreationInput) (uint, error) {
	if err := c.validate.Struct(in); err != nil {
		return 0, err
	}
	var conventionID uint
	err := c.DB.Transaction(func(tx *gorm.DB) error {
		id, err := prochainConventionID(tx)
		if err != nil {
			return err
		}
		conventionID = id
		snap := &Snapshot{
			Desc: descInitiale(id, societeID, acteurID, models.TypeConventionCoworking, in),
		}
		snap.Signataires = signatairesCoches(id, in.Signataires)
		return insererSnapshot(tx, snap)
	})
	if err != nil {
		return 0, err
	}
	return conventionID, nil
}

func descInitiale(conventionID, societeID, acteurID uint, typeConvention string, in CreationInput) models.ConventionDesc {
	return models.ConventionDesc{
		ConventionID:     conventionID,
		Version:          1,
		SocieteID:        societeID,
		BatimentID:       in.BatimentID,
		TypeConvention:   typeConvention,
		TiersID:          in.TiersID,
		RaisonSociale:    in.RaisonSociale,
		FormeJuridiqueID: in.FormeJuridiqueID,
		DateDebut:        in.DateDebut,
		DateFin:          in.DateFin,
		DateSignature:    in.DateSignature,
		Statut:           Statut{Famille: FamilleInitial}.Label(),
		ConvAge:          0,
		CreateUserID:     acteurID,
		UpdateUserID:     acteurID,
	}
}

func signatairesCoches(conventionID uint, ins []SignataireInput) []models.SignataireConvention {
	var sigs []models.SignataireConvention
	for _, s := range ins {
		if !s.Coche {
			continue
		}
		sigs = append(sigs, models.SignataireConvention{
			ConventionID: conventionID,
			Version:      1,
			PersonneID:   s.PersonneID,
		})
	}
	return sigs
}

// prochainConventionID draws the next convention id from the sequence row.
// The UPDATE takes a row lock, so concurrent creations serialize here
// instead of racing a max(id) read.
func prochainConventionID(tx *gorm.DB) (uint, error) {
	seq := models.SequenceConvention{ID: 1}
	if err := tx.FirstOrCreate(&seq, models.SequenceConvention{ID: 1}).Error; err != nil {
		return 0, err
	}
	if err := tx.Model(&models.SequenceConvention{}).
		Where("id = ?", seq.ID).
		UpdateColumn("prochain", gorm.Expr("prochain + 1")).Error; err != nil {
		return 0, err
	}
	if err := tx.First(&seq, seq.ID).Error; err != nil {
		return 0, err
	}
	return seq.Prochain, nil
}
