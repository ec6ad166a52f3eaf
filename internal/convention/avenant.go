package convention

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/gestion-pepiniere/internal/models"
)

// Delta is an amendment intent: the family it belongs to plus the mutation
// it applies to the cloned snapshot. Deltas are pure values; appliquerDelta
// consumes them without touching the database.
type Delta interface {
	famille() FamilleStatut
}

// DeltaStatutJuridique changes the tenant's legal form. The tiers master
// record is mirror-updated in the same transaction.
type DeltaStatutJuridique struct {
	FormeJuridiqueID uint
}

func (DeltaStatutJuridique) famille() FamilleStatut { return FamilleStatutJuridique }

// DeltaEntite renames the tenant entity. The tiers master record is
// mirror-updated in the same transaction.
type DeltaEntite struct {
	RaisonSociale string
}

func (DeltaEntite) famille() FamilleStatut { return FamilleEntite }

// DeltaResiliation terminates the convention at DateFin (nil reopens the
// end date). Unit end dates are clamped to the new end, never extended.
type DeltaResiliation struct {
	DateFin *time.Time
}

func (DeltaResiliation) famille() FamilleStatut { return FamilleResiliation }

// DeltaLocal replaces the occupied-unit set. Unit-linked REDEVANCE lines are
// recomputed by the engine before the pure apply (rubriques below);
// equipment CHARGE lines carry over unchanged.
type DeltaLocal struct {
	UGs []models.UGConvention

	// redevances is filled by the engine from the rate table.
	redevances []models.RubriqueConvention
}

func (DeltaLocal) famille() FamilleStatut { return FamilleLocal }

// Moteur applies amendments: clone version N, mutate, persist version N+1
// atomically. One transaction per call; any failure rolls the whole version
// back so no partial row set is ever visible.
type Moteur struct {
	DB     *gorm.DB
	Bareme *Bareme
}

func NewMoteur(db *gorm.DB) *Moteur {
	return &Moteur{DB: db, Bareme: NewBareme(db)}
}

// Avenant applies one amendment to the given convention version and returns
// the new version number.
func (m *Moteur) Avenant(conventionID uint, version int, acteurID uint, delta Delta) (int, error) {
	nouvelleVersion := 0
	err := m.DB.Transaction(func(tx *gorm.DB) error {
		lecteur := NewLecteur(tx)
		derniere, err := lecteur.DerniereVersion(conventionID)
		if err != nil {
			return err
		}
		if version != derniere {
			return ErrVersionObsolete
		}
		snap, err := lecteur.Snapshot(conventionID, version)
		if err != nil {
			return err
		}
		historique, err := lecteur.Historique(conventionID)
		if err != nil {
			return err
		}
		statut := ProchainStatut(historique, delta.famille())

		// Unit-set amendments reprice every new unit before the pure apply.
		if local, ok := delta.(DeltaLocal); ok {
			local.redevances, err = m.redevancesPourUGs(tx, &snap.Desc, local.UGs)
			if err != nil {
				return err
			}
			delta = local
		}

		nouveau, err := appliquerDelta(snap, statut, acteurID, delta)
		if err != nil {
			return err
		}
		if err := insererSnapshot(tx, nouveau); err != nil {
			return err
		}
		if err := refleterSurTiers(tx, snap.Desc.TiersID, delta); err != nil {
			return err
		}
		nouvelleVersion = nouveau.Desc.Version
		return nil
	})
	if err != nil {
		return 0, err
	}
	return nouvelleVersion, nil
}

// appliquerDelta builds version N+1's row set from version N's snapshot:
// clone everything, bump the version, stamp the actor and status, then apply
// the amendment-specific mutation. Pure, no database access.
func appliquerDelta(snap *Snapshot, statut Statut, acteurID uint, delta Delta) (*Snapshot, error) {
	nouveau := cloneSnapshot(snap, snap.Desc.Version+1, acteurID, statut)

	switch d := delta.(type) {
	case DeltaStatutJuridique:
		nouveau.Desc.FormeJuridiqueID = d.FormeJuridiqueID

	case DeltaEntite:
		nouveau.Desc.RaisonSociale = d.RaisonSociale

	case DeltaResiliation:
		nouveau.Desc.DateFin = d.DateFin
		if d.DateFin != nil {
			for i := range nouveau.UGs {
				ug := &nouveau.UGs[i]
				if ug.DateFin == nil || ug.DateFin.After(*d.DateFin) {
					fin := *d.DateFin
					ug.DateFin = &fin
				}
			}
		}

	case DeltaLocal:
		nouveau.UGs = make([]models.UGConvention, 0, len(d.UGs))
		for _, ug := range d.UGs {
			ug.ID = 0
			ug.ConventionID = nouveau.Desc.ConventionID
			ug.Version = nouveau.Desc.Version
			nouveau.UGs = append(nouveau.UGs, ug)
		}
		// Equipment CHARGE lines carry over; unit lines are replaced by the
		// repriced set.
		conservees := make([]models.RubriqueConvention, 0, len(nouveau.Rubriques))
		for _, rub := range nouveau.Rubriques {
			if rub.EquipementID != nil {
				conservees = append(conservees, rub)
			}
		}
		nouveau.Rubriques = append(conservees, d.redevances...)
		for i := range nouveau.Rubriques {
			nouveau.Rubriques[i].ID = 0
			nouveau.Rubriques[i].ConventionID = nouveau.Desc.ConventionID
			nouveau.Rubriques[i].Version = nouveau.Desc.Version
		}

	default:
		return nil, fmt.Errorf("delta non géré: %T", delta)
	}
	return nouveau, nil
}

// cloneSnapshot copies a version's full row set with fresh primary keys,
// the next version number, the acting user and the new status.
func cloneSnapshot(snap *Snapshot, version int, acteurID uint, statut Statut) *Snapshot {
	nouveau := &Snapshot{Desc: snap.Desc}
	nouveau.Desc.ID = 0
	nouveau.Desc.CreatedAt = time.Time{}
	nouveau.Desc.UpdatedAt = time.Time{}
	nouveau.Desc.Version = version
	nouveau.Desc.Statut = statut.Label()
	nouveau.Desc.UpdateUserID = acteurID

	nouveau.Signataires = make([]models.SignataireConvention, len(snap.Signataires))
	for i, sig := range snap.Signataires {
		sig.ID = 0
		sig.CreatedAt = time.Time{}
		sig.Version = version
		nouveau.Signataires[i] = sig
	}
	nouveau.UGs = make([]models.UGConvention, len(snap.UGs))
	for i, ug := range snap.UGs {
		ug.ID = 0
		ug.CreatedAt = time.Time{}
		ug.Version = version
		nouveau.UGs[i] = ug
	}
	nouveau.Equipements = make([]models.EquipementConvention, len(snap.Equipements))
	for i, eq := range snap.Equipements {
		eq.ID = 0
		eq.CreatedAt = time.Time{}
		eq.Version = version
		nouveau.Equipements[i] = eq
	}
	nouveau.Rubriques = make([]models.RubriqueConvention, len(snap.Rubriques))
	for i, rub := range snap.Rubriques {
		rub.ID = 0
		rub.CreatedAt = time.Time{}
		rub.Version = version
		nouveau.Rubriques[i] = rub
	}
	return nouveau
}

// insererSnapshot persists a version's full row set. Runs inside the
// caller's transaction; the composite unique indexes make a concurrent
// writer of the same version fail here rather than corrupt history.
func insererSnapshot(tx *gorm.DB, snap *Snapshot) error {
	if err := tx.Create(&snap.Desc).Error; err != nil {
		return err
	}
	if len(snap.Signataires) > 0 {
		if err := tx.Create(&snap.Signataires).Error; err != nil {
			return err
		}
	}
	if len(snap.UGs) > 0 {
		if err := tx.Create(&snap.UGs).Error; err != nil {
			return err
		}
	}
	if len(snap.Equipements) > 0 {
		if err := tx.Create(&snap.Equipements).Error; err != nil {
			return err
		}
	}
	if len(snap.Rubriques) > 0 {
		if err := tx.Create(&snap.Rubriques).Error; err != nil {
			return err
		}
	}
	return nil
}

// refleterSurTiers mirrors entity and legal-form amendments onto the tiers
// master record, inside the amendment transaction.
func refleterSurTiers(tx *gorm.DB, tiersID uint, delta Delta) error {
	switch d := delta.(type) {
	case DeltaStatutJuridique:
		return tx.Model(&models.Tiers{}).Where("id = ?", tiersID).
			Update("forme_juridique_id", d.FormeJuridiqueID).Error
	case DeltaEntite:
		return tx.Model(&models.Tiers{}).Where("id = ?", tiersID).
			Update("raison_sociale", d.RaisonSociale).Error
	}
	return nil
}

// redevancesPourUGs recomputes the REDEVANCE line of every unit in the new
// set: rate row looked up at the unit's catalog surface and the convention's
// original start date, yearly column picked by the convention's current age,
// then pro-rated when the rented surface is partial.
func (m *Moteur) redevancesPourUGs(tx *gorm.DB, desc *models.ConventionDesc, ugs []models.UGConvention) ([]models.RubriqueConvention, error) {
	bareme := &Bareme{DB: tx}
	redevances := make([]models.RubriqueConvention, 0, len(ugs))
	for _, ug := range ugs {
		var catalogue models.UG
		if err := tx.First(&catalogue, ug.UGID).Error; err != nil {
			return nil, fmt.Errorf("ug %d: %w", ug.UGID, err)
		}
		row, err := bareme.Lookup(catalogue.Surface, models.TypePrixPepiniere, desc.DateDebut)
		if err != nil {
			return nil, err
		}
		prix := ProRata(PrixSelonAge(row, desc.ConvAge), ug.SurfaceLouee, catalogue.Surface)
		ugID := ug.UGID
		redevances = append(redevances, models.RubriqueConvention{
			ConventionID:      desc.ConventionID,
			UGID:              &ugID,
			Rubrique:          models.RubriqueRedevance,
			Periodicite:       PeriodiciteMensuelle,
			ConditionPaiement: ConditionTermeAEchoir,
			Montant:           prix,
		})
	}
	return redevances, nil
}

// Billing defaults shared by creation and repricing.
const (
	PeriodiciteMensuelle  = "MENSUELLE"
	ConditionTermeAEchoir = "TERME À ÉCHOIR"
)
