package convention

import (
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/diewo77/gestion-pepiniere/internal/models"
)

// RattrapageAnniversaires inserts, in ascending order and in one
// transaction, one version per missing anniversary amendment of the
// convention (a lease missed for three years gets three chained versions).
// Pépinière conventions get their unit REDEVANCE lines repriced per missing
// anniversary; coworking conventions only version desc and signatories.
// Returns the new version numbers.
func (m *Moteur) RattrapageAnniversaires(conventionID uint, version int, acteurID uint) ([]int, error) {
	var versions []int
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
		manquants := AnniversairesManquants(historique, snap.Desc.ConvAge)

		courant := snap
		for idx, k := range manquants {
			statut := Statut{Famille: FamilleAnniversaire, N: k}
			nouveau := cloneSnapshot(courant, courant.Desc.Version+1, acteurID, statut)

			switch courant.Desc.TypeConvention {
			case models.TypeConventionPepiniere:
				if err := m.repricerAnniversaire(tx, nouveau, idx); err != nil {
					return err
				}
			case models.TypeConventionCoworking:
				// Flat coworking pricing is tracked outside the convention:
				// only the head row and the signatories are versioned.
				nouveau.UGs = nil
				nouveau.Equipements = nil
				nouveau.Rubriques = nil
			default:
				return fmt.Errorf("%w: %s", ErrTypeConventionInconnu, courant.Desc.TypeConvention)
			}

			if err := insererSnapshot(tx, nouveau); err != nil {
				return err
			}
			versions = append(versions, nouveau.Desc.Version)
			courant = nouveau
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return versions, nil
}

// repricerAnniversaire replaces the unit REDEVANCE lines of an anniversary
// version: year-2 price for the first missing anniversary, year-3 for the
// second, centre d'affaires from the third on. Equipment CHARGE lines carry
// over unchanged.
func (m *Moteur) repricerAnniversaire(tx *gorm.DB, snap *Snapshot, idxManquant int) error {
	bareme := &Bareme{DB: tx}
	conservees := make([]models.RubriqueConvention, 0, len(snap.Rubriques))
	for _, rub := range snap.Rubriques {
		if rub.EquipementID != nil {
			conservees = append(conservees, rub)
		}
	}
	for _, ug := range snap.UGs {
		var catalogue models.UG
		if err := tx.First(&catalogue, ug.UGID).Error; err != nil {
			return fmt.Errorf("ug %d: %w", ug.UGID, err)
		}
		row, err := bareme.Lookup(catalogue.Surface, models.TypePrixPepiniere, snap.Desc.DateDebut)
		if err != nil {
			return err
		}
		// idx 0 -> an 2, idx 1 -> an 3, idx >= 2 -> centre d'affaires,
		// which is exactly the age rule shifted by one year.
		prix := ProRata(PrixSelonAge(row, idxManquant+1), ug.SurfaceLouee, catalogue.Surface)
		ugID := ug.UGID
		conservees = append(conservees, models.RubriqueConvention{
			ConventionID:      snap.Desc.ConventionID,
			Version:           snap.Desc.Version,
			UGID:              &ugID,
			Rubrique:          models.RubriqueRedevance,
			Periodicite:       PeriodiciteMensuelle,
			ConditionPaiement: ConditionTermeAEchoir,
			Montant:           prix,
		})
	}
	snap.Rubriques = conservees
	return nil
}

// Scanner is the daily anniversary job: it recomputes the age of every
// active convention and flags, via a notification, those whose cached age
// moved (their anniversary amendment is now due). It never creates versions
// itself; operators trigger the catch-up explicitly.
type Scanner struct {
	DB      *gorm.DB
	Horloge Horloge

	mu sync.Mutex
}

func NewScanner(db *gorm.DB) *Scanner {
	return &Scanner{DB: db, Horloge: AujourdHui}
}

// Run scans all active conventions once. Safe to call concurrently with
// itself (cron overlap, manual trigger): runs are serialized.
func (s *Scanner) Run() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	aujourdhui := s.Horloge()
	var descs []models.ConventionDesc
	err := s.DB.
		Where("version = (SELECT MAX(version) FROM convention_descs d2 WHERE d2.convention_id = convention_descs.convention_id)").
		Where("date_debut <= ?", aujourdhui).
		Where("(date_fin IS NULL OR date_fin >= ?)", aujourdhui).
		Find(&descs).Error
	if err != nil {
		return 0, err
	}

	signales := 0
	for i := range descs {
		desc := &descs[i]
		age := AgeEnAnnees(desc.DateDebut, aujourdhui)
		if age == desc.ConvAge {
			continue
		}
		// conv_age is a cached derived value, the one sanctioned in-place
		// update on a current version row.
		if err := s.DB.Model(&models.ConventionDesc{}).
			Where("id = ?", desc.ID).
			Update("conv_age", age).Error; err != nil {
			return signales, err
		}
		if err := upsertNotification(s.DB, desc.SocieteID, desc.ConventionID); err != nil {
			return signales, err
		}
		signales++
	}
	return signales, nil
}

// upsertNotification raises the attention flag for a convention,
// idempotently.
func upsertNotification(db *gorm.DB, societeID, conventionID uint) error {
	var n models.Notification
	return db.
		Where(models.Notification{SocieteID: societeID, ConventionID: conventionID}).
		FirstOrCreate(&n).Error
}
