package convention

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/gestion-pepiniere/internal/db"
	"github.com/diewo77/gestion-pepiniere/internal/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	nom := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", nom)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open db")
	require.NoError(t, conn.AutoMigrate(db.Migratables()...), "migrate")
	return conn
}

type fixtures struct {
	Societe    models.Societe
	Acteur     models.User
	Batiment   models.Batiment
	UG20       models.UG // catalog surface 20 m²
	UG30       models.UG // catalog surface 30 m²
	Equipement models.Equipement
	Tiers      models.Tiers
	Personne   models.Personne
	Personne2  models.Personne
}

func date(annee int, mois time.Month, jour int) time.Time {
	return time.Date(annee, mois, jour, 0, 0, 0, 0, time.UTC)
}

// seedFixtures installs the catalogs and the rate table used by every
// engine test: surfaces 20 and 30 m², pépinière grid open-ended since 2020.
func seedFixtures(t *testing.T, conn *gorm.DB) fixtures {
	t.Helper()
	f := fixtures{}
	f.Societe = models.Societe{RaisonSociale: "Pépinière du Vallon"}
	require.NoError(t, conn.Create(&f.Societe).Error)
	f.Acteur = models.User{Email: "gestionnaire@vallon.fr", Password: "x", SocieteID: f.Societe.ID}
	require.NoError(t, conn.Create(&f.Acteur).Error)
	f.Batiment = models.Batiment{SocieteID: f.Societe.ID, Intitule: "Bâtiment A", Ville: "Lyon"}
	require.NoError(t, conn.Create(&f.Batiment).Error)
	f.UG20 = models.UG{BatimentID: f.Batiment.ID, Intitule: "Bureau 101", Surface: 20}
	require.NoError(t, conn.Create(&f.UG20).Error)
	f.UG30 = models.UG{BatimentID: f.Batiment.ID, Intitule: "Atelier 102", Surface: 30}
	require.NoError(t, conn.Create(&f.UG30).Error)
	f.Equipement = models.Equipement{BatimentID: f.Batiment.ID, Intitule: "Place de parking", Prix: 25}
	require.NoError(t, conn.Create(&f.Equipement).Error)
	forme := models.FormeJuridique{Code: "SARL", Intitule: "Société à responsabilité limitée"}
	require.NoError(t, conn.Create(&forme).Error)
	f.Tiers = models.Tiers{SocieteID: f.Societe.ID, RaisonSociale: "Startup Duval", FormeJuridiqueID: forme.ID}
	require.NoError(t, conn.Create(&f.Tiers).Error)
	f.Personne = models.Personne{TiersID: f.Tiers.ID, Nom: "Duval", Prenom: "Claire"}
	require.NoError(t, conn.Create(&f.Personne).Error)
	f.Personne2 = models.Personne{TiersID: f.Tiers.ID, Nom: "Moreau", Prenom: "Jean"}
	require.NoError(t, conn.Create(&f.Personne2).Error)

	grilles := []models.SurfacePrixUG{
		{Surface: 20, TypePrix: models.TypePrixPepiniere, DateDebut: date(2020, 1, 1),
			PrixAn1: 300, PrixAn2: 320, PrixAn3: 340, PrixCentreAffaires: 380, PrixCoworking: 150},
		{Surface: 30, TypePrix: models.TypePrixPepiniere, DateDebut: date(2020, 1, 1),
			PrixAn1: 450, PrixAn2: 470, PrixAn3: 490, PrixCentreAffaires: 520, PrixCoworking: 150},
	}
	for i := range grilles {
		require.NoError(t, conn.Create(&grilles[i]).Error)
	}
	return f
}

// creerPepiniere creates a standard test convention: UG20 rented at 10 m²
// (half the catalog surface) plus one equipment charge.
func creerPepiniere(t *testing.T, conn *gorm.DB, f fixtures, dateDebut time.Time) uint {
	t.Helper()
	createur := NewCreateur(conn)
	id, err := createur.CreerPepiniere(f.Societe.ID, f.Acteur.ID, CreationInput{
		BatimentID:       f.Batiment.ID,
		TiersID:          f.Tiers.ID,
		RaisonSociale:    f.Tiers.RaisonSociale,
		FormeJuridiqueID: f.Tiers.FormeJuridiqueID,
		DateDebut:        dateDebut,
		Signataires: []SignataireInput{
			{PersonneID: f.Personne.ID, Coche: true},
			{PersonneID: f.Personne2.ID, Coche: false},
		},
		UGs: []UGInput{
			{UGID: f.UG20.ID, DateDebut: dateDebut, SurfaceLouee: 10},
		},
		Equipements: []EquipementInput{
			{EquipementID: f.Equipement.ID, Prix: 25},
		},
	})
	require.NoError(t, err, "création pépinière")
	return id
}

func creerCoworking(t *testing.T, conn *gorm.DB, f fixtures, dateDebut time.Time) uint {
	t.Helper()
	createur := NewCreateur(conn)
	id, err := createur.CreerCoworking(f.Societe.ID, f.Acteur.ID, CreationInput{
		BatimentID:    f.Batiment.ID,
		TiersID:       f.Tiers.ID,
		RaisonSociale: f.Tiers.RaisonSociale,
		DateDebut:     dateDebut,
		Signataires:   []SignataireInput{{PersonneID: f.Personne.ID, Coche: true}},
	})
	require.NoError(t, err, "création coworking")
	return id
}
