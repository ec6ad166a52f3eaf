package convention

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/gestion-pepiniere/internal/models"
)

func TestVerifierConventionConforme(t *testing.T) {
	conn := setupDB(t)
	f := seedFixtures(t, conn)
	id := creerPepiniere(t, conn, f, date(2024, 3, 1))

	require.NoError(t, conn.Create(&models.DocumentConvention{
		ConventionID: id, NomFichier: "INITIAL_convention_duval.pdf", CleStockage: "k1", UploadUserID: f.Acteur.ID,
	}).Error)

	resultat, err := NewVerificateur(conn).Verifier(id)
	require.NoError(t, err)
	assert.True(t, resultat.AgeOK)
	assert.Empty(t, resultat.DocumentsManquants)
	assert.True(t, resultat.Conforme())

	var notifs []models.Notification
	require.NoError(t, conn.Where("convention_id = ?", id).Find(&notifs).Error)
	assert.Empty(t, notifs)
}

func TestVerifierSignaleDocumentManquant(t *testing.T) {
	conn := setupDB(t)
	f := seedFixtures(t, conn)
	id := creerPepiniere(t, conn, f, date(2024, 3, 1))
	_, err := NewMoteur(conn).Avenant(id, 1, f.Acteur.ID, DeltaEntite{RaisonSociale: "Duval SAS"})
	require.NoError(t, err)

	// Only the initial document is on file.
	require.NoError(t, conn.Create(&models.DocumentConvention{
		ConventionID: id, NomFichier: "INITIAL.pdf", CleStockage: "k1", UploadUserID: f.Acteur.ID,
	}).Error)

	resultat, err := NewVerificateur(conn).Verifier(id)
	require.NoError(t, err)
	assert.True(t, resultat.AgeOK)
	require.Len(t, resultat.DocumentsManquants, 1)
	assert.Equal(t, "AVENANT ENTITE 1", resultat.DocumentsManquants[0].Statut)
	assert.False(t, resultat.Conforme())

	var notifs []models.Notification
	require.NoError(t, conn.Where("convention_id = ?", id).Find(&notifs).Error)
	assert.Len(t, notifs, 1)
}

func TestVerifierSignaleAnniversaireManquant(t *testing.T) {
	conn := setupDB(t)
	f := seedFixtures(t, conn)
	id := creerPepiniere(t, conn, f, date(2023, 1, 10))
	vieillir(t, conn, id, 1)

	require.NoError(t, conn.Create(&models.DocumentConvention{
		ConventionID: id, NomFichier: "INITIAL.pdf", CleStockage: "k1", UploadUserID: f.Acteur.ID,
	}).Error)

	resultat, err := NewVerificateur(conn).Verifier(id)
	require.NoError(t, err)
	assert.False(t, resultat.AgeOK)
	assert.False(t, resultat.Conforme())
}

func TestVerifierEffaceLaNotificationUneFoisRegularisee(t *testing.T) {
	conn := setupDB(t)
	f := seedFixtures(t, conn)
	id := creerPepiniere(t, conn, f, date(2023, 1, 10))
	vieillir(t, conn, id, 1)

	verificateur := NewVerificateur(conn)
	resultat, err := verificateur.Verifier(id)
	require.NoError(t, err)
	require.False(t, resultat.Conforme())

	// Operator catches up the anniversary and files both documents.
	_, err = NewMoteur(conn).RattrapageAnniversaires(id, 2, f.Acteur.ID)
	require.ErrorIs(t, err, ErrVersionObsolete, "stale version still rejected")
	_, err = NewMoteur(conn).RattrapageAnniversaires(id, 1, f.Acteur.ID)
	require.NoError(t, err)
	require.NoError(t, conn.Create(&models.DocumentConvention{
		ConventionID: id, NomFichier: "INITIAL.pdf", CleStockage: "k1", UploadUserID: f.Acteur.ID,
	}).Error)
	require.NoError(t, conn.Create(&models.DocumentConvention{
		ConventionID: id, NomFichier: "AVENANT_1A_duval.pdf", CleStockage: "k2", UploadUserID: f.Acteur.ID,
	}).Error)

	resultat, err = verificateur.Verifier(id)
	require.NoError(t, err)
	assert.True(t, resultat.Conforme())

	var notifs []models.Notification
	require.NoError(t, conn.Where("convention_id = ?", id).Find(&notifs).Error)
	assert.Empty(t, notifs)
}

func TestVerifierConventionInconnue(t *testing.T) {
	conn := setupDB(t)
	seedFixtures(t, conn)
	_, err := NewVerificateur(conn).Verifier(999)
	assert.ErrorIs(t, err, ErrConventionIntrouvable)
}
