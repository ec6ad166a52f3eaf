package convention

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/gestion-pepiniere/internal/models"
)

func TestBaremeLookupParPlageDeDates(t *testing.T) {
	conn := setupDB(t)
	fin2022 := date(2022, 12, 31)
	ancien := models.SurfacePrixUG{
		Surface: 20, TypePrix: models.TypePrixPepiniere,
		DateDebut: date(2020, 1, 1), DateFin: &fin2022,
		PrixAn1: 280, PrixAn2: 300, PrixAn3: 320, PrixCentreAffaires: 360,
	}
	recent := models.SurfacePrixUG{
		Surface: 20, TypePrix: models.TypePrixPepiniere,
		DateDebut: date(2023, 1, 1),
		PrixAn1: 300, PrixAn2: 320, PrixAn3: 340, PrixCentreAffaires: 380,
	}
	require.NoError(t, conn.Create(&ancien).Error)
	require.NoError(t, conn.Create(&recent).Error)

	bareme := NewBareme(conn)

	row, err := bareme.Lookup(20, models.TypePrixPepiniere, date(2022, 6, 1))
	require.NoError(t, err)
	assert.Equal(t, 280.0, row.PrixAn1)

	row, err = bareme.Lookup(20, models.TypePrixPepiniere, date(2024, 6, 1))
	require.NoError(t, err)
	assert.Equal(t, 300.0, row.PrixAn1)

	// Boundary dates are inclusive on both ends.
	row, err = bareme.Lookup(20, models.TypePrixPepiniere, fin2022)
	require.NoError(t, err)
	assert.Equal(t, 280.0, row.PrixAn1)
}

func TestBaremeLookupIntrouvable(t *testing.T) {
	conn := setupDB(t)
	seedFixtures(t, conn)
	bareme := NewBareme(conn)

	// Unknown surface.
	_, err := bareme.Lookup(42, models.TypePrixPepiniere, date(2024, 1, 1))
	assert.ErrorIs(t, err, ErrBaremeIntrouvable)

	// Date before any grid opens.
	_, err = bareme.Lookup(20, models.TypePrixPepiniere, date(2019, 1, 1))
	assert.ErrorIs(t, err, ErrBaremeIntrouvable)

	// Unknown price type.
	_, err = bareme.Lookup(20, "autre", date(2024, 1, 1))
	assert.ErrorIs(t, err, ErrBaremeIntrouvable)
}

func TestPrixSelonAge(t *testing.T) {
	row := &models.SurfacePrixUG{PrixAn1: 300, PrixAn2: 320, PrixAn3: 340, PrixCentreAffaires: 380}
	assert.Equal(t, 300.0, PrixSelonAge(row, 0))
	assert.Equal(t, 320.0, PrixSelonAge(row, 1))
	assert.Equal(t, 340.0, PrixSelonAge(row, 2))
	assert.Equal(t, 380.0, PrixSelonAge(row, 3))
	assert.Equal(t, 380.0, PrixSelonAge(row, 10))
	assert.Equal(t, 300.0, PrixSelonAge(row, -1))
}

func TestProRata(t *testing.T) {
	assert.Equal(t, 150.0, ProRata(300, 10, 20))
	assert.Equal(t, 300.0, ProRata(300, 20, 20))
	// Degenerate surfaces keep the catalog price rather than divide by zero.
	assert.Equal(t, 300.0, ProRata(300, 10, 0))
	assert.Equal(t, 300.0, ProRata(300, 0, 20))
}

func TestAgeEnAnnees(t *testing.T) {
	debut := date(2023, 1, 10)
	assert.Equal(t, 0, AgeEnAnnees(debut, date(2023, 12, 1)))
	assert.Equal(t, 1, AgeEnAnnees(debut, date(2024, 1, 10)))
	assert.Equal(t, 2, AgeEnAnnees(debut, date(2025, 1, 15)))
	// A start in the future never yields a negative age.
	assert.Equal(t, 0, AgeEnAnnees(date(2030, 1, 1), date(2025, 1, 1)))
}

func TestDateCivileParis(t *testing.T) {
	// 23:30 UTC is already the next day in Paris (UTC+1 in winter).
	instant := time.Date(2025, 1, 14, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, date(2025, 1, 15), DateCivile(instant))
}
