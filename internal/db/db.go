package db

import (
	"errors"
	"fmt"
	"os"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// Blank imports register the postgres driver and file source for
	// golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/gestion-pepiniere/internal/config"
	"github.com/diewo77/gestion-pepiniere/internal/models"
)

// Migratables lists every persistent type, dependency order. Shared by
// AutoMigrate and the test helpers.
func Migratables() []interface{} {
	return []interface{}{
		&models.Societe{}, &models.User{}, &models.Batiment{}, &models.UG{},
		&models.Equipement{}, &models.FormeJuridique{}, &models.Tiers{}, &models.Personne{},
		&models.SurfacePrixUG{},
		&models.ConventionDesc{}, &models.SignataireConvention{}, &models.UGConvention{},
		&models.EquipementConvention{}, &models.RubriqueConvention{},
		&models.Notification{}, &models.DocumentConvention{}, &models.SequenceConvention{},
	}
}

func ConnectAndMigrate(rawDSN string) (*gorm.DB, error) {
	dsn := NormalizeDSN(rawDSN)
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN est vide, vérifiez la configuration de l'environnement")
	}
	var db *gorm.DB
	var err error
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}
	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
		if err == nil {
			break
		}
		log.WithError(err).Warn("Retrying DB connection...")
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}

	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}

	// MIGRATIONS=1 runs the sql migrations via golang-migrate (they carry
	// the composite unique indexes); otherwise AutoMigrate (dev convenience).
	if config.ParseBool("MIGRATIONS", false) {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range Migratables() {
			if migErr := db.AutoMigrate(m); migErr != nil {
				return nil, fmt.Errorf("automigrate %T: %w", m, migErr)
			}
		}
	}

	// sanity check: required core tables must exist
	for _, table := range []string{"societes", "users", "convention_descs", "surface_prix_ugs"} {
		if !db.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}
	if config.ParseBool("DB_SEED", false) {
		seed(db)
	}
	return db, nil
}

func seed(db *gorm.DB) {
	// Formes juridiques
	formes := []models.FormeJuridique{
		{Code: "EI", Intitule: "Entreprise individuelle"},
		{Code: "EURL", Intitule: "Entreprise unipersonnelle à responsabilité limitée"},
		{Code: "SARL", Intitule: "Société à responsabilité limitée"},
		{Code: "SAS", Intitule: "Société par actions simplifiée"},
		{Code: "SASU", Intitule: "Société par actions simplifiée unipersonnelle"},
	}
	for _, f := range formes {
		var existing models.FormeJuridique
		if err := db.Where("code = ?", f.Code).First(&existing).Error; err == gorm.ErrRecordNotFound {
			db.Create(&f)
		}
	}
}

// runSQLMigrations executes migrations in ./migrations using golang-migrate
// file source.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
