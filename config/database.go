package config

import (
	"fmt"
	"time"

	"barbershop-backend/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func ConnectDB(dsn string, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	logger.Info("Database connected")
	return db, nil
}

// constraints the ORM cannot express; each statement is idempotent
var constraints = []string{
	`CREATE EXTENSION IF NOT EXISTS btree_gist`,
	`DO $$ BEGIN
		ALTER TABLE appointments ADD CONSTRAINT appointments_no_overlap
			EXCLUDE USING gist (
				profissional_id WITH =,
				tstzrange(data_hora_inicio, data_hora_fim, '[)') WITH &&
			) WHERE (status <> 'cancelado');
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`CREATE UNIQUE INDEX IF NOT EXISTS subscriptions_one_active_per_client
		ON subscriptions (cliente_id) WHERE status = 'ativa'`,
	`DO $$ BEGIN
		ALTER TABLE appointments ADD CONSTRAINT appointments_valid_range
			CHECK (data_hora_inicio < data_hora_fim);
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`DO $$ BEGIN
		ALTER TABLE blocked_slots ADD CONSTRAINT blocked_slots_valid_range
			CHECK (data_inicio < data_fim);
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`DO $$ BEGIN
		ALTER TABLE payments ADD CONSTRAINT payments_single_reference
			CHECK ((agendamento_id IS NULL) <> (assinatura_id IS NULL));
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
}

// Migrate creates the schema and the invariants enforced by Postgres itself.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Profile{},
		&models.Professional{},
		&models.BusinessHours{},
		&models.ProfessionalHours{},
		&models.Service{},
		&models.BlockedSlot{},
		&models.SubscriptionPlan{},
		&models.Subscription{},
		&models.Appointment{},
		&models.CommissionRate{},
		&models.Commission{},
		&models.Payment{},
		&models.ReminderLog{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range constraints {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply constraint: %w", err)
		}
	}
	return nil
}
