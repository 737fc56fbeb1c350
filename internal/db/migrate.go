package db

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rlezama/flotilla/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Unit{},
		&models.Tire{},
		&models.TireHistory{},
		&models.WorkOrder{},
		&models.WorkOrderPart{},
		&models.InventoryItem{},
		&models.Mechanic{},
		&models.Client{},
		&models.SubClient{},
		&models.Tariff{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// Seed inserts a small working dataset for a fresh development database:
// one unit, a mechanic, and a handful of inventory items. It is a no-op if
// any unit already exists.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Unit{}).Count(&count).Error; err != nil {
		return fmt.Errorf("db: seed: count units: %w", err)
	}
	if count > 0 {
		return nil
	}

	unit := &models.Unit{
		PublicID:        uuid.NewString(),
		NumeroEconomico: "ECO-001",
		Placas:          "ABC-123-X",
		Marca:           "Kenworth",
		Modelo:          "T680",
		Year:            2021,
		Tipo:            models.TipoTractocamion,
		Status:          models.UnitDisponible,
	}
	if err := db.Create(unit).Error; err != nil {
		return fmt.Errorf("db: seed: create unit: %w", err)
	}

	mechanic := &models.Mechanic{Nombre: "Raúl", Apellido: "Mendoza", Especialidad: "Motor diésel"}
	if err := db.Create(mechanic).Error; err != nil {
		return fmt.Errorf("db: seed: create mechanic: %w", err)
	}

	items := []models.InventoryItem{
		{SKU: "FLT-ACE-01", Descripcion: "Filtro de aceite", Categoria: models.CategoriaMotor, StockActual: 24, PrecioUnitario: decimal.NewFromFloat(350)},
		{SKU: "BAL-FRE-22", Descripcion: "Balatas delanteras", Categoria: models.CategoriaFrenos, StockActual: 12, PrecioUnitario: decimal.NewFromFloat(1250)},
		{SKU: "FOC-LED-05", Descripcion: "Foco LED 24V", Categoria: models.CategoriaElectrico, StockActual: 40, PrecioUnitario: decimal.NewFromFloat(95.50)},
	}
	for i := range items {
		if err := db.Create(&items[i]).Error; err != nil {
			return fmt.Errorf("db: seed: create inventory item %s: %w", items[i].SKU, err)
		}
	}
	return nil
}
