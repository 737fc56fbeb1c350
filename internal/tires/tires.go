// Package tires tracks a tire's placement and physical condition across
// its whole life. Every transition appends an immutable history row; live
// state and history always move together inside one transaction.
package tires

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rlezama/flotilla/internal/db"
	"github.com/rlezama/flotilla/internal/fault"
	"github.com/rlezama/flotilla/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Responsible-party labels recorded on history rows.
const (
	ResponsableAdmin         = "Admin"
	ResponsableOperaciones   = "Operaciones"
	ResponsableMantenimiento = "Mantenimiento"
	ResponsableSistema       = "Sistema"
)

func visible(tx *gorm.DB) *gorm.DB {
	return tx.Model(&models.Tire{}).Scopes(models.Visible)
}

// Get fetches a visible tire with its unit and full history, newest first.
func Get(gdb *gorm.DB, tireID uint) (*models.Tire, error) {
	var tire models.Tire
	err := gdb.Scopes(models.Visible).
		Preload("Unit").Preload("History").
		First(&tire, tireID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fault.NotFound("Llanta")
	}
	if err != nil {
		return nil, fmt.Errorf("tires: get %d: %w", tireID, err)
	}
	sortHistory(&tire)
	return &tire, nil
}

// GetByCode fetches a visible tire by its internal code.
func GetByCode(gdb *gorm.DB, codigo string) (*models.Tire, error) {
	var tire models.Tire
	err := gdb.Scopes(models.Visible).
		Preload("Unit").Preload("History").
		Where("codigo_interno = ?", codigo).
		First(&tire).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fault.NotFound("Llanta")
	}
	if err != nil {
		return nil, fmt.Errorf("tires: get by code %s: %w", codigo, err)
	}
	sortHistory(&tire)
	return &tire, nil
}

// List returns visible tires ordered by id.
func List(gdb *gorm.DB, offset, limit int) ([]models.Tire, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	var tires []models.Tire
	err := gdb.Scopes(models.Visible).
		Preload("Unit").Preload("History").
		Order("id asc").Offset(offset).Limit(limit).
		Find(&tires).Error
	if err != nil {
		return nil, fmt.Errorf("tires: list: %w", err)
	}
	for i := range tires {
		sortHistory(&tires[i])
	}
	return tires, nil
}

func sortHistory(tire *models.Tire) {
	sort.Slice(tire.History, func(i, j int) bool {
		return tire.History[i].Fecha.After(tire.History[j].Fecha)
	})
}

// PurchaseOpts holds parameters for registering a newly bought tire.
type PurchaseOpts struct {
	CodigoInterno       string
	Marca               string
	Modelo              string
	Medida              string
	DOT                 string
	ProfundidadOriginal float64
	ProfundidadActual   float64
	FechaCompra         *time.Time
	PrecioCompra        decimal.Decimal
	Proveedor           string
}

// Purchase creates a tire in the warehouse (estado nuevo, no placement)
// and its initial compra history row, in one transaction. The purchase
// price seeds the accumulated cost.
func Purchase(gdb *gorm.DB, opts PurchaseOpts) (*models.Tire, error) {
	if opts.CodigoInterno == "" {
		return nil, fault.Validationf("codigo_interno es requerido")
	}
	if opts.Marca == "" {
		return nil, fault.Validationf("marca es requerida")
	}

	tire := &models.Tire{
		CodigoInterno:       opts.CodigoInterno,
		Marca:               opts.Marca,
		Modelo:              opts.Modelo,
		Medida:              opts.Medida,
		DOT:                 opts.DOT,
		Estado:              models.TireNuevo,
		EstadoFisico:        models.CondicionBuena,
		ProfundidadOriginal: opts.ProfundidadOriginal,
		ProfundidadActual:   opts.ProfundidadActual,
		FechaCompra:         opts.FechaCompra,
		PrecioCompra:        opts.PrecioCompra,
		CostoAcumulado:      opts.PrecioCompra,
		Proveedor:           opts.Proveedor,
	}

	err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tire).Error; err != nil {
			if db.IsDuplicateEntry(err) {
				return fault.Validationf("el código de llanta %s ya existe", opts.CodigoInterno)
			}
			return fmt.Errorf("create tire: %w", err)
		}
		history := &models.TireHistory{
			TireID:      tire.ID,
			Fecha:       time.Now().UTC(),
			Tipo:        models.EventoCompra,
			Descripcion: fmt.Sprintf("Alta inicial - Compra a %s", opts.Proveedor),
			Costo:       opts.PrecioCompra,
			Responsable: ResponsableAdmin,
		}
		if err := tx.Create(history).Error; err != nil {
			return fmt.Errorf("create history: %w", err)
		}
		return nil
	})
	if err != nil {
		if fault.IsValidation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("tires: purchase %s: %w", opts.CodigoInterno, err)
	}
	return Get(gdb, tire.ID)
}

// Retire soft-deletes a tire. History rows stay untouched.
func Retire(gdb *gorm.DB, tireID uint) error {
	res := visible(gdb).Where("id = ?", tireID).
		Update("record_status", models.RecordDeleted)
	if res.Error != nil {
		return fmt.Errorf("tires: retire %d: %w", tireID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fault.NotFound("Llanta")
	}
	return nil
}
