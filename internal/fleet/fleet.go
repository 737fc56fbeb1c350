// Package fleet manages units. Every read path routes through the
// compliance reconciler, so callers always see derived availability that
// matches the unit's current documents and tires.
package fleet

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/rlezama/flotilla/internal/compliance"
	"github.com/rlezama/flotilla/internal/db"
	"github.com/rlezama/flotilla/internal/fault"
	"github.com/rlezama/flotilla/internal/models"
	"gorm.io/gorm"
)

// Get returns one visible unit with its tires, reconciled.
func Get(gdb *gorm.DB, rec *compliance.Reconciler, unitID uint) (*models.Unit, error) {
	var unit models.Unit
	err := gdb.Scopes(models.Visible).
		Preload("Tires", "record_status <> ?", models.RecordDeleted).
		First(&unit, unitID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fault.NotFound("Unidad")
	}
	if err != nil {
		return nil, fmt.Errorf("fleet: get %d: %w", unitID, err)
	}
	if _, err := rec.Reconcile(gdb, &unit); err != nil {
		return nil, err
	}
	return &unit, nil
}

// GetByEco returns one visible unit by its economic number, reconciled.
func GetByEco(gdb *gorm.DB, rec *compliance.Reconciler, eco string) (*models.Unit, error) {
	var unit models.Unit
	err := gdb.Scopes(models.Visible).
		Preload("Tires", "record_status <> ?", models.RecordDeleted).
		Where("numero_economico = ?", eco).
		First(&unit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fault.NotFound("Unidad")
	}
	if err != nil {
		return nil, fmt.Errorf("fleet: get by eco %s: %w", eco, err)
	}
	if _, err := rec.Reconcile(gdb, &unit); err != nil {
		return nil, err
	}
	return &unit, nil
}

// ListFilters narrows List. Search matches economic number and plates.
type ListFilters struct {
	Status string
	Tipo   string
	Search string
}

// List returns visible units ordered by economic number, reconciled as
// one batch before return. Reconciliation failures on individual units
// do not drop them from the listing.
func List(gdb *gorm.DB, rec *compliance.Reconciler, filters ListFilters) ([]models.Unit, error) {
	q := gdb.Scopes(models.Visible).
		Preload("Tires", "record_status <> ?", models.RecordDeleted)
	if filters.Status != "" {
		q = q.Where("status = ?", models.Normalize(filters.Status))
	}
	if filters.Tipo != "" {
		q = q.Where("tipo = ? OR tipo_1 = ?", filters.Tipo, filters.Tipo)
	}
	if filters.Search != "" {
		like := "%" + filters.Search + "%"
		q = q.Where("numero_economico LIKE ? OR placas LIKE ?", like, like)
	}

	var units []models.Unit
	if err := q.Order("numero_economico ASC").Find(&units).Error; err != nil {
		return nil, fmt.Errorf("fleet: list: %w", err)
	}
	// Per-unit persist failures are logged, not propagated: the units
	// that did reconcile still ship, and the failed one ships with its
	// in-memory verdict applied.
	_, errs := rec.ReconcileAll(gdb, units)
	for _, e := range errs {
		log.Printf("fleet: reconcile listing: %v", e)
	}
	return units, nil
}

// CreateOpts holds parameters for registering a unit.
type CreateOpts struct {
	NumeroEconomico string
	Placas          string
	VIN             string
	Marca           string
	Modelo          string
	Year            int
	Tipo            string
	TipoCarga       string
}

// Create registers a new unit, available by default with a fresh public ID.
func Create(gdb *gorm.DB, opts CreateOpts) (*models.Unit, error) {
	if opts.NumeroEconomico == "" {
		return nil, fault.Validationf("numero_economico es requerido")
	}
	if opts.Placas == "" {
		return nil, fault.Validationf("placas son requeridas")
	}
	if opts.Marca == "" {
		return nil, fault.Validationf("marca es requerida")
	}

	unit := &models.Unit{
		PublicID:        uuid.NewString(),
		NumeroEconomico: opts.NumeroEconomico,
		Placas:          opts.Placas,
		VIN:             opts.VIN,
		Marca:           opts.Marca,
		Modelo:          opts.Modelo,
		Year:            opts.Year,
		Tipo:            models.Normalize(opts.Tipo),
		TipoCarga:       opts.TipoCarga,
		Status:          models.UnitDisponible,
	}
	if err := gdb.Create(unit).Error; err != nil {
		if db.IsDuplicateEntry(err) {
			return nil, fault.Validationf("la unidad %s ya existe", opts.NumeroEconomico)
		}
		return nil, fmt.Errorf("fleet: create %s: %w", opts.NumeroEconomico, err)
	}
	return unit, nil
}

// derivedOrAuditColumns are stripped from inbound updates. The derived
// four only move through reconciliation; the audit columns only through
// the Audit hooks.
var derivedOrAuditColumns = map[string]bool{
	"id":                  true,
	"public_id":           true,
	"status":              true,
	"razon_bloqueo":       true,
	"documentos_vencidos": true,
	"llantas_criticas":    true,
	"record_status":       true,
	"created_at":          true,
	"updated_at":          true,
	"created_by_id":       true,
	"updated_by_id":       true,
}

// Update applies a column map to a unit, strips derived and audit
// columns, then reconciles so new expiry dates take effect immediately.
// Setting record_status through here is ignored; retirement goes through
// Retire.
func Update(gdb *gorm.DB, rec *compliance.Reconciler, unitID uint, updates map[string]interface{}) (*models.Unit, error) {
	var unit models.Unit
	err := gdb.Scopes(models.Visible).First(&unit, unitID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fault.NotFound("Unidad")
	}
	if err != nil {
		return nil, fmt.Errorf("fleet: get %d for update: %w", unitID, err)
	}

	filtered := map[string]interface{}{}
	for col, val := range updates {
		if derivedOrAuditColumns[col] {
			continue
		}
		filtered[col] = val
	}
	if len(filtered) > 0 {
		if err := gdb.Model(&unit).Updates(filtered).Error; err != nil {
			return nil, fmt.Errorf("fleet: update %d: %w", unitID, err)
		}
	}
	return Get(gdb, rec, unitID)
}

// operatorStatuses are the statuses an operator may set directly.
// "bloqueado" is reserved for reconciliation.
var operatorStatuses = map[string]bool{
	models.UnitDisponible:    true,
	models.UnitEnRuta:        true,
	models.UnitMantenimiento: true,
}

// SetStatus moves a unit between the operator-managed statuses. The
// follow-up reconcile may immediately re-block the unit if its documents
// or tires still gate it.
func SetStatus(gdb *gorm.DB, rec *compliance.Reconciler, unitID uint, status string) (*models.Unit, error) {
	status = models.Normalize(status)
	if !operatorStatuses[status] {
		return nil, fault.Validationf("status inválido: %s", status)
	}

	var unit models.Unit
	err := gdb.Scopes(models.Visible).First(&unit, unitID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fault.NotFound("Unidad")
	}
	if err != nil {
		return nil, fmt.Errorf("fleet: get %d for status: %w", unitID, err)
	}
	if err := gdb.Model(&unit).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("fleet: set status %d: %w", unitID, err)
	}
	return Get(gdb, rec, unitID)
}

// Retire soft-deletes a unit. Its mounted tires stay mounted; history
// keeps pointing at the unit.
func Retire(gdb *gorm.DB, unitID uint) error {
	var unit models.Unit
	err := gdb.Scopes(models.Visible).First(&unit, unitID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fault.NotFound("Unidad")
	}
	if err != nil {
		return fmt.Errorf("fleet: get %d for retire: %w", unitID, err)
	}
	if err := gdb.Model(&unit).Update("record_status", models.RecordDeleted).Error; err != nil {
		return fmt.Errorf("fleet: retire %d: %w", unitID, err)
	}
	return nil
}
