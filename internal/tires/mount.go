package tires

import (
	"errors"
	"fmt"
	"time"

	"github.com/rlezama/flotilla/internal/fault"
	"github.com/rlezama/flotilla/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MountOpts holds parameters for mounting or dismounting a tire.
// UnitID nil means "send to warehouse".
type MountOpts struct {
	UnitID   *uint
	Posicion string
	Notas    string
}

// Mount moves a tire onto a unit position, or into the warehouse when no
// unit is given. If another tire already occupies (unit, posicion) it is
// displaced first: placement cleared plus a desmontaje history row naming
// the incoming tire. Occupant displacement, the tire's own placement,
// the first-use state change and both history rows commit or roll back
// as one transaction.
//
// The occupant lookup and the tire row itself are fetched FOR UPDATE so
// two concurrent mounts against the same slot serialize instead of leaving
// two tires mounted at one position.
func Mount(gdb *gorm.DB, tireID uint, opts MountOpts) (*models.Tire, error) {
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var tire models.Tire
		err := tx.Scopes(models.Visible).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&tire, tireID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fault.NotFound("Llanta")
		}
		if err != nil {
			return fmt.Errorf("lock tire: %w", err)
		}

		now := time.Now().UTC()

		if opts.UnitID == nil {
			return dismountToWarehouse(tx, &tire, opts.Notas, now)
		}

		var unit models.Unit
		err = tx.Scopes(models.Visible).First(&unit, *opts.UnitID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fault.Validationf("unidad no encontrada")
		}
		if err != nil {
			return fmt.Errorf("load unit: %w", err)
		}

		if opts.Posicion != "" {
			if err := displaceOccupant(tx, &tire, &unit, opts.Posicion, now); err != nil {
				return err
			}
		}

		tire.UnitID = opts.UnitID
		tire.Posicion = opts.Posicion
		// First mount wears a new tire into "usado".
		if models.Normalize(tire.Estado) == models.TireNuevo {
			tire.Estado = models.TireUsado
		}
		if err := tx.Save(&tire).Error; err != nil {
			return fmt.Errorf("save tire: %w", err)
		}

		desc := fmt.Sprintf("Montaje en %s", unit.NumeroEconomico)
		if opts.Posicion != "" {
			desc += " - " + opts.Posicion
		}
		if opts.Notas != "" {
			desc += ". Notas: " + opts.Notas
		}
		history := &models.TireHistory{
			TireID:          tire.ID,
			Fecha:           now,
			Tipo:            models.EventoMontaje,
			Descripcion:     desc,
			UnidadID:        opts.UnitID,
			UnidadEconomico: unit.NumeroEconomico,
			Posicion:        opts.Posicion,
			Km:              tire.KmRecorridos,
			Responsable:     ResponsableOperaciones,
		}
		if err := tx.Create(history).Error; err != nil {
			return fmt.Errorf("create history: %w", err)
		}
		return nil
	})
	if err != nil {
		if fault.IsValidation(err) || fault.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("tires: mount %d: %w", tireID, err)
	}
	return Get(gdb, tireID)
}

// dismountToWarehouse clears placement and appends a desmontaje row.
func dismountToWarehouse(tx *gorm.DB, tire *models.Tire, notas string, now time.Time) error {
	tire.UnitID = nil
	tire.Posicion = ""
	if err := tx.Save(tire).Error; err != nil {
		return fmt.Errorf("save tire: %w", err)
	}

	desc := "Desmontaje - Enviada a Almacén"
	if notas != "" {
		desc += ". Notas: " + notas
	}
	history := &models.TireHistory{
		TireID:      tire.ID,
		Fecha:       now,
		Tipo:        models.EventoDesmontaje,
		Descripcion: desc,
		Km:          tire.KmRecorridos,
		Responsable: ResponsableOperaciones,
	}
	if err := tx.Create(history).Error; err != nil {
		return fmt.Errorf("create history: %w", err)
	}
	return nil
}

// displaceOccupant dismounts whatever other tire holds (unit, posicion),
// recording the replacement on the occupant's own history.
func displaceOccupant(tx *gorm.DB, incoming *models.Tire, unit *models.Unit, posicion string, now time.Time) error {
	var occupant models.Tire
	err := tx.Scopes(models.Visible).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("unit_id = ? AND posicion = ? AND id <> ?", unit.ID, posicion, incoming.ID).
		First(&occupant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lock occupant: %w", err)
	}

	occupant.UnitID = nil
	occupant.Posicion = ""
	if err := tx.Save(&occupant).Error; err != nil {
		return fmt.Errorf("save occupant: %w", err)
	}

	history := &models.TireHistory{
		TireID:          occupant.ID,
		Fecha:           now,
		Tipo:            models.EventoDesmontaje,
		Descripcion:     fmt.Sprintf("Desmontaje por reemplazo (Entra %s)", incoming.CodigoInterno),
		UnidadID:        &unit.ID,
		UnidadEconomico: unit.NumeroEconomico,
		Km:              occupant.KmRecorridos,
		Responsable:     ResponsableSistema,
	}
	if err := tx.Create(history).Error; err != nil {
		return fmt.Errorf("create occupant history: %w", err)
	}
	return nil
}
