package tires

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rlezama/flotilla/internal/fault"
	"github.com/rlezama/flotilla/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UpdateOpts carries the editable tire fields. Nil pointers mean "leave
// as is", so a partial payload only touches what it names.
type UpdateOpts struct {
	Marca               *string
	Modelo              *string
	Medida              *string
	DOT                 *string
	ProfundidadOriginal *float64
	ProfundidadActual   *float64
	KmRecorridos        *float64
	FechaCompra         *time.Time
	PrecioCompra        *decimal.Decimal
	Proveedor           *string
	Estado              *string
	EstadoFisico        *string
}

// Update applies an edit to a tire, but only if something actually
// changes: a payload that matches the current row exactly returns the
// tire untouched with no history entry, so no-op edits don't pollute the
// audit trail. A purchase-price change adjusts the accumulated cost by
// the delta instead of resetting it, preserving logged maintenance spend.
// The single history row lists the changed field names, not their values.
func Update(gdb *gorm.DB, tireID uint, opts UpdateOpts) (*models.Tire, error) {
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var tire models.Tire
		err := tx.Scopes(models.Visible).Preload("Unit").First(&tire, tireID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fault.NotFound("Llanta")
		}
		if err != nil {
			return fmt.Errorf("load tire: %w", err)
		}

		changed := applyChanges(&tire, opts)
		if len(changed) == 0 {
			return nil
		}

		if err := tx.Save(&tire).Error; err != nil {
			return fmt.Errorf("save tire: %w", err)
		}

		history := &models.TireHistory{
			TireID:      tire.ID,
			Fecha:       time.Now().UTC(),
			Tipo:        models.EventoInspeccion,
			Descripcion: "Datos editados: " + strings.Join(changed, ", "),
			UnidadID:    tire.UnitID,
			Posicion:    tire.Posicion,
			Km:          tire.KmRecorridos,
			Responsable: ResponsableAdmin,
		}
		if tire.Unit != nil {
			history.UnidadEconomico = tire.Unit.NumeroEconomico
		}
		if err := tx.Create(history).Error; err != nil {
			return fmt.Errorf("create history: %w", err)
		}
		return nil
	})
	if err != nil {
		if fault.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("tires: update %d: %w", tireID, err)
	}
	return Get(gdb, tireID)
}

// applyChanges mutates the tire in place and returns the names of the
// fields that really differed.
func applyChanges(tire *models.Tire, opts UpdateOpts) []string {
	var changed []string

	setStr := func(name string, dst *string, src *string) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = append(changed, name)
		}
	}
	setFloat := func(name string, dst *float64, src *float64) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = append(changed, name)
		}
	}

	setStr("marca", &tire.Marca, opts.Marca)
	setStr("modelo", &tire.Modelo, opts.Modelo)
	setStr("medida", &tire.Medida, opts.Medida)
	setStr("dot", &tire.DOT, opts.DOT)
	setFloat("profundidad_original", &tire.ProfundidadOriginal, opts.ProfundidadOriginal)
	setFloat("profundidad_actual", &tire.ProfundidadActual, opts.ProfundidadActual)
	setFloat("km_recorridos", &tire.KmRecorridos, opts.KmRecorridos)
	setStr("proveedor", &tire.Proveedor, opts.Proveedor)
	setStr("estado", &tire.Estado, opts.Estado)
	setStr("estado_fisico", &tire.EstadoFisico, opts.EstadoFisico)

	if opts.FechaCompra != nil {
		if tire.FechaCompra == nil || !tire.FechaCompra.Equal(*opts.FechaCompra) {
			f := *opts.FechaCompra
			tire.FechaCompra = &f
			changed = append(changed, "fecha_compra")
		}
	}

	if opts.PrecioCompra != nil && !tire.PrecioCompra.Equal(*opts.PrecioCompra) {
		delta := opts.PrecioCompra.Sub(tire.PrecioCompra)
		tire.PrecioCompra = *opts.PrecioCompra
		tire.CostoAcumulado = tire.CostoAcumulado.Add(delta)
		changed = append(changed, "precio_compra")
	}

	return changed
}
