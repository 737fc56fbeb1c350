package tires

import (
	"errors"
	"fmt"
	"time"

	"github.com/rlezama/flotilla/internal/fault"
	"github.com/rlezama/flotilla/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RetreadDepthFactor is the fraction of the original tread a retreaded
// tire comes back with.
const RetreadDepthFactor = 0.95

// Event holds parameters for a maintenance event on a tire.
type Event struct {
	Tipo        string
	Costo       decimal.Decimal
	Descripcion string
}

// RegisterMaintenance records a maintenance event. The cost always
// accumulates into the tire's running total. "desecho" scraps the tire
// (condition forced to mala, dismounted); "renovado" retreads it (depth
// reset to RetreadDepthFactor of original, dismounted). Other kinds only
// log. State change and history row commit together.
func RegisterMaintenance(gdb *gorm.DB, tireID uint, ev Event) (*models.Tire, error) {
	tipo := models.Normalize(ev.Tipo)
	if !models.ValidEvento(tipo) {
		return nil, fault.Validationf("tipo de evento inválido: %s", ev.Tipo)
	}

	err := gdb.Transaction(func(tx *gorm.DB) error {
		var tire models.Tire
		err := tx.Scopes(models.Visible).First(&tire, tireID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fault.NotFound("Llanta")
		}
		if err != nil {
			return fmt.Errorf("load tire: %w", err)
		}

		tire.CostoAcumulado = tire.CostoAcumulado.Add(ev.Costo)

		switch tipo {
		case models.EventoDesecho:
			tire.Estado = models.TireDesecho
			tire.EstadoFisico = models.CondicionMala
			tire.UnitID = nil
			tire.Posicion = ""
		case models.EventoRenovado:
			tire.Estado = models.TireRenovado
			if tire.ProfundidadOriginal > 0 {
				tire.ProfundidadActual = tire.ProfundidadOriginal * RetreadDepthFactor
			}
			tire.UnitID = nil
			tire.Posicion = ""
		}

		if err := tx.Save(&tire).Error; err != nil {
			return fmt.Errorf("save tire: %w", err)
		}

		history := &models.TireHistory{
			TireID:      tire.ID,
			Fecha:       time.Now().UTC(),
			Tipo:        tipo,
			Descripcion: ev.Descripcion,
			Costo:       ev.Costo,
			Km:          tire.KmRecorridos,
			Responsable: ResponsableMantenimiento,
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
		return nil, fmt.Errorf("tires: maintenance %d: %w", tireID, err)
	}
	return Get(gdb, tireID)
}
