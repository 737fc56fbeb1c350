package compliance

import (
	"fmt"
	"time"

	"github.com/rlezama/flotilla/internal/models"
	"gorm.io/gorm"
)

// Notifier receives availability transitions worth surfacing to humans.
// Delivery is best-effort; implementations must not block reconciliation.
type Notifier interface {
	UnitBlocked(unit *models.Unit)
}

// Reconciler applies the evaluator to unit snapshots and persists the
// derived columns only when they change. It takes no locks: the evaluator
// is pure and deterministic, so concurrent reconciliations of the same
// unit are last-writer-wins on identical values.
type Reconciler struct {
	// Expected overrides the built-in expected-tire table per unit type.
	Expected map[string]int
	// Now supplies the clock; nil means time.Now. Tests pin it.
	Now func() time.Time
	// Notifier, when set, is told about units that newly become blocked.
	Notifier Notifier
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Reconcile recomputes one unit's derived fields and saves them if the
// (status, razon_bloqueo, documentos_vencidos, llantas_criticas) tuple
// changed. Returns whether a write happened. Calling it twice in a row
// with no intervening mutation is a no-op on the second call.
func (r *Reconciler) Reconcile(db *gorm.DB, unit *models.Unit) (bool, error) {
	before := derivedTuple(unit)
	wasBlocked := models.Normalize(unit.Status) == models.UnitBloqueado

	v := Evaluate(unit, unit.Tires, r.Expected, r.now())
	applyVerdict(unit, v)

	if derivedTuple(unit) == before {
		return false, nil
	}

	if err := db.Model(unit).Updates(derivedColumns(unit)).Error; err != nil {
		return false, fmt.Errorf("compliance: persist unit %s: %w", unit.NumeroEconomico, err)
	}

	if r.Notifier != nil && v.ShouldBlock && !wasBlocked {
		r.Notifier.UnitBlocked(unit)
	}
	return true, nil
}

// ReconcileAll recomputes every unit in the slice and persists the changed
// subset in one transaction. A failure persisting one unit is recorded and
// the batch moves on; the other units' writes still commit.
func (r *Reconciler) ReconcileAll(db *gorm.DB, units []models.Unit) (changed int, errs []error) {
	type pending struct {
		idx        int
		newlyBlock bool
	}
	var toWrite []pending

	now := r.now()
	for i := range units {
		unit := &units[i]
		before := derivedTuple(unit)
		wasBlocked := models.Normalize(unit.Status) == models.UnitBloqueado

		v := Evaluate(unit, unit.Tires, r.Expected, now)
		applyVerdict(unit, v)

		if derivedTuple(unit) != before {
			toWrite = append(toWrite, pending{idx: i, newlyBlock: v.ShouldBlock && !wasBlocked})
		}
	}
	if len(toWrite) == 0 {
		return 0, nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, p := range toWrite {
			unit := &units[p.idx]
			if err := tx.Model(unit).Updates(derivedColumns(unit)).Error; err != nil {
				errs = append(errs, fmt.Errorf("compliance: persist unit %s: %w", unit.NumeroEconomico, err))
				continue
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, append(errs, fmt.Errorf("compliance: batch commit: %w", err))
	}

	if r.Notifier != nil {
		for _, p := range toWrite {
			if p.newlyBlock {
				r.Notifier.UnitBlocked(&units[p.idx])
			}
		}
	}
	return changed, errs
}

func applyVerdict(unit *models.Unit, v Verdict) {
	unit.Status = v.Status
	unit.RazonBloqueo = v.RazonBloqueo
	unit.DocumentosVencidos = v.DocumentosVencidos
	unit.LlantasCriticas = v.LlantasCriticas
}

func derivedTuple(unit *models.Unit) [4]string {
	return [4]string{
		unit.Status,
		unit.RazonBloqueo,
		fmt.Sprintf("%d", unit.DocumentosVencidos),
		fmt.Sprintf("%d", unit.LlantasCriticas),
	}
}

// derivedColumns limits the write to the derived fields so reconciliation
// never clobbers concurrent edits to identity or classification columns.
func derivedColumns(unit *models.Unit) map[string]interface{} {
	return map[string]interface{}{
		"status":              unit.Status,
		"razon_bloqueo":       unit.RazonBloqueo,
		"documentos_vencidos": unit.DocumentosVencidos,
		"llantas_criticas":    unit.LlantasCriticas,
	}
}
