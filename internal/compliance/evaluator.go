// Package compliance derives a unit's operational availability from its
// document expiries and mounted tires, and keeps the persisted derived
// columns in sync with those inputs.
package compliance

import (
	"fmt"
	"strings"
	"time"

	"github.com/rlezama/flotilla/internal/models"
)

// CriticalDepthMM is the tread depth below which a mounted tire blocks the
// unit regardless of its graded condition.
const CriticalDepthMM = 3.0

// DefaultExpectedTires maps a unit's primary type to the number of tires it
// runs with. A type missing from the table means the completeness check is
// skipped for that unit.
var DefaultExpectedTires = map[string]int{
	models.TipoTractocamion: 10,
	models.TipoRabon:        6,
	models.TipoCamioneta:    4,
	models.TipoRemolque:     8,
	models.TipoFull:         18,
}

// Verdict is the derived availability state for one unit: the 4-tuple that
// gets persisted, plus whether the blocking gate fired.
type Verdict struct {
	Status             string
	RazonBloqueo       string
	DocumentosVencidos int
	LlantasCriticas    int
	ShouldBlock        bool
}

// CriticalTire reports whether a mounted tire should block its unit:
// tread below CriticalDepthMM, or condition graded regular or mala.
func CriticalTire(t *models.Tire) bool {
	if t.ProfundidadActual < CriticalDepthMM {
		return true
	}
	switch models.Normalize(t.EstadoFisico) {
	case models.CondicionRegular, models.CondicionMala:
		return true
	}
	return false
}

// ExpectedFor looks up the expected tire count for a unit type. The
// override table wins over the built-in defaults; 0 means "not checked".
func ExpectedFor(overrides map[string]int, tipo string) int {
	if n, ok := overrides[tipo]; ok {
		return n
	}
	return DefaultExpectedTires[tipo]
}

// Evaluate computes the availability verdict for a unit given its mounted
// tires. It is pure: same inputs, same verdict. Blocking reasons are
// additive, since a unit can fail compliance for several reasons at once
// and the operator should see all of them.
//
// Only a current status of "bloqueado" is auto-reverted to "disponible"
// when no reason remains; en_ruta and mantenimiento are operator-managed
// and left untouched.
func Evaluate(unit *models.Unit, tires []models.Tire, overrides map[string]int, today time.Time) Verdict {
	var razones []string

	expiredDocs := 0
	for _, vence := range unit.ExpiryDates() {
		if vence != nil && dateBefore(*vence, today) {
			expiredDocs++
		}
	}
	if expiredDocs > 0 {
		razones = append(razones, fmt.Sprintf("%d documentos vencidos", expiredDocs))
	}

	criticas := 0
	for i := range tires {
		if CriticalTire(&tires[i]) {
			criticas++
		}
	}
	if criticas > 0 {
		razones = append(razones, fmt.Sprintf("%d llantas críticas", criticas))
	}

	if esperadas := ExpectedFor(overrides, unit.PrimaryTipo()); esperadas > 0 && len(tires) < esperadas {
		razones = append(razones, fmt.Sprintf("Faltan %d llantas", esperadas-len(tires)))
	}

	// The override flag suppresses the gate, not the visibility: counters
	// stay current so the operator still sees them.
	shouldBlock := len(razones) > 0 && !unit.IgnoreBlocking

	v := Verdict{
		DocumentosVencidos: expiredDocs,
		LlantasCriticas:    criticas,
		ShouldBlock:        shouldBlock,
	}

	current := models.Normalize(unit.Status)
	switch {
	case shouldBlock:
		v.Status = models.UnitBloqueado
		v.RazonBloqueo = strings.Join(razones, ", ")
	case current == models.UnitBloqueado:
		v.Status = models.UnitDisponible
	default:
		// Non-blocking verdict on a non-blocked unit: whatever reason
		// text is stored stays as written. Only the bloqueado to
		// disponible revert above clears it.
		v.Status = current
		v.RazonBloqueo = unit.RazonBloqueo
	}
	return v
}

// dateBefore compares two timestamps at date granularity.
func dateBefore(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}
