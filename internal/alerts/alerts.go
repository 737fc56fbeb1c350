// Package alerts delivers availability notifications to chat channels.
// Delivery is best-effort: a failed send is logged and never propagates
// into the reconciliation that triggered it.
package alerts

import (
	"fmt"
	"strings"

	"github.com/rlezama/flotilla/internal/compliance"
	"github.com/rlezama/flotilla/internal/models"
)

// FormatUnitBlocked renders the outbound message for a unit that just
// became blocked.
func FormatUnitBlocked(unit *models.Unit) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":rotating_light: Unidad %s bloqueada", unit.NumeroEconomico)
	if unit.RazonBloqueo != "" {
		fmt.Fprintf(&b, ": %s", unit.RazonBloqueo)
	}
	if unit.Placas != "" {
		fmt.Fprintf(&b, " (placas %s)", unit.Placas)
	}
	return b.String()
}

// Multi fans a notification out to every configured sender.
type Multi []compliance.Notifier

// UnitBlocked forwards to each sender in order.
func (m Multi) UnitBlocked(unit *models.Unit) {
	for _, n := range m {
		n.UnitBlocked(unit)
	}
}
