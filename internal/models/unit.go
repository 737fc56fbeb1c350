package models

import "time"

// Unit status values. Only "bloqueado" is ever set by reconciliation;
// "en_ruta" and "mantenimiento" are operator-managed.
const (
	UnitDisponible    = "disponible"
	UnitEnRuta        = "en_ruta"
	UnitMantenimiento = "mantenimiento"
	UnitBloqueado     = "bloqueado"
)

// Unit types with a known tire layout. Used as keys into the
// expected-tire table.
const (
	TipoSencillo     = "sencillo"
	TipoFull         = "full"
	TipoRabon        = "rabon"
	TipoTractocamion = "tractocamion"
	TipoRemolque     = "remolque"
	TipoCamioneta    = "camioneta"
	TipoCamion       = "camion"
)

// Unit is a fleet vehicle. Status, RazonBloqueo, DocumentosVencidos and
// LlantasCriticas are derived: they are recomputed from the expiry dates
// and mounted tires on every read path and persisted only when they
// change.
type Unit struct {
	ID              uint   `gorm:"primaryKey"`
	PublicID        string `gorm:"size:36;uniqueIndex;not null"`
	NumeroEconomico string `gorm:"size:20;uniqueIndex;not null"`
	Placas          string `gorm:"size:15;uniqueIndex;not null"`
	VIN             string `gorm:"size:17"`
	Marca           string `gorm:"size:50;not null"`
	Modelo          string `gorm:"size:50;not null"`
	Year            int

	Tipo             string `gorm:"size:50"`
	Tipo1            string `gorm:"column:tipo_1;size:50"`
	TipoCarga        string `gorm:"size:50"`
	NumeroSerieMotor string `gorm:"size:64"`
	MarcaMotor       string `gorm:"size:50"`
	CapacidadCarga   float64

	Status             string `gorm:"size:16;not null;default:disponible;index"`
	RazonBloqueo       string `gorm:"size:255"`
	IgnoreBlocking     bool   `gorm:"not null;default:false"`
	DocumentosVencidos int    `gorm:"not null;default:0"`
	LlantasCriticas    int    `gorm:"not null;default:0"`

	// Compliance document expiries. A date strictly before today counts
	// as an expired document.
	SeguroVence                     *time.Time `gorm:"type:date"`
	VerificacionHumoVence           *time.Time `gorm:"type:date"`
	VerificacionFisicoMecanicaVence *time.Time `gorm:"type:date"`
	VerificacionVence               *time.Time `gorm:"type:date"`
	PermisoSCTVence                 *time.Time `gorm:"column:permiso_sct_vence;type:date"`
	CAATVence                       *time.Time `gorm:"column:caat_vence;type:date"`

	PermisoSCTFolio string `gorm:"column:permiso_sct_folio;size:50"`
	CAATFolio       string `gorm:"column:caat_folio;size:50"`

	Audit

	Tires []Tire `gorm:"foreignKey:UnitID"`
}

// ExpiryDates returns the compliance expiry dates in a fixed order.
func (u *Unit) ExpiryDates() []*time.Time {
	return []*time.Time{
		u.SeguroVence,
		u.VerificacionHumoVence,
		u.VerificacionFisicoMecanicaVence,
		u.VerificacionVence,
		u.PermisoSCTVence,
		u.CAATVence,
	}
}

// PrimaryTipo returns the unit type used for tire-count checks: tipo_1 when
// set, falling back to tipo.
func (u *Unit) PrimaryTipo() string {
	if u.Tipo1 != "" {
		return Normalize(u.Tipo1)
	}
	return Normalize(u.Tipo)
}
