package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tire lifecycle states. Renovado and desecho are terminal for mounting
// purposes: both dismount the tire.
const (
	TireNuevo    = "nuevo"
	TireUsado    = "usado"
	TireRenovado = "renovado"
	TireDesecho  = "desecho"
)

// Physical condition grades.
const (
	CondicionBuena   = "buena"
	CondicionRegular = "regular"
	CondicionMala    = "mala"
)

// Tire history event kinds.
const (
	EventoCompra     = "compra"
	EventoMontaje    = "montaje"
	EventoDesmontaje = "desmontaje"
	EventoReparacion = "reparacion"
	EventoRenovado   = "renovado"
	EventoRotacion   = "rotacion"
	EventoInspeccion = "inspeccion"
	EventoDesecho    = "desecho"
)

// ValidEvento reports whether kind names a known tire history event.
func ValidEvento(kind string) bool {
	switch Normalize(kind) {
	case EventoCompra, EventoMontaje, EventoDesmontaje, EventoReparacion,
		EventoRenovado, EventoRotacion, EventoInspeccion, EventoDesecho:
		return true
	}
	return false
}

// Tire is a physical tire tracked across its whole life. UnitID and
// Posicion are its current placement; both nil/empty means the tire is in
// the warehouse. A tire is mounted on at most one unit at one position,
// and a (unit, position) pair holds at most one tire.
type Tire struct {
	ID            uint   `gorm:"primaryKey"`
	CodigoInterno string `gorm:"size:50;uniqueIndex;not null"`
	Marca         string `gorm:"size:50;not null"`
	Modelo        string `gorm:"size:50"`
	Medida        string `gorm:"size:20"`
	DOT           string `gorm:"size:10"`

	UnitID   *uint  `gorm:"index"`
	Posicion string `gorm:"size:50"`

	Estado       string `gorm:"size:16;not null;default:nuevo"`
	EstadoFisico string `gorm:"size:16;not null;default:buena"`

	ProfundidadOriginal float64
	ProfundidadActual   float64
	KmRecorridos        float64

	FechaCompra    *time.Time      `gorm:"type:date"`
	PrecioCompra   decimal.Decimal `gorm:"type:decimal(12,2)"`
	CostoAcumulado decimal.Decimal `gorm:"type:decimal(12,2)"`
	Proveedor      string          `gorm:"size:100"`

	Audit

	Unit    *Unit         `gorm:"foreignKey:UnitID"`
	History []TireHistory `gorm:"foreignKey:TireID"`
}

// Mounted reports whether the tire is currently on a unit.
func (t *Tire) Mounted() bool {
	return t.UnitID != nil
}

// TireHistory is an append-only fact about a tire. UnidadEconomico and
// Posicion are snapshots taken at event time so the history stays readable
// after the unit is renamed or retired. Rows are never updated or deleted;
// they go away only if the tire row itself is purged.
type TireHistory struct {
	ID     uint      `gorm:"primaryKey"`
	TireID uint      `gorm:"index;not null"`
	Fecha  time.Time `gorm:"not null"`
	Tipo   string    `gorm:"size:16;not null"`

	Descripcion     string `gorm:"size:255"`
	UnidadID        *uint
	UnidadEconomico string `gorm:"size:50"`
	Posicion        string `gorm:"size:50"`

	Km          float64
	Costo       decimal.Decimal `gorm:"type:decimal(12,2)"`
	Responsable string          `gorm:"size:100"`

	Audit
}

func (TireHistory) TableName() string { return "tire_history" }
