package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Work order statuses.
const (
	OrdenAbierta    = "abierta"
	OrdenEnProgreso = "en_progreso"
	OrdenCerrada    = "cerrada"
	OrdenCancelada  = "cancelada"
)

// WorkOrder is a shop job against a unit. Folio is a human-facing
// sequential number, not a uniqueness guarantee across retries.
type WorkOrder struct {
	ID    uint   `gorm:"primaryKey"`
	Folio string `gorm:"size:20;uniqueIndex;not null"`

	UnitID     uint  `gorm:"not null;index"`
	MechanicID *uint `gorm:"index"`

	DescripcionProblema string `gorm:"type:text;not null"`
	Status              string `gorm:"size:16;not null;default:abierta;index"`

	FechaApertura time.Time `gorm:"not null"`
	FechaCierre   *time.Time

	Audit

	Unit     *Unit           `gorm:"foreignKey:UnitID"`
	Mechanic *Mechanic       `gorm:"foreignKey:MechanicID"`
	Parts    []WorkOrderPart `gorm:"foreignKey:WorkOrderID"`
}

// WorkOrderPart records one spare-part consumption. CostoUnitarioSnapshot
// freezes the inventory price at consumption time, so historical order cost
// does not move with later price changes.
type WorkOrderPart struct {
	ID              uint `gorm:"primaryKey"`
	WorkOrderID     uint `gorm:"index;not null"`
	InventoryItemID uint `gorm:"index;not null"`

	Cantidad              int             `gorm:"not null"`
	CostoUnitarioSnapshot decimal.Decimal `gorm:"type:decimal(12,2)"`

	Audit

	Item *InventoryItem `gorm:"foreignKey:InventoryItemID"`
}

// Mechanic is a shop worker assignable to work orders.
type Mechanic struct {
	ID           uint   `gorm:"primaryKey"`
	Nombre       string `gorm:"size:100;not null"`
	Apellido     string `gorm:"size:100"`
	Especialidad string `gorm:"size:100"`
	Telefono     string `gorm:"size:20"`
	Activo       bool   `gorm:"not null;default:true"`

	Audit
}
