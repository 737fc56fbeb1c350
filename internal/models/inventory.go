package models

import "github.com/shopspring/decimal"

// Inventory categories.
const (
	CategoriaMotor       = "Motor"
	CategoriaFrenos      = "Frenos"
	CategoriaElectrico   = "Eléctrico"
	CategoriaSuspension  = "Suspensión"
	CategoriaTransmision = "Transmisión"
	CategoriaGeneral     = "General"
)

// InventoryItem is a SKU-identified spare-part stock record. StockActual
// is only mutated under a row lock, during work-order consumption or a
// direct adjustment. It must never go negative.
type InventoryItem struct {
	ID          uint   `gorm:"primaryKey"`
	SKU         string `gorm:"column:sku;size:50;uniqueIndex;not null"`
	Descripcion string `gorm:"size:200;not null"`
	Categoria   string `gorm:"size:20;not null;default:General"`

	StockActual    int             `gorm:"not null;default:0"`
	StockMinimo    int             `gorm:"not null;default:5"`
	Ubicacion      string          `gorm:"size:100"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(12,2)"`

	Audit
}
