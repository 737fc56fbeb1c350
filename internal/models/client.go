package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Client is a billing customer. Its subclients (delivery points) and their
// tariffs form a parent/child graph: retiring a client must also retire
// the whole subtree so no visible child is orphaned.
type Client struct {
	ID          uint   `gorm:"primaryKey"`
	RazonSocial string `gorm:"size:200;not null"`
	RFC         string `gorm:"column:rfc;size:13;uniqueIndex;not null"`
	Contacto    string `gorm:"size:100"`
	Telefono    string `gorm:"size:20"`
	Email       string `gorm:"size:100"`
	DiasCredito int    `gorm:"not null;default:0"`

	Audit

	SubClients []SubClient `gorm:"foreignKey:ClientID"`
}

// SubClient is a client delivery point with its own route tariffs.
type SubClient struct {
	ID       uint   `gorm:"primaryKey"`
	ClientID uint   `gorm:"index;not null"`
	Nombre   string `gorm:"size:200;not null"`
	Alias    string `gorm:"size:100"`
	Ciudad   string `gorm:"size:100"`
	Estado   string `gorm:"size:100"`

	Audit

	Tariffs []Tariff `gorm:"foreignKey:SubClientID"`
}

// Tariff is a negotiated rate for one route to a subclient.
type Tariff struct {
	ID          uint            `gorm:"primaryKey"`
	SubClientID uint            `gorm:"index;not null"`
	NombreRuta  string          `gorm:"size:200;not null"`
	TipoUnidad  string          `gorm:"size:50;not null"`
	TarifaBase  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Vigencia    *time.Time      `gorm:"type:date"`

	Audit
}
