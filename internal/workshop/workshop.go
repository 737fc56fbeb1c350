// Package workshop manages work orders against fleet units, including
// spare-part consumption from inventory under row locks.
package workshop

import (
	"errors"
	"fmt"
	"time"

	"github.com/rlezama/flotilla/internal/db"
	"github.com/rlezama/flotilla/internal/fault"
	"github.com/rlezama/flotilla/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ValidTransitions maps each work order status to its valid next statuses.
// A closed order may be reopened; a cancelled one is terminal.
var ValidTransitions = map[string][]string{
	models.OrdenAbierta:    {models.OrdenEnProgreso, models.OrdenCerrada, models.OrdenCancelada},
	models.OrdenEnProgreso: {models.OrdenCerrada, models.OrdenCancelada},
	models.OrdenCerrada:    {models.OrdenAbierta},
	models.OrdenCancelada:  {},
}

// GenerateFolio builds the next human-facing folio for the given year,
// OT-<year>-NNN. The number comes from a count, so it is advisory only;
// the unique index on folio is what actually rejects a collision.
func GenerateFolio(gdb *gorm.DB, year int) (string, error) {
	var count int64
	prefix := fmt.Sprintf("OT-%d-", year)
	err := gdb.Model(&models.WorkOrder{}).
		Where("folio LIKE ?", prefix+"%").
		Count(&count).Error
	if err != nil {
		return "", fmt.Errorf("workshop: count folios: %w", err)
	}
	return fmt.Sprintf("%s%03d", prefix, count+1), nil
}

// PartRequest asks for a quantity of one inventory item on an order.
type PartRequest struct {
	InventoryItemID uint
	Cantidad        int
}

// CreateOpts holds parameters for opening a work order.
type CreateOpts struct {
	UnitID              uint
	MechanicID          *uint
	DescripcionProblema string
	Parts               []PartRequest
}

// CreateOrder opens a work order and consumes its requested parts in one
// transaction. Each inventory row is fetched FOR UPDATE before the stock
// check, so concurrent orders against the same SKU serialize and stock
// can never go negative. Any failed part rolls back the whole order.
func CreateOrder(gdb *gorm.DB, opts CreateOpts) (*models.WorkOrder, error) {
	if opts.DescripcionProblema == "" {
		return nil, fault.Validationf("descripcion_problema es requerida")
	}

	var orderID uint
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var unit models.Unit
		err := tx.Scopes(models.Visible).First(&unit, opts.UnitID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fault.NotFound("Unidad")
		}
		if err != nil {
			return fmt.Errorf("load unit: %w", err)
		}

		now := time.Now().UTC()
		folio, err := GenerateFolio(tx, now.Year())
		if err != nil {
			return err
		}

		order := &models.WorkOrder{
			Folio:               folio,
			UnitID:              unit.ID,
			MechanicID:          opts.MechanicID,
			DescripcionProblema: opts.DescripcionProblema,
			Status:              models.OrdenAbierta,
			FechaApertura:       now,
		}
		if err := tx.Create(order).Error; err != nil {
			if db.IsDuplicateEntry(err) {
				return fault.Validationf("el folio %s ya existe, reintente", folio)
			}
			return fmt.Errorf("create order: %w", err)
		}

		for _, req := range opts.Parts {
			if err := consumePart(tx, order.ID, req); err != nil {
				return err
			}
		}

		orderID = order.ID
		return nil
	})
	if err != nil {
		if faultErr(err) {
			return nil, err
		}
		return nil, fmt.Errorf("workshop: create order for unit %d: %w", opts.UnitID, err)
	}
	return GetOrder(gdb, orderID)
}

// AddParts consumes additional parts on an order that is still being
// worked (abierta or en_progreso). Same locking discipline as CreateOrder.
func AddParts(gdb *gorm.DB, orderID uint, parts []PartRequest) (*models.WorkOrder, error) {
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var order models.WorkOrder
		err := tx.Scopes(models.Visible).First(&order, orderID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fault.NotFound("Orden de trabajo")
		}
		if err != nil {
			return fmt.Errorf("load order: %w", err)
		}
		if order.Status != models.OrdenAbierta && order.Status != models.OrdenEnProgreso {
			return fault.Validationf("la orden %s está %s, no admite refacciones", order.Folio, order.Status)
		}
		for _, req := range parts {
			if err := consumePart(tx, order.ID, req); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if faultErr(err) {
			return nil, err
		}
		return nil, fmt.Errorf("workshop: add parts to order %d: %w", orderID, err)
	}
	return GetOrder(gdb, orderID)
}

// consumePart locks one inventory row, checks stock, snapshots the unit
// price, decrements the stock, and appends the part row. Runs inside the
// caller's transaction.
func consumePart(tx *gorm.DB, orderID uint, req PartRequest) error {
	if req.Cantidad <= 0 {
		return fault.Validationf("cantidad debe ser mayor a cero")
	}

	var item models.InventoryItem
	err := tx.Scopes(models.Visible).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, req.InventoryItemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fault.NotFound("Refacción")
	}
	if err != nil {
		return fmt.Errorf("lock item %d: %w", req.InventoryItemID, err)
	}

	if item.StockActual < req.Cantidad {
		return &fault.InsufficientStockError{
			SKU:       item.SKU,
			Requested: req.Cantidad,
			Available: item.StockActual,
		}
	}

	item.StockActual -= req.Cantidad
	if err := tx.Save(&item).Error; err != nil {
		return fmt.Errorf("save item %s: %w", item.SKU, err)
	}

	part := &models.WorkOrderPart{
		WorkOrderID:           orderID,
		InventoryItemID:       item.ID,
		Cantidad:              req.Cantidad,
		CostoUnitarioSnapshot: item.PrecioUnitario,
	}
	if err := tx.Create(part).Error; err != nil {
		return fmt.Errorf("create part row: %w", err)
	}
	return nil
}

// UpdateStatus moves an order through its lifecycle. Closing stamps
// FechaCierre; reopening clears it.
func UpdateStatus(gdb *gorm.DB, orderID uint, newStatus string) (*models.WorkOrder, error) {
	newStatus = models.Normalize(newStatus)

	err := gdb.Transaction(func(tx *gorm.DB) error {
		var order models.WorkOrder
		err := tx.Scopes(models.Visible).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, orderID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fault.NotFound("Orden de trabajo")
		}
		if err != nil {
			return fmt.Errorf("load order: %w", err)
		}

		if !isValidTransition(order.Status, newStatus) {
			return fault.Validationf("transición inválida de %q a %q; válidas: %v",
				order.Status, newStatus, ValidTransitions[order.Status])
		}

		updates := map[string]interface{}{"status": newStatus}
		switch newStatus {
		case models.OrdenCerrada:
			updates["fecha_cierre"] = time.Now().UTC()
		case models.OrdenAbierta:
			updates["fecha_cierre"] = nil
		}
		if err := tx.Model(&order).Updates(updates).Error; err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		return nil
	})
	if err != nil {
		if faultErr(err) {
			return nil, err
		}
		return nil, fmt.Errorf("workshop: update order %d status: %w", orderID, err)
	}
	return GetOrder(gdb, orderID)
}

func isValidTransition(from, to string) bool {
	for _, s := range ValidTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// GetOrder loads one order with its unit, mechanic, and part rows.
func GetOrder(gdb *gorm.DB, orderID uint) (*models.WorkOrder, error) {
	var order models.WorkOrder
	err := gdb.Scopes(models.Visible).
		Preload("Unit").
		Preload("Mechanic").
		Preload("Parts", "record_status <> ?", models.RecordDeleted).
		Preload("Parts.Item").
		First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fault.NotFound("Orden de trabajo")
	}
	if err != nil {
		return nil, fmt.Errorf("workshop: get order %d: %w", orderID, err)
	}
	return &order, nil
}

// ListFilters narrows ListOrders.
type ListFilters struct {
	Status string
	UnitID uint
}

// ListOrders returns visible orders, newest first.
func ListOrders(gdb *gorm.DB, filters ListFilters) ([]models.WorkOrder, error) {
	q := gdb.Scopes(models.Visible).
		Preload("Unit").
		Preload("Mechanic").
		Preload("Parts", "record_status <> ?", models.RecordDeleted).
		Preload("Parts.Item")
	if filters.Status != "" {
		q = q.Where("status = ?", models.Normalize(filters.Status))
	}
	if filters.UnitID != 0 {
		q = q.Where("unit_id = ?", filters.UnitID)
	}
	var orders []models.WorkOrder
	if err := q.Order("fecha_apertura DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("workshop: list orders: %w", err)
	}
	return orders, nil
}

// TotalCost sums part quantity times the frozen unit price across an
// order's part rows.
func TotalCost(order *models.WorkOrder) decimal.Decimal {
	total := decimal.Zero
	for _, p := range order.Parts {
		total = total.Add(p.CostoUnitarioSnapshot.Mul(decimal.NewFromInt(int64(p.Cantidad))))
	}
	return total
}

// faultErr reports whether err is a domain fault that should pass through
// unwrapped to the caller.
func faultErr(err error) bool {
	return fault.IsValidation(err) || fault.IsNotFound(err) || fault.IsInsufficientStock(err)
}
