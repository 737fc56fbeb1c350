// Package inventory manages the spare-part catalog and its stock levels.
package inventory

import (
	"errors"
	"fmt"

	"github.com/rlezama/flotilla/internal/db"
	"github.com/rlezama/flotilla/internal/fault"
	"github.com/rlezama/flotilla/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Get returns one visible item by ID.
func Get(gdb *gorm.DB, itemID uint) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := gdb.Scopes(models.Visible).First(&item, itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fault.NotFound("Refacción")
	}
	if err != nil {
		return nil, fmt.Errorf("inventory: get %d: %w", itemID, err)
	}
	return &item, nil
}

// GetBySKU returns one visible item by its SKU.
func GetBySKU(gdb *gorm.DB, sku string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := gdb.Scopes(models.Visible).Where("sku = ?", sku).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fault.NotFound("Refacción")
	}
	if err != nil {
		return nil, fmt.Errorf("inventory: get by sku %s: %w", sku, err)
	}
	return &item, nil
}

// ListFilters narrows List. Search matches SKU and description.
type ListFilters struct {
	Search    string
	Categoria string
	LowStock  bool
}

// List returns visible items ordered by SKU.
func List(gdb *gorm.DB, filters ListFilters) ([]models.InventoryItem, error) {
	q := gdb.Scopes(models.Visible)
	if filters.Search != "" {
		like := "%" + filters.Search + "%"
		q = q.Where("sku LIKE ? OR descripcion LIKE ?", like, like)
	}
	if filters.Categoria != "" {
		q = q.Where("categoria = ?", filters.Categoria)
	}
	if filters.LowStock {
		q = q.Where("stock_actual <= stock_minimo")
	}
	var items []models.InventoryItem
	if err := q.Order("sku ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("inventory: list: %w", err)
	}
	return items, nil
}

// CreateOpts holds parameters for registering a new item.
type CreateOpts struct {
	SKU            string
	Descripcion    string
	Categoria      string
	StockActual    int
	StockMinimo    int
	Ubicacion      string
	PrecioUnitario decimal.Decimal
}

// Create registers a new item. SKU must be unique among all rows,
// including soft-deleted ones.
func Create(gdb *gorm.DB, opts CreateOpts) (*models.InventoryItem, error) {
	if opts.SKU == "" {
		return nil, fault.Validationf("sku es requerido")
	}
	if opts.Descripcion == "" {
		return nil, fault.Validationf("descripcion es requerida")
	}
	if opts.StockActual < 0 {
		return nil, fault.Validationf("stock_actual no puede ser negativo")
	}

	categoria := opts.Categoria
	if categoria == "" {
		categoria = models.CategoriaGeneral
	}
	stockMinimo := opts.StockMinimo
	if stockMinimo == 0 {
		stockMinimo = 5
	}

	item := &models.InventoryItem{
		SKU:            opts.SKU,
		Descripcion:    opts.Descripcion,
		Categoria:      categoria,
		StockActual:    opts.StockActual,
		StockMinimo:    stockMinimo,
		Ubicacion:      opts.Ubicacion,
		PrecioUnitario: opts.PrecioUnitario,
	}
	if err := gdb.Create(item).Error; err != nil {
		if db.IsDuplicateEntry(err) {
			return nil, fault.Validationf("el SKU %s ya existe", opts.SKU)
		}
		return nil, fmt.Errorf("inventory: create %s: %w", opts.SKU, err)
	}
	return item, nil
}

// UpdateOpts carries the editable item fields. Nil pointers mean "leave
// as is". Stock is excluded on purpose; it only moves through AdjustStock
// or work-order consumption.
type UpdateOpts struct {
	Descripcion    *string
	Categoria      *string
	StockMinimo    *int
	Ubicacion      *string
	PrecioUnitario *decimal.Decimal
}

// Update edits catalog fields on an item.
func Update(gdb *gorm.DB, itemID uint, opts UpdateOpts) (*models.InventoryItem, error) {
	item, err := Get(gdb, itemID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if opts.Descripcion != nil {
		updates["descripcion"] = *opts.Descripcion
	}
	if opts.Categoria != nil {
		updates["categoria"] = *opts.Categoria
	}
	if opts.StockMinimo != nil {
		if *opts.StockMinimo < 0 {
			return nil, fault.Validationf("stock_minimo no puede ser negativo")
		}
		updates["stock_minimo"] = *opts.StockMinimo
	}
	if opts.Ubicacion != nil {
		updates["ubicacion"] = *opts.Ubicacion
	}
	if opts.PrecioUnitario != nil {
		updates["precio_unitario"] = *opts.PrecioUnitario
	}
	if len(updates) == 0 {
		return item, nil
	}

	if err := gdb.Model(item).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("inventory: update %d: %w", itemID, err)
	}
	return Get(gdb, itemID)
}

// AdjustStock moves an item's stock by delta (positive restocks, negative
// consumes) under a row lock. The stock can never land below zero; a
// short adjustment fails without writing.
func AdjustStock(gdb *gorm.DB, itemID uint, delta int) (*models.InventoryItem, error) {
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var item models.InventoryItem
		err := tx.Scopes(models.Visible).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&item, itemID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fault.NotFound("Refacción")
		}
		if err != nil {
			return fmt.Errorf("lock item: %w", err)
		}

		next := item.StockActual + delta
		if next < 0 {
			return &fault.InsufficientStockError{
				SKU:       item.SKU,
				Requested: -delta,
				Available: item.StockActual,
			}
		}
		if err := tx.Model(&item).Update("stock_actual", next).Error; err != nil {
			return fmt.Errorf("save stock: %w", err)
		}
		return nil
	})
	if err != nil {
		if fault.IsNotFound(err) || fault.IsInsufficientStock(err) {
			return nil, err
		}
		return nil, fmt.Errorf("inventory: adjust stock %d: %w", itemID, err)
	}
	return Get(gdb, itemID)
}

// Retire soft-deletes an item. Historical work-order part rows keep
// pointing at it.
func Retire(gdb *gorm.DB, itemID uint) error {
	item, err := Get(gdb, itemID)
	if err != nil {
		return err
	}
	if err := gdb.Model(item).Update("record_status", models.RecordDeleted).Error; err != nil {
		return fmt.Errorf("inventory: retire %d: %w", itemID, err)
	}
	return nil
}
