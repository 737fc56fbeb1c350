package workshop

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rlezama/flotilla/internal/fault"
	"github.com/rlezama/flotilla/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	err = gdb.AutoMigrate(
		&models.Unit{},
		&models.Mechanic{},
		&models.InventoryItem{},
		&models.WorkOrder{},
		&models.WorkOrderPart{},
	)
	if err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return gdb
}

func createUnit(t *testing.T, gdb *gorm.DB, eco string) *models.Unit {
	t.Helper()
	unit := &models.Unit{
		PublicID:        "pub-" + eco,
		NumeroEconomico: eco,
		Placas:          "PL-" + eco,
		Marca:           "Kenworth",
		Tipo:            models.TipoTractocamion,
		Status:          models.UnitDisponible,
	}
	if err := gdb.Create(unit).Error; err != nil {
		t.Fatalf("create unit: %v", err)
	}
	return unit
}

func createItem(t *testing.T, gdb *gorm.DB, sku string, stock int, price int64) *models.InventoryItem {
	t.Helper()
	item := &models.InventoryItem{
		SKU:            sku,
		Descripcion:    "Refacción " + sku,
		Categoria:      models.CategoriaGeneral,
		StockActual:    stock,
		PrecioUnitario: decimal.NewFromInt(price),
	}
	if err := gdb.Create(item).Error; err != nil {
		t.Fatalf("create item: %v", err)
	}
	return item
}

func TestGenerateFolio(t *testing.T) {
	gdb := openTestDB(t)
	unit := createUnit(t, gdb, "ECO-1")

	year := time.Now().UTC().Year()
	folio, err := GenerateFolio(gdb, year)
	if err != nil {
		t.Fatalf("generate folio: %v", err)
	}
	if want := fmt.Sprintf("OT-%d-001", year); folio != want {
		t.Errorf("folio = %q, want %q", folio, want)
	}

	if _, err := CreateOrder(gdb, CreateOpts{UnitID: unit.ID, DescripcionProblema: "Fuga de aceite"}); err != nil {
		t.Fatalf("create order: %v", err)
	}
	folio, err = GenerateFolio(gdb, year)
	if err != nil {
		t.Fatalf("generate folio: %v", err)
	}
	if want := fmt.Sprintf("OT-%d-002", year); folio != want {
		t.Errorf("folio after one order = %q, want %q", folio, want)
	}
}

func TestCreateOrder_ConsumesParts(t *testing.T) {
	gdb := openTestDB(t)
	unit := createUnit(t, gdb, "ECO-1")
	item := createItem(t, gdb, "FIL-001", 10, 350)

	order, err := CreateOrder(gdb, CreateOpts{
		UnitID:              unit.ID,
		DescripcionProblema: "Servicio preventivo",
		Parts:               []PartRequest{{InventoryItemID: item.ID, Cantidad: 4}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if order.Status != models.OrdenAbierta {
		t.Errorf("Status = %q, want abierta", order.Status)
	}
	if len(order.Parts) != 1 {
		t.Fatalf("parts = %d, want 1", len(order.Parts))
	}
	part := order.Parts[0]
	if part.Cantidad != 4 || !part.CostoUnitarioSnapshot.Equal(decimal.NewFromInt(350)) {
		t.Errorf("part = (%d, %s), want (4, 350)", part.Cantidad, part.CostoUnitarioSnapshot)
	}

	var fresh models.InventoryItem
	if err := gdb.First(&fresh, item.ID).Error; err != nil {
		t.Fatalf("reload item: %v", err)
	}
	if fresh.StockActual != 6 {
		t.Errorf("StockActual = %d, want 6", fresh.StockActual)
	}

	if want := decimal.NewFromInt(1400); !TotalCost(order).Equal(want) {
		t.Errorf("TotalCost = %s, want %s", TotalCost(order), want)
	}
}

func TestCreateOrder_InsufficientStockRollsBack(t *testing.T) {
	gdb := openTestDB(t)
	unit := createUnit(t, gdb, "ECO-1")
	item := createItem(t, gdb, "BAL-001", 5, 1200)

	_, err := CreateOrder(gdb, CreateOpts{
		UnitID:              unit.ID,
		DescripcionProblema: "Cambio de balatas",
		Parts:               []PartRequest{{InventoryItemID: item.ID, Cantidad: 6}},
	})
	if !fault.IsInsufficientStock(err) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}

	var stockErr *fault.InsufficientStockError
	if errors.As(err, &stockErr) {
		if stockErr.SKU != "BAL-001" || stockErr.Requested != 6 || stockErr.Available != 5 {
			t.Errorf("stockErr = %+v, want SKU BAL-001 requested 6 available 5", stockErr)
		}
	}

	var fresh models.InventoryItem
	if err := gdb.First(&fresh, item.ID).Error; err != nil {
		t.Fatalf("reload item: %v", err)
	}
	if fresh.StockActual != 5 {
		t.Errorf("StockActual = %d, stock must not move on failure", fresh.StockActual)
	}

	var orders, parts int64
	gdb.Model(&models.WorkOrder{}).Count(&orders)
	gdb.Model(&models.WorkOrderPart{}).Count(&parts)
	if orders != 0 || parts != 0 {
		t.Errorf("orders = %d, parts = %d, the whole order must roll back", orders, parts)
	}
}

func TestCreateOrder_PartialFailureRollsBackAll(t *testing.T) {
	gdb := openTestDB(t)
	unit := createUnit(t, gdb, "ECO-1")
	ok := createItem(t, gdb, "FIL-001", 10, 350)
	short := createItem(t, gdb, "BAL-001", 1, 1200)

	_, err := CreateOrder(gdb, CreateOpts{
		UnitID:              unit.ID,
		DescripcionProblema: "Servicio mayor",
		Parts: []PartRequest{
			{InventoryItemID: ok.ID, Cantidad: 2},
			{InventoryItemID: short.ID, Cantidad: 2},
		},
	})
	if !fault.IsInsufficientStock(err) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}

	var fresh models.InventoryItem
	if err := gdb.First(&fresh, ok.ID).Error; err != nil {
		t.Fatalf("reload item: %v", err)
	}
	if fresh.StockActual != 10 {
		t.Errorf("first item stock = %d, the earlier decrement must roll back", fresh.StockActual)
	}
}

func TestCreateOrder_UnknownItem(t *testing.T) {
	gdb := openTestDB(t)
	unit := createUnit(t, gdb, "ECO-1")

	_, err := CreateOrder(gdb, CreateOpts{
		UnitID:              unit.ID,
		DescripcionProblema: "Ajuste",
		Parts:               []PartRequest{{InventoryItemID: 999, Cantidad: 1}},
	})
	if !fault.IsNotFound(err) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestCreateOrder_ZeroQuantity(t *testing.T) {
	gdb := openTestDB(t)
	unit := createUnit(t, gdb, "ECO-1")
	item := createItem(t, gdb, "FIL-001", 10, 350)

	_, err := CreateOrder(gdb, CreateOpts{
		UnitID:              unit.ID,
		DescripcionProblema: "Ajuste",
		Parts:               []PartRequest{{InventoryItemID: item.ID, Cantidad: 0}},
	})
	if !fault.IsValidation(err) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestAddParts(t *testing.T) {
	gdb := openTestDB(t)
	unit := createUnit(t, gdb, "ECO-1")
	item := createItem(t, gdb, "FIL-001", 10, 350)

	order, err := CreateOrder(gdb, CreateOpts{UnitID: unit.ID, DescripcionProblema: "Servicio"})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	order, err = AddParts(gdb, order.ID, []PartRequest{{InventoryItemID: item.ID, Cantidad: 3}})
	if err != nil {
		t.Fatalf("add parts: %v", err)
	}
	if len(order.Parts) != 1 {
		t.Fatalf("parts = %d, want 1", len(order.Parts))
	}

	// A closed order rejects further consumption.
	if _, err := UpdateStatus(gdb, order.ID, models.OrdenCerrada); err != nil {
		t.Fatalf("close order: %v", err)
	}
	_, err = AddParts(gdb, order.ID, []PartRequest{{InventoryItemID: item.ID, Cantidad: 1}})
	if !fault.IsValidation(err) {
		t.Fatalf("err = %v, want ValidationError on closed order", err)
	}
}

func TestUpdateStatus_Lifecycle(t *testing.T) {
	gdb := openTestDB(t)
	unit := createUnit(t, gdb, "ECO-1")

	order, err := CreateOrder(gdb, CreateOpts{UnitID: unit.ID, DescripcionProblema: "Diagnóstico"})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	order, err = UpdateStatus(gdb, order.ID, models.OrdenEnProgreso)
	if err != nil {
		t.Fatalf("to en_progreso: %v", err)
	}
	if order.Status != models.OrdenEnProgreso || order.FechaCierre != nil {
		t.Errorf("got (%q, %v), want (en_progreso, nil close date)", order.Status, order.FechaCierre)
	}

	order, err = UpdateStatus(gdb, order.ID, models.OrdenCerrada)
	if err != nil {
		t.Fatalf("to cerrada: %v", err)
	}
	if order.FechaCierre == nil {
		t.Error("closing must stamp FechaCierre")
	}

	// Reopen clears the close date.
	order, err = UpdateStatus(gdb, order.ID, models.OrdenAbierta)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if order.Status != models.OrdenAbierta || order.FechaCierre != nil {
		t.Errorf("got (%q, %v), want (abierta, nil close date)", order.Status, order.FechaCierre)
	}
}

func TestUpdateStatus_InvalidTransitions(t *testing.T) {
	gdb := openTestDB(t)
	unit := createUnit(t, gdb, "ECO-1")

	order, err := CreateOrder(gdb, CreateOpts{UnitID: unit.ID, DescripcionProblema: "Diagnóstico"})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := UpdateStatus(gdb, order.ID, models.OrdenCancelada); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// cancelada is terminal.
	for _, to := range []string{models.OrdenAbierta, models.OrdenEnProgreso, models.OrdenCerrada} {
		if _, err := UpdateStatus(gdb, order.ID, to); !fault.IsValidation(err) {
			t.Errorf("cancelada -> %s: err = %v, want ValidationError", to, err)
		}
	}
}

func TestListOrders_Filters(t *testing.T) {
	gdb := openTestDB(t)
	a := createUnit(t, gdb, "ECO-1")
	b := createUnit(t, gdb, "ECO-2")

	o1, err := CreateOrder(gdb, CreateOpts{UnitID: a.ID, DescripcionProblema: "Frenos"})
	if err != nil {
		t.Fatalf("create o1: %v", err)
	}
	if _, err := CreateOrder(gdb, CreateOpts{UnitID: b.ID, DescripcionProblema: "Motor"}); err != nil {
		t.Fatalf("create o2: %v", err)
	}
	if _, err := UpdateStatus(gdb, o1.ID, models.OrdenCerrada); err != nil {
		t.Fatalf("close o1: %v", err)
	}

	closed, err := ListOrders(gdb, ListFilters{Status: models.OrdenCerrada})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(closed) != 1 || closed[0].ID != o1.ID {
		t.Errorf("closed = %d orders, want just o1", len(closed))
	}

	byUnit, err := ListOrders(gdb, ListFilters{UnitID: b.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(byUnit) != 1 || byUnit[0].UnitID != b.ID {
		t.Errorf("byUnit = %d orders, want just ECO-2's", len(byUnit))
	}
}

func TestSnapshotFrozenAgainstPriceChange(t *testing.T) {
	gdb := openTestDB(t)
	unit := createUnit(t, gdb, "ECO-1")
	item := createItem(t, gdb, "FIL-001", 10, 350)

	order, err := CreateOrder(gdb, CreateOpts{
		UnitID:              unit.ID,
		DescripcionProblema: "Servicio",
		Parts:               []PartRequest{{InventoryItemID: item.ID, Cantidad: 2}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := gdb.Model(&models.InventoryItem{}).Where("id = ?", item.ID).
		Update("precio_unitario", decimal.NewFromInt(999)).Error; err != nil {
		t.Fatalf("reprice: %v", err)
	}

	fresh, err := GetOrder(gdb, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if !fresh.Parts[0].CostoUnitarioSnapshot.Equal(decimal.NewFromInt(350)) {
		t.Errorf("snapshot = %s, historical cost must not move with the price", fresh.Parts[0].CostoUnitarioSnapshot)
	}
	if want := decimal.NewFromInt(700); !TotalCost(fresh).Equal(want) {
		t.Errorf("TotalCost = %s, want %s", TotalCost(fresh), want)
	}
}
