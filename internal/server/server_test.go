package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rlezama/flotilla/internal/compliance"
	"github.com/rlezama/flotilla/internal/db"
	"github.com/rlezama/flotilla/internal/fleet"
	"github.com/rlezama/flotilla/internal/inventory"
	"github.com/rlezama/flotilla/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := gdb.AutoMigrate(db.AllModels()...); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return NewRouter(gdb, &compliance.Reconciler{}), gdb
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUnitLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/units", fleet.CreateOpts{
		NumeroEconomico: "ECO-1",
		Placas:          "ABC-123",
		Marca:           "Kenworth",
		Tipo:            models.TipoTractocamion,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, want 201: %s", w.Code, w.Body)
	}
	var created models.Unit
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = doJSON(t, router, http.MethodGet, "/api/units/eco/ECO-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get by eco = %d, want 200: %s", w.Code, w.Body)
	}

	w = doJSON(t, router, http.MethodDelete, "/api/units/1", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("retire = %d, want 204: %s", w.Code, w.Body)
	}
	w = doJSON(t, router, http.MethodGet, "/api/units/1", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after retire = %d, want 404", w.Code)
	}
}

func TestFaultMapping(t *testing.T) {
	router, gdb := newTestRouter(t)

	// 400 on validation.
	w := doJSON(t, router, http.MethodPost, "/api/units", fleet.CreateOpts{Placas: "X"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("validation = %d, want 400", w.Code)
	}

	// 404 on missing entity.
	w = doJSON(t, router, http.MethodGet, "/api/units/999", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("not found = %d, want 404", w.Code)
	}

	// 409 on stock shortage.
	item, err := inventory.Create(gdb, inventory.CreateOpts{
		SKU: "FIL-001", Descripcion: "Filtro", StockActual: 1,
		PrecioUnitario: decimal.NewFromInt(350),
	})
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}
	w = doJSON(t, router, http.MethodPost, "/api/inventory/1/adjust", gin.H{"delta": -5})
	if w.Code != http.StatusConflict {
		t.Errorf("stock = %d, want 409: %s", w.Code, w.Body)
	}
	fresh, err := inventory.Get(gdb, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if fresh.StockActual != 1 {
		t.Errorf("StockActual = %d, a rejected adjust must not write", fresh.StockActual)
	}
}

func TestOrderEndpoints(t *testing.T) {
	router, gdb := newTestRouter(t)

	unit, err := fleet.Create(gdb, fleet.CreateOpts{
		NumeroEconomico: "ECO-1", Placas: "ABC-123", Marca: "Kenworth",
	})
	if err != nil {
		t.Fatalf("seed unit: %v", err)
	}
	item, err := inventory.Create(gdb, inventory.CreateOpts{
		SKU: "BAL-001", Descripcion: "Balatas", StockActual: 8,
		PrecioUnitario: decimal.NewFromInt(1200),
	})
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}

	w := doJSON(t, router, http.MethodPost, "/api/orders", gin.H{
		"UnitID":              unit.ID,
		"DescripcionProblema": "Cambio de balatas",
		"Parts":               []gin.H{{"InventoryItemID": item.ID, "Cantidad": 2}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create order = %d, want 201: %s", w.Code, w.Body)
	}
	var order models.WorkOrder
	if err := json.Unmarshal(w.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(order.Parts) != 1 {
		t.Fatalf("parts = %d, want 1", len(order.Parts))
	}

	w = doJSON(t, router, http.MethodPut, "/api/orders/1/status", gin.H{"status": models.OrdenCerrada})
	if w.Code != http.StatusOK {
		t.Fatalf("close = %d, want 200: %s", w.Code, w.Body)
	}

	// cancelada from cerrada is invalid.
	w = doJSON(t, router, http.MethodPut, "/api/orders/1/status", gin.H{"status": models.OrdenCancelada})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad transition = %d, want 400", w.Code)
	}
}

func TestTireAssignEndpoint(t *testing.T) {
	router, gdb := newTestRouter(t)

	unit, err := fleet.Create(gdb, fleet.CreateOpts{
		NumeroEconomico: "ECO-1", Placas: "ABC-123", Marca: "Kenworth",
	})
	if err != nil {
		t.Fatalf("seed unit: %v", err)
	}

	w := doJSON(t, router, http.MethodPost, "/api/tires", gin.H{
		"codigo_interno":       "LL-001",
		"marca":                "Michelin",
		"profundidad_original": 18,
		"profundidad_actual":   18,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("purchase = %d, want 201: %s", w.Code, w.Body)
	}

	w = doJSON(t, router, http.MethodPut, "/api/tires/1/assign", gin.H{
		"unit_id":  unit.ID,
		"posicion": "eje1-izq",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("assign = %d, want 200: %s", w.Code, w.Body)
	}
	var tire models.Tire
	if err := json.Unmarshal(w.Body.Bytes(), &tire); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tire.UnitID == nil || *tire.UnitID != unit.ID {
		t.Errorf("UnitID = %v, want %d", tire.UnitID, unit.ID)
	}
}
