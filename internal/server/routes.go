package server

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rlezama/flotilla/internal/clients"
	"github.com/rlezama/flotilla/internal/compliance"
	"github.com/rlezama/flotilla/internal/fault"
	"github.com/rlezama/flotilla/internal/fleet"
	"github.com/rlezama/flotilla/internal/inventory"
	"github.com/rlezama/flotilla/internal/tires"
	"github.com/rlezama/flotilla/internal/workshop"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB, rec *compliance.Reconciler) {
	api := router.Group("/api")

	api.GET("/units", handleUnitList(db, rec))
	api.POST("/units", handleUnitCreate(db))
	api.GET("/units/:id", handleUnitGet(db, rec))
	api.GET("/units/eco/:eco", handleUnitGetByEco(db, rec))
	api.PATCH("/units/:id", handleUnitUpdate(db, rec))
	api.PUT("/units/:id/status", handleUnitStatus(db, rec))
	api.DELETE("/units/:id", handleUnitRetire(db))

	api.GET("/tires", handleTireList(db))
	api.POST("/tires", handleTirePurchase(db))
	api.GET("/tires/:id", handleTireGet(db))
	api.PATCH("/tires/:id", handleTireUpdate(db))
	api.PUT("/tires/:id/assign", handleTireAssign(db))
	api.POST("/tires/:id/maintenance", handleTireMaintenance(db))
	api.DELETE("/tires/:id", handleTireRetire(db))

	api.GET("/orders", handleOrderList(db))
	api.POST("/orders", handleOrderCreate(db))
	api.GET("/orders/:id", handleOrderGet(db))
	api.PUT("/orders/:id/status", handleOrderStatus(db))
	api.POST("/orders/:id/parts", handleOrderAddParts(db))

	api.GET("/inventory", handleItemList(db))
	api.POST("/inventory", handleItemCreate(db))
	api.GET("/inventory/:id", handleItemGet(db))
	api.PATCH("/inventory/:id", handleItemUpdate(db))
	api.POST("/inventory/:id/adjust", handleItemAdjust(db))
	api.DELETE("/inventory/:id", handleItemRetire(db))

	api.GET("/clients", handleClientList(db))
	api.POST("/clients", handleClientCreate(db))
	api.GET("/clients/:id", handleClientGet(db))
	api.DELETE("/clients/:id", handleClientRetire(db))
}

// fail maps a domain error onto an HTTP status. Unexpected errors log
// their detail and surface as a bare 500.
func fail(c *gin.Context, err error) {
	switch {
	case fault.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case fault.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case fault.IsInsufficientStock(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("server: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error interno"})
	}
}

// pathID parses the :id path parameter. A malformed ID reads as 0, which
// downstream lookups report as not found.
func pathID(c *gin.Context) uint {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)
	return uint(id)
}

func handleUnitList(db *gorm.DB, rec *compliance.Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		units, err := fleet.List(db, rec, fleet.ListFilters{
			Status: c.Query("status"),
			Tipo:   c.Query("tipo"),
			Search: c.Query("q"),
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, units)
	}
}

func handleUnitCreate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var opts fleet.CreateOpts
		if err := c.ShouldBindJSON(&opts); err != nil {
			fail(c, fault.Validationf("cuerpo inválido: %v", err))
			return
		}
		unit, err := fleet.Create(db, opts)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, unit)
	}
}

func handleUnitGet(db *gorm.DB, rec *compliance.Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		unit, err := fleet.Get(db, rec, pathID(c))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, unit)
	}
}

func handleUnitGetByEco(db *gorm.DB, rec *compliance.Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		unit, err := fleet.GetByEco(db, rec, c.Param("eco"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, unit)
	}
}

func handleUnitUpdate(db *gorm.DB, rec *compliance.Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var updates map[string]interface{}
		if err := c.ShouldBindJSON(&updates); err != nil {
			fail(c, fault.Validationf("cuerpo inválido: %v", err))
			return
		}
		unit, err := fleet.Update(db, rec, pathID(c), updates)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, unit)
	}
}

func handleUnitStatus(db *gorm.DB, rec *compliance.Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Status string `json:"status"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, fault.Validationf("cuerpo inválido: %v", err))
			return
		}
		unit, err := fleet.SetStatus(db, rec, pathID(c), body.Status)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, unit)
	}
}

func handleUnitRetire(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := fleet.Retire(db, pathID(c)); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleTireList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		offset, _ := strconv.Atoi(c.Query("offset"))
		limit, _ := strconv.Atoi(c.Query("limit"))
		list, err := tires.List(db, offset, limit)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// tirePurchaseBody mirrors tires.PurchaseOpts with JSON field names.
type tirePurchaseBody struct {
	CodigoInterno       string          `json:"codigo_interno"`
	Marca               string          `json:"marca"`
	Modelo              string          `json:"modelo"`
	Medida              string          `json:"medida"`
	DOT                 string          `json:"dot"`
	ProfundidadOriginal float64         `json:"profundidad_original"`
	ProfundidadActual   float64         `json:"profundidad_actual"`
	FechaCompra         *time.Time      `json:"fecha_compra"`
	PrecioCompra        decimal.Decimal `json:"precio_compra"`
	Proveedor           string          `json:"proveedor"`
}

func handleTirePurchase(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body tirePurchaseBody
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, fault.Validationf("cuerpo inválido: %v", err))
			return
		}
		tire, err := tires.Purchase(db, tires.PurchaseOpts{
			CodigoInterno:       body.CodigoInterno,
			Marca:               body.Marca,
			Modelo:              body.Modelo,
			Medida:              body.Medida,
			DOT:                 body.DOT,
			ProfundidadOriginal: body.ProfundidadOriginal,
			ProfundidadActual:   body.ProfundidadActual,
			FechaCompra:         body.FechaCompra,
			PrecioCompra:        body.PrecioCompra,
			Proveedor:           body.Proveedor,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, tire)
	}
}

func handleTireGet(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tire, err := tires.Get(db, pathID(c))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, tire)
	}
}

func handleTireUpdate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var opts tires.UpdateOpts
		if err := c.ShouldBindJSON(&opts); err != nil {
			fail(c, fault.Validationf("cuerpo inválido: %v", err))
			return
		}
		tire, err := tires.Update(db, pathID(c), opts)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, tire)
	}
}

func handleTireAssign(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			UnitID   *uint  `json:"unit_id"`
			Posicion string `json:"posicion"`
			Notas    string `json:"notas"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, fault.Validationf("cuerpo inválido: %v", err))
			return
		}
		tire, err := tires.Mount(db, pathID(c), tires.MountOpts{
			UnitID:   body.UnitID,
			Posicion: body.Posicion,
			Notas:    body.Notas,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, tire)
	}
}

func handleTireMaintenance(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Tipo        string          `json:"tipo"`
			Costo       decimal.Decimal `json:"costo"`
			Descripcion string          `json:"descripcion"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, fault.Validationf("cuerpo inválido: %v", err))
			return
		}
		tire, err := tires.RegisterMaintenance(db, pathID(c), tires.Event{
			Tipo:        body.Tipo,
			Costo:       body.Costo,
			Descripcion: body.Descripcion,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, tire)
	}
}

func handleTireRetire(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := tires.Retire(db, pathID(c)); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleOrderList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		unitID, _ := strconv.ParseUint(c.Query("unit_id"), 10, 32)
		orders, err := workshop.ListOrders(db, workshop.ListFilters{
			Status: c.Query("status"),
			UnitID: uint(unitID),
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

func handleOrderCreate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var opts workshop.CreateOpts
		if err := c.ShouldBindJSON(&opts); err != nil {
			fail(c, fault.Validationf("cuerpo inválido: %v", err))
			return
		}
		order, err := workshop.CreateOrder(db, opts)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}

func handleOrderGet(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := workshop.GetOrder(db, pathID(c))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func handleOrderStatus(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Status string `json:"status"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, fault.Validationf("cuerpo inválido: %v", err))
			return
		}
		order, err := workshop.UpdateStatus(db, pathID(c), body.Status)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func handleOrderAddParts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Parts []workshop.PartRequest `json:"parts"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, fault.Validationf("cuerpo inválido: %v", err))
			return
		}
		order, err := workshop.AddParts(db, pathID(c), body.Parts)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func handleItemList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := inventory.List(db, inventory.ListFilters{
			Search:    c.Query("q"),
			Categoria: c.Query("categoria"),
			LowStock:  c.Query("low_stock") == "true",
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func handleItemCreate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var opts inventory.CreateOpts
		if err := c.ShouldBindJSON(&opts); err != nil {
			fail(c, fault.Validationf("cuerpo inválido: %v", err))
			return
		}
		item, err := inventory.Create(db, opts)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, item)
	}
}

func handleItemGet(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		item, err := inventory.Get(db, pathID(c))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func handleItemUpdate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var opts inventory.UpdateOpts
		if err := c.ShouldBindJSON(&opts); err != nil {
			fail(c, fault.Validationf("cuerpo inválido: %v", err))
			return
		}
		item, err := inventory.Update(db, pathID(c), opts)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func handleItemAdjust(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Delta int `json:"delta"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, fault.Validationf("cuerpo inválido: %v", err))
			return
		}
		item, err := inventory.AdjustStock(db, pathID(c), body.Delta)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func handleItemRetire(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := inventory.Retire(db, pathID(c)); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleClientList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := clients.List(db, c.Query("q"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func handleClientCreate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var opts clients.CreateOpts
		if err := c.ShouldBindJSON(&opts); err != nil {
			fail(c, fault.Validationf("cuerpo inválido: %v", err))
			return
		}
		client, err := clients.Create(db, opts)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, client)
	}
}

func handleClientGet(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, err := clients.Get(db, pathID(c))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, client)
	}
}

func handleClientRetire(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := clients.Retire(db, pathID(c)); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
