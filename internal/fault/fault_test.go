package fault

import (
	"fmt"
	"strings"
	"testing"
)

func TestFaultMatching(t *testing.T) {
	val := Validationf("unidad %d no visible", 7)
	if !IsValidation(val) {
		t.Error("IsValidation should match ValidationError")
	}
	if IsNotFound(val) || IsInsufficientStock(val) {
		t.Error("ValidationError matched the wrong predicate")
	}

	nf := NotFound("Llanta")
	if !IsNotFound(nf) {
		t.Error("IsNotFound should match NotFoundError")
	}
	if nf.Error() != "Llanta no encontrado" {
		t.Errorf("unexpected message: %q", nf.Error())
	}

	stock := &InsufficientStockError{SKU: "FLT-001", Requested: 6, Available: 5}
	if !IsInsufficientStock(stock) {
		t.Error("IsInsufficientStock should match InsufficientStockError")
	}
	if !strings.Contains(stock.Error(), "FLT-001") || !strings.Contains(stock.Error(), "5") {
		t.Errorf("message should name the SKU and available quantity: %q", stock.Error())
	}
}

func TestFaultMatchingThroughWrapping(t *testing.T) {
	err := fmt.Errorf("workshop: create order: %w", &InsufficientStockError{SKU: "X", Requested: 2, Available: 1})
	if !IsInsufficientStock(err) {
		t.Error("predicates should see through fmt.Errorf wrapping")
	}
}
