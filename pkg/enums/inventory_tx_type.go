package enums

import "fmt"

// InventoryTxType describes the allowed values for the `type` column in
// inventory_transactions.
type InventoryTxType string

const (
	InventoryTxTypeSale       InventoryTxType = "sale"
	InventoryTxTypeRestock    InventoryTxType = "restock"
	InventoryTxTypeAdjustment InventoryTxType = "adjustment"
	InventoryTxTypeReturn     InventoryTxType = "return"
)

var validInventoryTxTypes = []InventoryTxType{
	InventoryTxTypeSale,
	InventoryTxTypeRestock,
	InventoryTxTypeAdjustment,
	InventoryTxTypeReturn,
}

// String implements fmt.Stringer.
func (i InventoryTxType) String() string {
	return string(i)
}

// IsValid reports whether the value matches the canonical inventory transaction type enum.
func (i InventoryTxType) IsValid() bool {
	for _, candidate := range validInventoryTxTypes {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseInventoryTxType converts the raw string to InventoryTxType.
func ParseInventoryTxType(value string) (InventoryTxType, error) {
	for _, candidate := range validInventoryTxTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory transaction type %q", value)
}
