package enums

import "fmt"

// ProductType enumerates the poultry products procured in bulk.
type ProductType string

const (
	ProductTypeBroiler     ProductType = "broiler"
	ProductTypeLayer       ProductType = "layer"
	ProductTypeEggs        ProductType = "eggs"
	ProductTypeDayOldChick ProductType = "day_old_chick"
)

var validProductTypes = []ProductType{
	ProductTypeBroiler,
	ProductTypeLayer,
	ProductTypeEggs,
	ProductTypeDayOldChick,
}

// String implements fmt.Stringer.
func (p ProductType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductType.
func (p ProductType) IsValid() bool {
	for _, candidate := range validProductTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductType converts raw input into a ProductType.
func ParseProductType(value string) (ProductType, error) {
	for _, candidate := range validProductTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product type %q", value)
}
