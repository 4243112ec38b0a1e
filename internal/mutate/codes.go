package mutate

import (
	"fmt"
	"regexp"
	"strings"

	"storepilot/internal/model"
)

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]`)

// Code applies a SKU or barcode change to one variant. siblings are the other
// variants of the same product, consulted by INHERIT_SKU_FROM_PARENT.
func Code(cur string, productID int64, v model.Variant, siblings []model.Variant, c model.Change) (string, error) {
	switch c.Action {
	case model.ActionSetSKU, model.ActionSetBarcode:
		return strings.TrimSpace(c.Value.String()), nil

	case model.ActionGenerateSKU:
		return fmt.Sprintf("%d-%d", productID, v.ID), nil

	case model.ActionInheritSKU:
		for _, s := range siblings {
			if s.ID == v.ID || s.SKU == "" {
				continue
			}
			prefix, _, _ := strings.Cut(s.SKU, "-")
			return fmt.Sprintf("%s-%d", prefix, v.ID), nil
		}
		return cur, nil

	case model.ActionSanitizeCodes:
		return strings.ToUpper(nonAlnum.ReplaceAllString(cur, "")), nil

	case model.ActionClearCode:
		return "", nil
	}
	return cur, unsupported(c)
}
