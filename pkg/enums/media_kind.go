package enums

import "fmt"

// MediaKind categorizes uploaded objects.
type MediaKind string

const (
	MediaKindProductImage MediaKind = "product_image"
	MediaKindVariantImage MediaKind = "variant_image"
	MediaKindCategoryIcon MediaKind = "category_icon"
	MediaKindAvatar       MediaKind = "avatar"
)

var validMediaKinds = []MediaKind{
	MediaKindProductImage,
	MediaKindVariantImage,
	MediaKindCategoryIcon,
	MediaKindAvatar,
}

// IsValid reports whether the value is a known MediaKind.
func (m MediaKind) IsValid() bool {
	for _, candidate := range validMediaKinds {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMediaKind converts raw input into a MediaKind.
func ParseMediaKind(value string) (MediaKind, error) {
	for _, candidate := range validMediaKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid media kind %q", value)
}
