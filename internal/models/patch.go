package models

// PropertyPatch is the typed shallow-merge structure for partial property
// updates. Nil fields are left untouched; set fields replace wholesale.
type PropertyPatch struct {
	Name         *string   `json:"name,omitempty"`
	Address      *string   `json:"address,omitempty"`
	PropertyType *string   `json:"propertyType,omitempty"`
	Bedrooms     *int      `json:"bedrooms,omitempty"`
	Bathrooms    *int      `json:"bathrooms,omitempty"`
	Photos       *[]string `json:"photos,omitempty"`
	PhotoPaths   *[]string `json:"photoPaths,omitempty"`
}

// Apply merges the patch into the target field by field.
func (p PropertyPatch) Apply(into *PropertyData) {
	if p.Name != nil {
		into.Name = *p.Name
	}
	if p.Address != nil {
		into.Address = *p.Address
	}
	if p.PropertyType != nil {
		into.PropertyType = *p.PropertyType
	}
	if p.Bedrooms != nil {
		into.Bedrooms = *p.Bedrooms
	}
	if p.Bathrooms != nil {
		into.Bathrooms = *p.Bathrooms
	}
	if p.Photos != nil {
		into.Photos = append([]string(nil), (*p.Photos)...)
	}
	if p.PhotoPaths != nil {
		into.PhotoPaths = append([]string(nil), (*p.PhotoPaths)...)
	}
}

// IsEmpty reports whether the patch carries no fields.
func (p PropertyPatch) IsEmpty() bool {
	return p.Name == nil && p.Address == nil && p.PropertyType == nil &&
		p.Bedrooms == nil && p.Bathrooms == nil && p.Photos == nil && p.PhotoPaths == nil
}

// StringPtr is a convenience for building patches at call sites.
func StringPtr(s string) *string { return &s }

// IntPtr is a convenience for building patches at call sites.
func IntPtr(n int) *int { return &n }

// StringsPtr is a convenience for building patches at call sites.
func StringsPtr(s []string) *[]string { return &s }
