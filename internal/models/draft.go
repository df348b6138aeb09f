package models

import "time"

// DraftStatus tracks where a draft sits in the wizard lifecycle. The engine
// only ever writes StatusDraft and StatusInProgress; StatusCompleted is set by
// final submission, which lives outside this system.
type DraftStatus string

const (
	StatusDraft      DraftStatus = "draft"
	StatusInProgress DraftStatus = "in_progress"
	StatusCompleted  DraftStatus = "completed"
)

// Valid reports whether the status is one of the known values.
func (s DraftStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// AssetCondition is the closed condition enumeration for documented assets.
type AssetCondition string

const (
	ConditionExcellent        AssetCondition = "excellent"
	ConditionGood             AssetCondition = "good"
	ConditionFair             AssetCondition = "fair"
	ConditionPoor             AssetCondition = "poor"
	ConditionNeedsReplacement AssetCondition = "needs_replacement"
)

// Valid reports whether the condition is one of the known values.
func (c AssetCondition) Valid() bool {
	switch c {
	case ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor, ConditionNeedsReplacement:
		return true
	}
	return false
}

// AreaType is the closed set of room categories.
type AreaType string

const (
	AreaKitchen    AreaType = "kitchen"
	AreaBedroom    AreaType = "bedroom"
	AreaBathroom   AreaType = "bathroom"
	AreaLivingRoom AreaType = "living_room"
	AreaDiningRoom AreaType = "dining_room"
	AreaGarage     AreaType = "garage"
	AreaLaundry    AreaType = "laundry"
	AreaOutdoor    AreaType = "outdoor"
	AreaOffice     AreaType = "office"
	AreaOther      AreaType = "other"
)

// Valid reports whether the area type is one of the known categories.
func (a AreaType) Valid() bool {
	switch a {
	case AreaKitchen, AreaBedroom, AreaBathroom, AreaLivingRoom, AreaDiningRoom,
		AreaGarage, AreaLaundry, AreaOutdoor, AreaOffice, AreaOther:
		return true
	}
	return false
}

// PropertyData is the partial property record carried by a draft.
//
// Photos holds renderable signed URLs and is never durably authoritative:
// PhotoPaths is the source of truth, parallel-indexed to Photos, and Photos is
// regenerated from it on every load.
type PropertyData struct {
	Name         string   `json:"name,omitempty"`
	Address      string   `json:"address,omitempty"`
	PropertyType string   `json:"propertyType,omitempty"`
	Bedrooms     int      `json:"bedrooms,omitempty"`
	Bathrooms    int      `json:"bathrooms,omitempty"`
	Photos       []string `json:"photos,omitempty"`
	PhotoPaths   []string `json:"photoPaths,omitempty"`
}

// Asset is a documented item belonging to exactly one Area. Asset IDs are
// unique within the owning draft's full asset set, not merely within an area,
// because hand-off reconciliation matches by (areaId, assetId).
type Asset struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Category   string         `json:"category"`
	Brand      string         `json:"brand,omitempty"`
	Model      string         `json:"model,omitempty"`
	Condition  AssetCondition `json:"condition"`
	Photos     []string       `json:"photos,omitempty"`
	PhotoPaths []string       `json:"photoPaths,omitempty"`
}

// Area is one room of the property. A draft exclusively owns its areas; area
// order is display order.
type Area struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Type       AreaType `json:"type"`
	Icon       string   `json:"icon,omitempty"`
	Photos     []string `json:"photos,omitempty"`
	PhotoPaths []string `json:"photoPaths,omitempty"`
	Assets     []Asset  `json:"assets,omitempty"`
}

// FindAsset returns the asset with the given id, or nil.
func (a *Area) FindAsset(assetID string) *Asset {
	for i := range a.Assets {
		if a.Assets[i].ID == assetID {
			return &a.Assets[i]
		}
	}
	return nil
}

// Draft is the root entity: an in-progress property record plus its wizard
// position. LastModified is stamped on durable writes, not on every in-memory
// mutation.
type Draft struct {
	ID                   string       `json:"id"`
	UserID               string       `json:"userId"`
	PropertyData         PropertyData `json:"propertyData"`
	Areas                []Area       `json:"areas"`
	CurrentStep          int          `json:"currentStep"`
	Status               DraftStatus  `json:"status"`
	CompletionPercentage int          `json:"completionPercentage"`
	LastModified         time.Time    `json:"lastModified"`
}

// FindArea returns the area with the given id, or nil.
func (d *Draft) FindArea(areaID string) *Area {
	for i := range d.Areas {
		if d.Areas[i].ID == areaID {
			return &d.Areas[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the draft so a caller can hold a stable view
// while the session keeps mutating its own snapshot.
func (d *Draft) Clone() *Draft {
	out := *d
	out.PropertyData.Photos = append([]string(nil), d.PropertyData.Photos...)
	out.PropertyData.PhotoPaths = append([]string(nil), d.PropertyData.PhotoPaths...)
	out.Areas = make([]Area, len(d.Areas))
	for i, area := range d.Areas {
		copied := area
		copied.Photos = append([]string(nil), area.Photos...)
		copied.PhotoPaths = append([]string(nil), area.PhotoPaths...)
		copied.Assets = make([]Asset, len(area.Assets))
		for j, asset := range area.Assets {
			ca := asset
			ca.Photos = append([]string(nil), asset.Photos...)
			ca.PhotoPaths = append([]string(nil), asset.PhotoPaths...)
			copied.Assets[j] = ca
		}
		out.Areas[i] = copied
	}
	return &out
}

// ComputeCompletion computes the derived completion figure from a fixed
// required-field checklist, rounded to the nearest whole percent. Pure; the
// session recomputes it on every mutation.
func (d *Draft) ComputeCompletion() int {
	checks := []bool{
		d.PropertyData.Name != "",
		d.PropertyData.Address != "",
		d.PropertyData.PropertyType != "",
		d.PropertyData.Bedrooms > 0,
		d.PropertyData.Bathrooms > 0,
		len(d.PropertyData.PhotoPaths) > 0,
		len(d.Areas) > 0,
		allAreasPhotographed(d.Areas),
	}

	satisfied := 0
	for _, ok := range checks {
		if ok {
			satisfied++
		}
	}
	return (satisfied*100 + len(checks)/2) / len(checks)
}

func allAreasPhotographed(areas []Area) bool {
	if len(areas) == 0 {
		return false
	}
	for _, a := range areas {
		if len(a.PhotoPaths) == 0 {
			return false
		}
	}
	return true
}

// DraftSummary carries enough data to render a draft list row without opening
// a full session.
type DraftSummary struct {
	ID                   string      `json:"id" db:"id"`
	UserID               string      `json:"userId" db:"user_id"`
	PropertyName         string      `json:"propertyName" db:"property_name"`
	Address              string      `json:"address" db:"address"`
	Status               DraftStatus `json:"status" db:"status"`
	CompletionPercentage int         `json:"completionPercentage" db:"completion_percentage"`
	LastModified         time.Time   `json:"lastModified" db:"last_modified"`
}

// Summarize projects the draft onto its list-row view.
func (d *Draft) Summarize() DraftSummary {
	return DraftSummary{
		ID:                   d.ID,
		UserID:               d.UserID,
		PropertyName:         d.PropertyData.Name,
		Address:              d.PropertyData.Address,
		Status:               d.Status,
		CompletionPercentage: d.CompletionPercentage,
		LastModified:         d.LastModified,
	}
}

// DraftPointer is the per-user "current draft" slot, read on cold start to
// resume the right draft at the right step. Last-write-wins.
type DraftPointer struct {
	DraftID string `json:"draftId"`
	Step    int    `json:"step"`
}
