package models

// Ingredient is reference data. The same name may exist with several units.
type Ingredient struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Name            string `gorm:"size:128;not null;uniqueIndex:idx_ingredient_name_unit" json:"name"`
	MeasurementUnit string `gorm:"size:64;not null;uniqueIndex:idx_ingredient_name_unit" json:"measurement_unit"`
}

// Tag is reference data used to classify recipes
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:32;not null;uniqueIndex" json:"name"`
	Slug string `gorm:"size:32;not null;uniqueIndex" json:"slug"`
}
