package db

import (
	"time"

	"gorm.io/gorm"
)

// Ingredient 食材
type Ingredient struct {
	gorm.Model
	Name            string `gorm:"size:150;uniqueIndex;not null"`
	Description     string `gorm:"type:text"`
	IngredientGroup string `gorm:"size:100"`
}

// Component 菜品，例如 "Ginger pork"
type Component struct {
	gorm.Model
	Name           string         `gorm:"size:100;uniqueIndex;not null"`
	Description    string         `gorm:"type:text"`
	ComponentGroup ComponentGroup `gorm:"size:100;not null;index"`
}

// ComponentIngredient 菜品与食材的关联
// Date 为空表示食谱配方；Date 非空表示当日确认的实际食材，可临时替换而不改动配方
type ComponentIngredient struct {
	gorm.Model
	ComponentID  uint `gorm:"not null;index"`
	Component    Component
	IngredientID uint `gorm:"not null;index"`
	Ingredient   Ingredient
	Date         *time.Time `gorm:"index"`
}

// RestrictedItem 限制类别（如 Gluten、Nuts），展开为一组不兼容的食材
type RestrictedItem struct {
	gorm.Model
	Name                string       `gorm:"size:50;not null"`
	Description         string       `gorm:"type:text"`
	RestrictedItemGroup string       `gorm:"size:100"`
	Ingredients         []Ingredient `gorm:"many2many:restricted_item_incompatibilities;"`
}

// Menu 某一天的菜单，每个类别最多一个菜品
type Menu struct {
	gorm.Model
	Date       time.Time   `gorm:"uniqueIndex;not null"`
	Components []Component `gorm:"many2many:menu_components;"`
}
