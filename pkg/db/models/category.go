package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is a catalog grouping. Categories form a tree via ParentID and a
// parent cannot be deleted while children reference it.
type Category struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string     `gorm:"column:name;not null"`
	Slug        string     `gorm:"column:slug;not null;uniqueIndex:categories_slug_key"`
	Description string     `gorm:"column:description;not null;default:''"`
	ParentID    *uuid.UUID `gorm:"column:parent_id;type:uuid;index:categories_parent_id_idx"`
	IsActive    bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
