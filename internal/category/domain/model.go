package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Category struct {
	ID        snowflake.ID  `json:"id" gorm:"primaryKey"`
	Name      string        `json:"name" gorm:"type:text;not null"`
	Slug      string        `json:"slug" gorm:"type:varchar(120);not null;uniqueIndex:ux_categories_slug"`
	ParentID  *snowflake.ID `json:"parent_id,omitempty" gorm:"index"`
	Active    bool          `json:"active" gorm:"not null"`
	CreatedAt time.Time     `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time     `json:"updated_at" gorm:"not null"`
}

func (Category) TableName() string { return "categories" }

func (c Category) IsRoot() bool { return c.ParentID == nil }
