package models

import (
	"time"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Firstname    string    `gorm:"not null"                 json:"firstname"`
	Surname      string    `gorm:"not null"                 json:"surname"`
	Email        string    `gorm:"unique;not null"          json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Category struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"not null"                 json:"name"`
	Slug      string    `gorm:"unique;not null"          json:"slug"`
	UseInMenu bool      `gorm:"not null;default:false"   json:"use_in_menu"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Product struct {
	ID                uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Name              string          `gorm:"not null"                 json:"name"`
	Slug              string          `gorm:"not null"                 json:"slug"`
	Price             float64         `gorm:"not null"                 json:"price"`
	PriceWithDiscount float64         `gorm:"not null"                 json:"price_with_discount"`
	Enabled           bool            `gorm:"not null;default:false"   json:"enabled"`
	UseInMenu         bool            `gorm:"not null;default:false"   json:"use_in_menu"`
	Stock             int             `gorm:"not null;default:0"       json:"stock"`
	Description       string          `gorm:"type:text"                json:"description"`
	Images            []ProductImage  `gorm:"foreignKey:ProductID"     json:"images"`
	Options           []ProductOption `gorm:"foreignKey:ProductID"     json:"options"`
	Categories        []Category      `gorm:"many2many:product_categories" json:"categories"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type ProductImage struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID uint      `gorm:"index;not null"           json:"product_id"`
	Enabled   bool      `gorm:"not null;default:false"   json:"enabled"`
	Path      string    `gorm:"not null"                 json:"path"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ProductOption struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID uint      `gorm:"index;not null"           json:"product_id"`
	Title     string    `gorm:"not null"                 json:"title"`
	Shape     string    `gorm:"not null;default:square"  json:"shape"`
	Radius    int       `gorm:"not null;default:0"       json:"radius"`
	Type      string    `gorm:"not null;default:text"    json:"type"`
	Values    string    `gorm:"not null"                 json:"values"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductCategory is the bare join row between products and categories.
// It is replaced wholesale when a product update submits a category set.
type ProductCategory struct {
	ProductID  uint `gorm:"primaryKey" json:"product_id"`
	CategoryID uint `gorm:"primaryKey" json:"category_id"`
}
