// Package reconcile diffs a product's stored child rows against a
// submitted desired-state list and applies the result as deletes,
// then updates, then creates.
package reconcile

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/digital_store/internal/apperr"
	"github.com/Skotchmaster/digital_store/internal/models"
	"github.com/Skotchmaster/digital_store/internal/upload"
)

const (
	DefaultShape = "square"
	DefaultType  = "text"
)

// ImageInput is one submitted image entry. An entry may arrive either
// as an object with id/deleted/base64 fields or as a bare data-URI
// string, which is treated as a new image.
type ImageInput struct {
	ID      uint
	Deleted bool
	Content string // data URI for new images
}

func (in *ImageInput) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*in = ImageInput{Content: s}
		return nil
	}

	var obj struct {
		ID      uint   `json:"id"`
		Deleted bool   `json:"deleted"`
		Base64  string `json:"base64"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*in = ImageInput{ID: obj.ID, Deleted: obj.Deleted, Content: obj.Base64}
	return nil
}

// OptionValues accepts either a JSON array of strings or a single
// delimited string; it is persisted comma-joined either way.
type OptionValues string

func (v *OptionValues) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*v = OptionValues(strings.Join(list, ","))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*v = OptionValues(s)
	return nil
}

// OptionInput is one submitted option entry.
type OptionInput struct {
	ID      uint         `json:"id"`
	Deleted bool         `json:"deleted"`
	Title   string       `json:"title"`
	Shape   string       `json:"shape"`
	Radius  int          `json:"radius"`
	Type    string       `json:"type"`
	Values  OptionValues `json:"values"`
}

// OptionPlan is the outcome of diffing submitted options: ids to
// delete in one bulk pass, entries to update and entries to insert.
type OptionPlan struct {
	Delete []uint
	Update []OptionInput
	Create []OptionInput
}

// PlanOptions classifies each entry by shape: id plus deleted flag
// schedules a delete, id alone an update, no id an insert.
func PlanOptions(submitted []OptionInput) OptionPlan {
	var plan OptionPlan
	for _, opt := range submitted {
		switch {
		case opt.ID != 0 && opt.Deleted:
			plan.Delete = append(plan.Delete, opt.ID)
		case opt.ID != 0:
			plan.Update = append(plan.Update, opt)
		default:
			plan.Create = append(plan.Create, opt)
		}
	}
	return plan
}

// OptionRecord builds a storable option row, filling defaults for
// omitted fields.
func OptionRecord(productID uint, opt OptionInput) models.ProductOption {
	shape := opt.Shape
	if shape == "" {
		shape = DefaultShape
	}
	typ := opt.Type
	if typ == "" {
		typ = DefaultType
	}
	return models.ProductOption{
		ProductID: productID,
		Title:     opt.Title,
		Shape:     shape,
		Radius:    opt.Radius,
		Type:      typ,
		Values:    string(opt.Values),
	}
}

// SyncOptions applies a submitted option list to the stored set.
// Deletes run first so an update can never resurrect a removed row,
// then updates and creates are applied individually.
func SyncOptions(db *gorm.DB, productID uint, submitted []OptionInput) error {
	plan := PlanOptions(submitted)

	if len(plan.Delete) > 0 {
		if err := db.Where("product_id = ?", productID).Delete(&models.ProductOption{}, plan.Delete).Error; err != nil {
			return fmt.Errorf("delete options: %w", err)
		}
	}

	for _, opt := range plan.Update {
		rec := OptionRecord(productID, opt)
		err := db.Model(&models.ProductOption{}).
			Where("id = ? AND product_id = ?", opt.ID, productID).
			Updates(map[string]any{
				"title":  rec.Title,
				"shape":  rec.Shape,
				"radius": rec.Radius,
				"type":   rec.Type,
				"values": rec.Values,
			}).Error
		if err != nil {
			return fmt.Errorf("update option %d: %w", opt.ID, err)
		}
	}

	for _, opt := range plan.Create {
		rec := OptionRecord(productID, opt)
		if err := db.Create(&rec).Error; err != nil {
			return fmt.Errorf("create option: %w", err)
		}
	}

	return nil
}

// SyncImages applies a submitted image list. Images have no mutable
// fields: an entry either keeps its row, deletes it, or carries a
// data URI that becomes a new enabled row.
func SyncImages(db *gorm.DB, saver *upload.Saver, productID uint, submitted []ImageInput) error {
	var toDelete []uint
	var toCreate []string

	for _, img := range submitted {
		switch {
		case img.ID != 0 && img.Deleted:
			toDelete = append(toDelete, img.ID)
		case img.ID != 0:
			// kept as-is
		case img.Content != "":
			toCreate = append(toCreate, img.Content)
		default:
			return fmt.Errorf("image entry without id or payload: %w", apperr.ErrInvalidImage)
		}
	}

	if len(toDelete) > 0 {
		if err := db.Where("product_id = ?", productID).Delete(&models.ProductImage{}, toDelete).Error; err != nil {
			return fmt.Errorf("delete images: %w", err)
		}
	}

	for i, content := range toCreate {
		name := fmt.Sprintf("product_%d_%d_%d", productID, time.Now().UnixNano(), i)
		path, err := saver.Save(content, name)
		if err != nil {
			return err
		}
		row := models.ProductImage{ProductID: productID, Enabled: true, Path: path}
		if err := db.Create(&row).Error; err != nil {
			return fmt.Errorf("create image: %w", err)
		}
	}

	return nil
}

// ReplaceCategories swaps the product's category memberships for the
// submitted set. Callers skip it when the submitted set is empty.
func ReplaceCategories(db *gorm.DB, productID uint, categoryIDs []uint) error {
	if err := db.Where("product_id = ?", productID).Delete(&models.ProductCategory{}).Error; err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}
	for _, cid := range categoryIDs {
		row := models.ProductCategory{ProductID: productID, CategoryID: cid}
		if err := db.Create(&row).Error; err != nil {
			return fmt.Errorf("link category %d: %w", cid, err)
		}
	}
	return nil
}
