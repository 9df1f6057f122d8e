package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/digital_store/internal/apperr"
	"github.com/Skotchmaster/digital_store/internal/logging"
	"github.com/Skotchmaster/digital_store/internal/models"
	"github.com/Skotchmaster/digital_store/internal/mykafka"
	"github.com/Skotchmaster/digital_store/internal/query"
	"github.com/Skotchmaster/digital_store/internal/reconcile"
	"github.com/Skotchmaster/digital_store/internal/service/search"
	"github.com/Skotchmaster/digital_store/internal/upload"
)

type ProductHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	Saver    *upload.Saver
	ES       *elasticsearch.Client
	Index    string
}

var productEntity = query.Entity{
	PrimaryKey: "id",
	Fields: []string{
		"id", "name", "slug", "price", "price_with_discount",
		"enabled", "use_in_menu", "stock", "description",
		"created_at", "updated_at",
	},
	Defaults: "id,name,slug,price,price_with_discount,enabled,use_in_menu,stock,description",
}

// optionColumns whitelists the child-option fields an option[...]
// filter may target.
var optionColumns = map[string]bool{
	"title":  true,
	"shape":  true,
	"radius": true,
	"type":   true,
	"values": true,
}

type productPayload struct {
	Name              *string                 `json:"name"`
	Slug              *string                 `json:"slug"`
	Price             *float64                `json:"price"`
	PriceWithDiscount *float64                `json:"price_with_discount"`
	Enabled           *bool                   `json:"enabled"`
	UseInMenu         *bool                   `json:"use_in_menu"`
	Stock             *int                    `json:"stock"`
	Description       *string                 `json:"description"`
	Images            []reconcile.ImageInput  `json:"images"`
	Options           []reconcile.OptionInput `json:"options"`
	Categories        []uint                  `json:"categories"`
}

// productRow shapes one result to the projected columns. Child
// collections ride along regardless of the projection.
func productRow(p *models.Product, fields []string) map[string]any {
	row := make(map[string]any, len(fields)+3)
	for _, f := range fields {
		switch f {
		case "id":
			row["id"] = p.ID
		case "name":
			row["name"] = p.Name
		case "slug":
			row["slug"] = p.Slug
		case "price":
			row["price"] = p.Price
		case "price_with_discount":
			row["price_with_discount"] = p.PriceWithDiscount
		case "enabled":
			row["enabled"] = p.Enabled
		case "use_in_menu":
			row["use_in_menu"] = p.UseInMenu
		case "stock":
			row["stock"] = p.Stock
		case "description":
			row["description"] = p.Description
		case "created_at":
			row["created_at"] = p.CreatedAt
		case "updated_at":
			row["updated_at"] = p.UpdatedAt
		}
	}
	row["images"] = p.Images
	row["options"] = p.Options
	row["categories"] = p.Categories
	return row
}

func (h *ProductHandler) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.search")

	params := c.QueryParams()
	q, err := query.Parse(params, productEntity)
	if err != nil {
		l.Warn("product_search_failed", "status", 400, "reason", "invalid parameter", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	q.Contains(params, "match", "name")
	q.Range(params, "price_range", "price")

	categoryIDs := query.IDSet(params, "category_ids")

	optionFilters := query.OptionFilters(params)
	for field := range optionFilters {
		if !optionColumns[field] {
			l.Warn("product_search_failed", "status", 400, "reason", "unknown option field", "field", field)
			return echo.NewHTTPError(http.StatusBadRequest,
				fmt.Errorf("unknown option field %q: %w", field, apperr.ErrInvalidParameter).Error())
		}
	}

	filtered := func() *gorm.DB {
		db := q.Apply(h.DB.WithContext(ctx).Model(&models.Product{}))
		if len(categoryIDs) > 0 {
			sub := h.DB.Table("product_categories").Select("product_id").Where("category_id IN ?", categoryIDs)
			db = db.Where("products.id IN (?)", sub)
		}
		if len(optionFilters) > 0 {
			// one related option row has to match every pair
			fields := make([]string, 0, len(optionFilters))
			for f := range optionFilters {
				fields = append(fields, f)
			}
			sort.Strings(fields)
			sub := h.DB.Table("product_options").Select("product_id")
			for _, f := range fields {
				// quoted: "values" is a reserved word
				sub = sub.Where(fmt.Sprintf("%q = ?", f), optionFilters[f])
			}
			db = db.Where("products.id IN (?)", sub)
		}
		return db
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		l.Error("product_search_failed", "status", 500, "reason", "cannot count products", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot search products")
	}

	rows := filtered().
		Select(q.Fields).
		Preload("Images", "enabled = ?", true).
		Preload("Options")
	if len(categoryIDs) > 0 {
		rows = rows.Preload("Categories", "id IN ?", categoryIDs)
	} else {
		rows = rows.Preload("Categories")
	}

	var items []models.Product
	if err := q.Window(rows.Order("id ASC")).Find(&items).Error; err != nil {
		l.Error("product_search_failed", "status", 500, "reason", "cannot list products", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot search products")
	}

	data := make([]map[string]any, len(items))
	for i := range items {
		data[i] = productRow(&items[i], q.Fields)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data":  data,
		"total": total,
		"limit": q.Limit,
		"page":  q.Page,
	})
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		l.Warn("product_get_failed", "status", 400, "reason", "id is not an integer", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id must be an integer")
	}

	var product models.Product
	err = h.DB.WithContext(ctx).
		Preload("Images", "enabled = ?", true).
		Preload("Options").
		Preload("Categories").
		First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("product_get_failed", "status", 404, "reason", "product not found")
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		l.Error("product_get_failed", "status", 500, "reason", "cannot get product", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get product")
	}

	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create")

	var req productPayload
	if err := c.Bind(&req); err != nil {
		l.Warn("product_create_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == nil || *req.Name == "" || req.Slug == nil || *req.Slug == "" ||
		req.Price == nil || req.PriceWithDiscount == nil {
		l.Warn("product_create_failed", "status", 400, "reason", "incomplete data")
		return echo.NewHTTPError(http.StatusBadRequest, "incomplete data")
	}

	product := models.Product{
		Name:              *req.Name,
		Slug:              *req.Slug,
		Price:             *req.Price,
		PriceWithDiscount: *req.PriceWithDiscount,
	}
	if req.Enabled != nil {
		product.Enabled = *req.Enabled
	}
	if req.UseInMenu != nil {
		product.UseInMenu = *req.UseInMenu
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.Description != nil {
		product.Description = *req.Description
	}

	if err := h.DB.WithContext(ctx).Create(&product).Error; err != nil {
		l.Error("product_create_failed", "status", 500, "reason", "cannot create product", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create product")
	}

	if len(req.Categories) > 0 {
		if err := reconcile.ReplaceCategories(h.DB.WithContext(ctx), product.ID, req.Categories); err != nil {
			l.Error("product_create_failed", "status", 500, "reason", "cannot link categories", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot create product")
		}
	}

	for i, img := range req.Images {
		if img.Content == "" {
			l.Warn("product_create_failed", "status", 400, "reason", "image without payload")
			return echo.NewHTTPError(http.StatusBadRequest, "image without payload")
		}
		name := fmt.Sprintf("product_%d_%d", product.ID, i)
		path, err := h.Saver.Save(img.Content, name)
		if err != nil {
			if errors.Is(err, apperr.ErrInvalidImage) {
				l.Warn("product_create_failed", "status", 400, "reason", "invalid base64 image", "error", err)
				return echo.NewHTTPError(http.StatusBadRequest, "invalid base64 image")
			}
			l.Error("product_create_failed", "status", 500, "reason", "cannot save image", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot create product")
		}
		row := models.ProductImage{ProductID: product.ID, Enabled: true, Path: path}
		if err := h.DB.WithContext(ctx).Create(&row).Error; err != nil {
			l.Error("product_create_failed", "status", 500, "reason", "cannot create image row", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot create product")
		}
	}

	for _, opt := range req.Options {
		rec := reconcile.OptionRecord(product.ID, opt)
		if err := h.DB.WithContext(ctx).Create(&rec).Error; err != nil {
			l.Error("product_create_failed", "status", 500, "reason", "cannot create option row", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot create product")
		}
	}

	publish(c, h.Producer, "product_events", fmt.Sprint(product.ID), map[string]any{
		"type":      "product_created",
		"productID": product.ID,
		"name":      product.Name,
	})
	h.indexProduct(c, &product)

	l.Info("product_create_success", "productID", product.ID)
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "product created",
		"product": product,
	})
}

func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.update")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		l.Warn("product_update_failed", "status", 400, "reason", "id is not an integer", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id must be an integer")
	}

	var req productPayload
	if err := c.Bind(&req); err != nil {
		l.Warn("product_update_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var product models.Product
	if err := h.DB.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("product_update_failed", "status", 404, "reason", "product not found")
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		l.Error("product_update_failed", "status", 500, "reason", "cannot load product", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update product")
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Slug != nil {
		product.Slug = *req.Slug
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.PriceWithDiscount != nil {
		product.PriceWithDiscount = *req.PriceWithDiscount
	}
	if req.Enabled != nil {
		product.Enabled = *req.Enabled
	}
	if req.UseInMenu != nil {
		product.UseInMenu = *req.UseInMenu
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.Description != nil {
		product.Description = *req.Description
	}

	if err := h.DB.WithContext(ctx).Save(&product).Error; err != nil {
		l.Error("product_update_failed", "status", 500, "reason", "cannot save product", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update product")
	}

	if len(req.Categories) > 0 {
		if err := reconcile.ReplaceCategories(h.DB.WithContext(ctx), product.ID, req.Categories); err != nil {
			l.Error("product_update_failed", "status", 500, "reason", "cannot replace categories", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot update product")
		}
	}

	if err := reconcile.SyncImages(h.DB.WithContext(ctx), h.Saver, product.ID, req.Images); err != nil {
		if errors.Is(err, apperr.ErrInvalidImage) {
			l.Warn("product_update_failed", "status", 400, "reason", "invalid base64 image", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "invalid base64 image")
		}
		l.Error("product_update_failed", "status", 500, "reason", "cannot reconcile images", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update product")
	}

	if err := reconcile.SyncOptions(h.DB.WithContext(ctx), product.ID, req.Options); err != nil {
		l.Error("product_update_failed", "status", 500, "reason", "cannot reconcile options", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update product")
	}

	publish(c, h.Producer, "product_events", fmt.Sprint(product.ID), map[string]any{
		"type":      "product_updated",
		"productID": product.ID,
		"name":      product.Name,
	})
	h.indexProduct(c, &product)

	l.Info("product_update_success", "productID", product.ID)
	return c.NoContent(http.StatusNoContent)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		l.Warn("product_delete_failed", "status", 400, "reason", "id is not an integer", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id must be an integer")
	}

	var product models.Product
	if err := h.DB.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("product_delete_failed", "status", 404, "reason", "product not found")
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		l.Error("product_delete_failed", "status", 500, "reason", "cannot load product", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete product")
	}

	// children go first, no reliance on store-level cascade
	db := h.DB.WithContext(ctx)
	if err := db.Where("product_id = ?", id).Delete(&models.ProductImage{}).Error; err != nil {
		l.Error("product_delete_failed", "status", 500, "reason", "cannot delete images", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete product")
	}
	if err := db.Where("product_id = ?", id).Delete(&models.ProductOption{}).Error; err != nil {
		l.Error("product_delete_failed", "status", 500, "reason", "cannot delete options", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete product")
	}
	if err := db.Where("product_id = ?", id).Delete(&models.ProductCategory{}).Error; err != nil {
		l.Error("product_delete_failed", "status", 500, "reason", "cannot delete category links", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete product")
	}
	if err := db.Delete(&product).Error; err != nil {
		l.Error("product_delete_failed", "status", 500, "reason", "cannot delete product", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete product")
	}

	publish(c, h.Producer, "product_events", fmt.Sprint(id), map[string]any{
		"type":      "product_deleted",
		"productID": id,
	})
	h.deindexProduct(c, uint(id))

	l.Info("product_delete_success", "productID", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *ProductHandler) indexProduct(c echo.Context, p *models.Product) {
	if h.ES == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := search.IndexProduct(ctx, h.ES, h.Index, p); err != nil {
		logging.FromContext(c.Request().Context()).Error("es index failed", "productID", p.ID, "error", err)
	}
}

func (h *ProductHandler) deindexProduct(c echo.Context, id uint) {
	if h.ES == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := search.DeleteProduct(ctx, h.ES, h.Index, id); err != nil {
		logging.FromContext(c.Request().Context()).Error("es delete failed", "productID", id, "error", err)
	}
}
