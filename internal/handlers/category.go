package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/digital_store/internal/logging"
	"github.com/Skotchmaster/digital_store/internal/models"
	"github.com/Skotchmaster/digital_store/internal/mykafka"
	"github.com/Skotchmaster/digital_store/internal/query"
)

type CategoryHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

var categoryEntity = query.Entity{
	PrimaryKey: "id",
	Fields:     []string{"id", "name", "slug", "use_in_menu", "created_at", "updated_at"},
	Defaults:   "name,slug",
}

type categoryPayload struct {
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	UseInMenu *bool  `json:"use_in_menu"`
}

func (p *categoryPayload) complete() bool {
	return p.Name != "" && p.Slug != "" && p.UseInMenu != nil
}

// categoryRow shapes one result to the projected columns.
func categoryRow(cat *models.Category, fields []string) map[string]any {
	row := make(map[string]any, len(fields))
	for _, f := range fields {
		switch f {
		case "id":
			row["id"] = cat.ID
		case "name":
			row["name"] = cat.Name
		case "slug":
			row["slug"] = cat.Slug
		case "use_in_menu":
			row["use_in_menu"] = cat.UseInMenu
		case "created_at":
			row["created_at"] = cat.CreatedAt
		case "updated_at":
			row["updated_at"] = cat.UpdatedAt
		}
	}
	return row
}

func (h *CategoryHandler) SearchCategories(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.search")

	params := c.QueryParams()
	q, err := query.Parse(params, categoryEntity)
	if err == nil {
		err = q.Bool(params, "use_in_menu", "use_in_menu")
	}
	if err != nil {
		l.Warn("category_search_failed", "status", 400, "reason", "invalid parameter", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	q.Contains(params, "name", "name")
	q.Contains(params, "slug", "slug")

	filtered := func() *gorm.DB {
		return q.Apply(h.DB.WithContext(ctx).Model(&models.Category{}))
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		l.Error("category_search_failed", "status", 500, "reason", "cannot count categories", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot search categories")
	}

	var items []models.Category
	if err := q.Window(filtered().Select(q.Fields).Order("id ASC")).Find(&items).Error; err != nil {
		l.Error("category_search_failed", "status", 500, "reason", "cannot list categories", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot search categories")
	}

	data := make([]map[string]any, len(items))
	for i := range items {
		data[i] = categoryRow(&items[i], q.Fields)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data":  data,
		"total": total,
		"limit": q.Limit,
		"page":  q.Page,
	})
}

func (h *CategoryHandler) GetCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.get")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		l.Warn("category_get_failed", "status", 400, "reason", "id is not an integer", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id must be an integer")
	}

	var category models.Category
	if err := h.DB.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("category_get_failed", "status", 404, "reason", "category not found")
			return echo.NewHTTPError(http.StatusNotFound, "category not found")
		}
		l.Error("category_get_failed", "status", 500, "reason", "cannot get category", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get category")
	}

	return c.JSON(http.StatusOK, category)
}

func (h *CategoryHandler) CreateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.create")

	var req categoryPayload
	if err := c.Bind(&req); err != nil {
		l.Warn("category_create_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if !req.complete() {
		l.Warn("category_create_failed", "status", 400, "reason", "incomplete data")
		return echo.NewHTTPError(http.StatusBadRequest, "incomplete data")
	}

	var existing models.Category
	err := h.DB.WithContext(ctx).Where("slug = ?", req.Slug).First(&existing).Error
	switch {
	case err == nil:
		l.Warn("category_create_failed", "status", 400, "reason", "slug already registered")
		return echo.NewHTTPError(http.StatusBadRequest, "slug already registered")
	case !errors.Is(err, gorm.ErrRecordNotFound):
		l.Error("category_create_failed", "status", 500, "reason", "cannot check slug", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create category")
	}

	category := models.Category{
		Name:      req.Name,
		Slug:      req.Slug,
		UseInMenu: *req.UseInMenu,
	}
	if err := h.DB.WithContext(ctx).Create(&category).Error; err != nil {
		l.Error("category_create_failed", "status", 500, "reason", "cannot create category", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create category")
	}

	publish(c, h.Producer, "category_events", fmt.Sprint(category.ID), map[string]any{
		"type":       "category_created",
		"categoryID": category.ID,
		"slug":       category.Slug,
	})

	l.Info("category_create_success", "categoryID", category.ID)
	return c.JSON(http.StatusCreated, echo.Map{"message": "category created"})
}

func (h *CategoryHandler) UpdateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.update")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		l.Warn("category_update_failed", "status", 400, "reason", "id is not an integer", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id must be an integer")
	}

	var req categoryPayload
	if err := c.Bind(&req); err != nil {
		l.Warn("category_update_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if !req.complete() {
		l.Warn("category_update_failed", "status", 400, "reason", "incomplete data")
		return echo.NewHTTPError(http.StatusBadRequest, "incomplete data")
	}

	var category models.Category
	if err := h.DB.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("category_update_failed", "status", 404, "reason", "category not found")
			return echo.NewHTTPError(http.StatusNotFound, "category not found")
		}
		l.Error("category_update_failed", "status", 500, "reason", "cannot load category", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update category")
	}

	category.Name = req.Name
	category.Slug = req.Slug
	category.UseInMenu = *req.UseInMenu

	if err := h.DB.WithContext(ctx).Save(&category).Error; err != nil {
		l.Error("category_update_failed", "status", 500, "reason", "cannot save category", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update category")
	}

	publish(c, h.Producer, "category_events", fmt.Sprint(category.ID), map[string]any{
		"type":       "category_updated",
		"categoryID": category.ID,
		"slug":       category.Slug,
	})

	l.Info("category_update_success", "categoryID", category.ID)
	return c.NoContent(http.StatusNoContent)
}

func (h *CategoryHandler) DeleteCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.delete")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		l.Warn("category_delete_failed", "status", 400, "reason", "id is not an integer", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id must be an integer")
	}

	var category models.Category
	if err := h.DB.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("category_delete_failed", "status", 404, "reason", "category not found")
			return echo.NewHTTPError(http.StatusNotFound, "category not found")
		}
		l.Error("category_delete_failed", "status", 500, "reason", "cannot load category", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete category")
	}

	if err := h.DB.WithContext(ctx).Delete(&category).Error; err != nil {
		l.Error("category_delete_failed", "status", 500, "reason", "cannot delete category", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete category")
	}

	publish(c, h.Producer, "category_events", fmt.Sprint(id), map[string]any{
		"type":       "category_deleted",
		"categoryID": id,
	})

	l.Info("category_delete_success", "categoryID", id)
	return c.NoContent(http.StatusNoContent)
}
