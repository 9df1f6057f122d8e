package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/digital_store/internal/models"
	"github.com/Skotchmaster/digital_store/internal/mykafka"
)

func newCategoryHandler(t *testing.T) (*CategoryHandler, *gorm.DB) {
	db := initTestDB(t)
	return &CategoryHandler{DB: db, Producer: &mykafka.Producer{}}, db
}

func seedCategories(t *testing.T, db *gorm.DB, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		c := models.Category{
			Name:      fmt.Sprintf("Category %d", i),
			Slug:      fmt.Sprintf("category-%d", i),
			UseInMenu: i%2 == 0,
		}
		require.NoError(t, db.Create(&c).Error)
	}
}

func TestCreateCategory(t *testing.T) {
	h, db := newCategoryHandler(t)

	useInMenu := true
	rec, c := doJSON(t, http.MethodPost, "/v1/category", map[string]interface{}{
		"name":        "Shoes",
		"slug":        "shoes",
		"use_in_menu": useInMenu,
	})
	require.NoError(t, h.CreateCategory(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "category created", decodeBody(t, rec)["message"])

	var saved models.Category
	require.NoError(t, db.Where("slug = ?", "shoes").First(&saved).Error)
	require.Equal(t, "Shoes", saved.Name)
	require.True(t, saved.UseInMenu)
}

func TestCreateCategoryIncomplete(t *testing.T) {
	h, db := newCategoryHandler(t)

	cases := []map[string]interface{}{
		{"slug": "shoes", "use_in_menu": true},
		{"name": "Shoes", "use_in_menu": true},
		{"name": "Shoes", "slug": "shoes"},
	}
	for _, body := range cases {
		_, c := doJSON(t, http.MethodPost, "/v1/category", body)
		err := h.CreateCategory(c)
		require.Equal(t, http.StatusBadRequest, httpErrCode(t, err))
	}
	require.EqualValues(t, 0, countRows(t, db, &models.Category{}, ""))
}

func TestCreateCategoryDuplicateSlug(t *testing.T) {
	h, db := newCategoryHandler(t)
	seedCategories(t, db, 1)

	_, c := doJSON(t, http.MethodPost, "/v1/category", map[string]interface{}{
		"name":        "Other name",
		"slug":        "category-1",
		"use_in_menu": false,
	})
	err := h.CreateCategory(c)
	require.Equal(t, http.StatusBadRequest, httpErrCode(t, err))
	require.EqualValues(t, 1, countRows(t, db, &models.Category{}, ""))
}

func TestGetCategory(t *testing.T) {
	h, db := newCategoryHandler(t)
	seedCategories(t, db, 1)

	rec, c := doJSON(t, http.MethodGet, "/v1/category/1", nil)
	setID(c, "1")
	require.NoError(t, h.GetCategory(c))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "category-1", body["slug"])

	_, c = doJSON(t, http.MethodGet, "/v1/category/99", nil)
	setID(c, "99")
	require.Equal(t, http.StatusNotFound, httpErrCode(t, h.GetCategory(c)))

	_, c = doJSON(t, http.MethodGet, "/v1/category/abc", nil)
	setID(c, "abc")
	require.Equal(t, http.StatusBadRequest, httpErrCode(t, h.GetCategory(c)))
}

func TestUpdateCategory(t *testing.T) {
	h, db := newCategoryHandler(t)
	seedCategories(t, db, 1)

	rec, c := doJSON(t, http.MethodPut, "/v1/category/1", map[string]interface{}{
		"name":        "Renamed",
		"slug":        "renamed",
		"use_in_menu": true,
	})
	setID(c, "1")
	require.NoError(t, h.UpdateCategory(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var saved models.Category
	require.NoError(t, db.First(&saved, 1).Error)
	require.Equal(t, "Renamed", saved.Name)
	require.Equal(t, "renamed", saved.Slug)
	require.True(t, saved.UseInMenu)

	_, c = doJSON(t, http.MethodPut, "/v1/category/99", map[string]interface{}{
		"name":        "X",
		"slug":        "x",
		"use_in_menu": false,
	})
	setID(c, "99")
	require.Equal(t, http.StatusNotFound, httpErrCode(t, h.UpdateCategory(c)))
}

func TestDeleteCategory(t *testing.T) {
	h, db := newCategoryHandler(t)
	seedCategories(t, db, 2)

	rec, c := doJSON(t, http.MethodDelete, "/v1/category/1", nil)
	setID(c, "1")
	require.NoError(t, h.DeleteCategory(c))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.EqualValues(t, 1, countRows(t, db, &models.Category{}, ""))

	_, c = doJSON(t, http.MethodDelete, "/v1/category/1", nil)
	setID(c, "1")
	require.Equal(t, http.StatusNotFound, httpErrCode(t, h.DeleteCategory(c)))
}

func TestSearchCategoriesDefaults(t *testing.T) {
	h, db := newCategoryHandler(t)
	seedCategories(t, db, 3)

	rec, c := doJSON(t, http.MethodGet, "/v1/category/search", nil)
	require.NoError(t, h.SearchCategories(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.EqualValues(t, 3, body["total"])
	require.EqualValues(t, 12, body["limit"])
	require.EqualValues(t, 1, body["page"])
	require.Len(t, body["data"], 3)
}

func TestSearchCategoriesUseInMenu(t *testing.T) {
	h, db := newCategoryHandler(t)
	seedCategories(t, db, 4)

	rec, c := doJSON(t, http.MethodGet, "/v1/category/search?use_in_menu=true", nil)
	require.NoError(t, h.SearchCategories(c))
	body := decodeBody(t, rec)
	require.EqualValues(t, 2, body["total"])

	_, c = doJSON(t, http.MethodGet, "/v1/category/search?use_in_menu=banana", nil)
	require.Equal(t, http.StatusBadRequest, httpErrCode(t, h.SearchCategories(c)))
}

func TestSearchCategoriesContains(t *testing.T) {
	h, db := newCategoryHandler(t)
	seedCategories(t, db, 2)
	require.NoError(t, db.Create(&models.Category{Name: "Sneakers", Slug: "sneakers"}).Error)

	rec, c := doJSON(t, http.MethodGet, "/v1/category/search?name=SNEAK", nil)
	require.NoError(t, h.SearchCategories(c))
	body := decodeBody(t, rec)
	require.EqualValues(t, 1, body["total"])
}

func TestSearchCategoriesProjection(t *testing.T) {
	h, db := newCategoryHandler(t)
	seedCategories(t, db, 2)

	rec, c := doJSON(t, http.MethodGet, "/v1/category/search?fields=name", nil)
	require.NoError(t, h.SearchCategories(c))
	body := decodeBody(t, rec)

	rows, ok := body["data"].([]interface{})
	require.True(t, ok)
	require.Len(t, rows, 2)
	for _, r := range rows {
		row, ok := r.(map[string]interface{})
		require.True(t, ok)
		require.Contains(t, row, "name")
		require.Contains(t, row, "id")
		require.NotContains(t, row, "slug", "unprojected columns must be omitted, not zeroed")
		require.NotContains(t, row, "use_in_menu")
	}
}

func TestSearchCategoriesWindowing(t *testing.T) {
	h, db := newCategoryHandler(t)
	seedCategories(t, db, 5)

	rec, c := doJSON(t, http.MethodGet, "/v1/category/search?limit=2&page=3", nil)
	require.NoError(t, h.SearchCategories(c))
	body := decodeBody(t, rec)
	require.EqualValues(t, 5, body["total"])
	require.Len(t, body["data"], 1)

	rec, c = doJSON(t, http.MethodGet, "/v1/category/search?limit=-1&page=4", nil)
	require.NoError(t, h.SearchCategories(c))
	body = decodeBody(t, rec)
	require.EqualValues(t, 1, body["page"])
	require.Len(t, body["data"], 5)

	_, c = doJSON(t, http.MethodGet, "/v1/category/search?limit=-2", nil)
	require.Equal(t, http.StatusBadRequest, httpErrCode(t, h.SearchCategories(c)))
}
