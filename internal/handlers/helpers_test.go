package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/digital_store/internal/models"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
		return nil
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.ProductImage{},
		&models.ProductOption{},
		&models.ProductCategory{},
	); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

// doJSON builds an echo context for a handler call. Query parameters go
// into target, path parameters are set by the caller on the returned
// context.
func doJSON(t *testing.T, method, target string, body interface{}) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	return rec, c
}

func httpErrCode(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError, got %v", err)
	return he.Code
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func setID(c echo.Context, id string) {
	c.SetParamNames("id")
	c.SetParamValues(id)
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, cond string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if cond != "" {
		q = q.Where(cond, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
