package handlers

import (
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/digital_store/internal/logging"
	"github.com/Skotchmaster/digital_store/internal/query"
	"github.com/Skotchmaster/digital_store/internal/service/search"
)

// SearchHandler serves full-text product search from the index that
// catalog writes mirror into.
type SearchHandler struct {
	ES    *elasticsearch.Client
	Index string
}

func (h *SearchHandler) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "search.fulltext")

	q := c.QueryParam("q")
	if q == "" {
		l.Warn("search_failed", "status", 400, "reason", "q is required")
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), query.DefaultLimit)
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = query.DefaultLimit
	}
	from := (page - 1) * size

	total, products, err := search.Search(ctx, h.ES, h.Index, q, from, size)
	if err != nil {
		l.Error("search_failed", "status", 500, "reason", "es query failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total":    total,
		"products": products,
	})
}
