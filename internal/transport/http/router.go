package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/digital_store/internal/handlers"
	"github.com/Skotchmaster/digital_store/internal/jwtmiddleware"
)

type Deps struct {
	DB              *gorm.DB
	CategoryHandler *handlers.CategoryHandler
	ProductHandler  *handlers.ProductHandler
	UserHandler     *handlers.UserHandler
	SearchHandler   *handlers.SearchHandler
	JWTSecret       []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	auth := jwtmiddleware.RequireAuth(d.JWTSecret)

	v1 := e.Group("/v1")

	v1.GET("/category/search", d.CategoryHandler.SearchCategories)
	v1.GET("/category/:id", d.CategoryHandler.GetCategory)
	v1.POST("/category", d.CategoryHandler.CreateCategory, auth)
	v1.PUT("/category/:id", d.CategoryHandler.UpdateCategory, auth)
	v1.DELETE("/category/:id", d.CategoryHandler.DeleteCategory, auth)

	v1.GET("/product/search", d.ProductHandler.SearchProducts)
	v1.GET("/product/:id", d.ProductHandler.GetProduct)
	v1.POST("/product", d.ProductHandler.CreateProduct, auth)
	v1.PUT("/product/:id", d.ProductHandler.UpdateProduct, auth)
	v1.DELETE("/product/:id", d.ProductHandler.DeleteProduct, auth)

	v1.POST("/user/token", d.UserHandler.GenerateToken)
	v1.GET("/user/:id", d.UserHandler.GetUser)
	v1.POST("/user", d.UserHandler.CreateUser)
	v1.PUT("/user/:id", d.UserHandler.UpdateUser, auth)
	v1.DELETE("/user/:id", d.UserHandler.DeleteUser, auth)

	if d.SearchHandler != nil {
		v1.GET("/search", d.SearchHandler.Search)
	}
}
