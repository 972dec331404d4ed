package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mkarpenko/stores_api/internal/handlers"
	"github.com/mkarpenko/stores_api/internal/middleware/auth"
)

type Deps struct {
	Gate          *auth.Gate
	AuthHandler   *handlers.AuthHandler
	UserHandler   *handlers.UserHandler
	StoreHandler  *handlers.StoreHandler
	ItemHandler   *handlers.ItemHandler
	TagHandler    *handlers.TagHandler
	SearchHandler *handlers.SearchHandler
}

// Register mounts every route with its auth requirement: bare routes for
// register/login, RequireAuth for anything bearing a token, RequireFresh on
// sensitive mutations, RequireAdmin on deletions and unlinks.
func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	g := d.Gate

	e.POST("/register", d.AuthHandler.Register)
	e.POST("/login", d.AuthHandler.Login)
	e.POST("/refresh", d.AuthHandler.Refresh, g.RequireAuth)
	e.POST("/logout", d.AuthHandler.Logout, g.RequireAuth)

	e.GET("/user/:id", d.UserHandler.GetUser, g.RequireAuth)
	e.DELETE("/user/:id", d.UserHandler.DeleteUser, g.RequireAuth, g.RequireFresh, g.RequireAdmin)

	e.GET("/store", d.StoreHandler.GetStores, g.RequireAuth)
	e.GET("/store/:id", d.StoreHandler.GetStore, g.RequireAuth)
	e.POST("/store", d.StoreHandler.CreateStore, g.RequireAuth, g.RequireFresh)
	e.DELETE("/store/:id", d.StoreHandler.DeleteStore, g.RequireAuth, g.RequireFresh, g.RequireAdmin)

	e.GET("/item", d.ItemHandler.GetItems, g.RequireAuth)
	e.GET("/item/:id", d.ItemHandler.GetItem, g.RequireAuth)
	e.POST("/item", d.ItemHandler.CreateItem, g.RequireAuth, g.RequireFresh)
	e.PUT("/item/:id", d.ItemHandler.PutItem, g.RequireAuth, g.RequireFresh)
	e.DELETE("/item/:id", d.ItemHandler.DeleteItem, g.RequireAuth, g.RequireFresh, g.RequireAdmin)

	e.GET("/store/:id/tag", d.TagHandler.GetStoreTags, g.RequireAuth)
	e.POST("/store/:id/tag", d.TagHandler.CreateStoreTag, g.RequireAuth, g.RequireFresh)
	e.GET("/tag/:id", d.TagHandler.GetTag, g.RequireAuth)
	e.POST("/item/:id/tag/:tag_id", d.TagHandler.LinkTag, g.RequireAuth, g.RequireFresh)
	e.DELETE("/item/:id/tag/:tag_id", d.TagHandler.UnlinkTag, g.RequireAuth, g.RequireFresh, g.RequireAdmin)
	e.DELETE("/tag/:id", d.TagHandler.DeleteTag, g.RequireAuth, g.RequireFresh, g.RequireAdmin)

	e.GET("/search", d.SearchHandler.Search, g.RequireAuth)
}
