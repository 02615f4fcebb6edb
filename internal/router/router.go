// Package router registers the HTTP routes of the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ai-travel-planner/internal/handler"
)

// Deps carries what the route groups need. Middleware fields left nil are
// skipped.
type Deps struct {
	Health  echo.HandlerFunc
	Auth    *handler.AuthHandler
	Plans   *handler.TravelPlanHandler
	Search  *handler.SearchHandler
	JWT     echo.MiddlewareFunc
	Limiter echo.MiddlewareFunc
	Cache   echo.MiddlewareFunc
}

// Register mounts every route on e.
func Register(e *echo.Echo, d Deps) {
	if d.Health != nil {
		e.GET("/healthz", d.Health)
	}
	api := e.Group("/api")
	if d.Auth != nil {
		RegisterAuth(api, d)
	}
	if d.Plans != nil {
		RegisterTravelPlans(api, d)
	}
	if d.Search != nil {
		RegisterSearch(api, d)
	}
}

func use(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// RegisterAuth mounts /api/auth. The whole group is rate limited; the
// profile routes also require a bearer token.
func RegisterAuth(api *echo.Group, d Deps) {
	a := d.Auth
	g := api.Group("/auth", use(d.Limiter)...)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh-token", a.RefreshToken)
	g.POST("/logout", a.Logout)

	authed := use(d.JWT)
	g.GET("/me", a.Me, authed...)
	g.PUT("/me", a.UpdateMe, authed...)
	g.DELETE("/me", a.DeleteMe, authed...)
	g.POST("/change-password", a.ChangePassword, authed...)
}

// RegisterTravelPlans mounts /api/travelplans behind the bearer middleware.
func RegisterTravelPlans(api *echo.Group, d Deps) {
	p := d.Plans
	g := api.Group("/travelplans", use(d.JWT)...)

	g.GET("", p.List)
	g.GET("/public", p.ListPublic, use(d.Cache)...)
	g.GET("/destination/:destination", p.ByDestination)
	g.GET("/style/:style", p.ByStyle)
	g.GET("/date-range", p.ByDateRange)
	g.POST("", p.Create)
	g.POST("/generate", p.Generate)
	g.GET("/:id", p.Get)
	g.PUT("/:id", p.Update)
	g.DELETE("/:id", p.Delete)

	items := map[string]handler.ItemHandlers{
		"activities":      p.Activities(),
		"accommodations":  p.Accommodations(),
		"transportations": p.Transportations(),
	}
	for name, h := range items {
		g.GET("/:id/"+name, h.List)
		g.POST("/:id/"+name, h.Add)
		g.GET("/"+name+"/:itemId", h.Get)
		g.PUT("/"+name+"/:itemId", h.Update)
		g.DELETE("/"+name+"/:itemId", h.Delete)
	}
}

// RegisterSearch mounts the cached catalog search under /api/search.
func RegisterSearch(api *echo.Group, d Deps) {
	s := d.Search
	g := api.Group("/search", use(d.Cache)...)
	g.GET("/flights", s.Flights)
	g.GET("/buses", s.Buses)
	g.GET("/trains", s.Trains)
	g.GET("/hotels", s.Hotels)
}
