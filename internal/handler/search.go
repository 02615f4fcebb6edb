package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/ai-travel-planner/internal/logger"
	"github.com/iliyamo/ai-travel-planner/internal/model"
)

// Catalog is the keyword search over the travel catalog tables.
type Catalog interface {
	SearchFlights(ctx context.Context, term string) ([]model.Flight, error)
	SearchBuses(ctx context.Context, term string) ([]model.Bus, error)
	SearchTrains(ctx context.Context, term string) ([]model.Train, error)
	SearchHotels(ctx context.Context, term string) ([]model.Hotel, error)
}

// SearchHandler serves /api/search.
type SearchHandler struct {
	Catalog Catalog
	Log     *zap.Logger
}

func NewSearchHandler(c Catalog, log *zap.Logger) *SearchHandler {
	return &SearchHandler{Catalog: c, Log: logger.OrNop(log)}
}

func (h *SearchHandler) Flights(c echo.Context) error { return search(h, c, h.Catalog.SearchFlights) }
func (h *SearchHandler) Buses(c echo.Context) error   { return search(h, c, h.Catalog.SearchBuses) }
func (h *SearchHandler) Trains(c echo.Context) error  { return search(h, c, h.Catalog.SearchTrains) }
func (h *SearchHandler) Hotels(c echo.Context) error  { return search(h, c, h.Catalog.SearchHotels) }

// search runs fn with ?q= and writes the results. An empty term is a 400.
func search[T any](h *SearchHandler, c echo.Context, fn func(context.Context, string) ([]T, error)) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return fail(c, http.StatusBadRequest, "query parameter q is required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	rows, err := fn(ctx, q)
	if err != nil {
		h.Log.Error("search failed", zap.String("path", c.Path()), zap.Error(err))
		return fail(c, http.StatusInternalServerError, msgInternal)
	}
	if rows == nil {
		rows = []T{}
	}
	return c.JSON(http.StatusOK, rows)
}
