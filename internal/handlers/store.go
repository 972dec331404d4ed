package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/mkarpenko/stores_api/internal/logging"
	"github.com/mkarpenko/stores_api/internal/models"
	"github.com/mkarpenko/stores_api/internal/mykafka"
	"github.com/mkarpenko/stores_api/internal/util"
)

type StoreHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

func (h *StoreHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "store_events", key, event); err != nil {
		logging.FromContext(ctx).Error("kafka publish failed", "error", err)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *StoreHandler) GetStores(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var stores []models.Store
	if err := h.DB.Preload("Items").Preload("Tags").
		Order("id ASC").Offset(offset).Limit(limit).
		Find(&stores).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while fetching stores"})
	}

	return c.JSON(http.StatusOK, stores)
}

func (h *StoreHandler) GetStore(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid store id"})
	}

	var store models.Store
	if err := h.DB.Preload("Items").Preload("Tags").First(&store, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "store not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while fetching the store"})
	}

	return c.JSON(http.StatusOK, store)
}

func (h *StoreHandler) CreateStore(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "name is required"})
	}

	store := models.Store{Name: req.Name}
	// Uniqueness is left to the database constraint so two concurrent
	// creates cannot both pass a lookup.
	if err := h.DB.Create(&store).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "A store with same name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while inserting the store"})
	}

	h.publish(c, fmt.Sprint(store.ID), map[string]any{
		"type":    "store_created",
		"storeID": store.ID,
		"name":    store.Name,
	})

	return c.JSON(http.StatusCreated, store)
}

func (h *StoreHandler) DeleteStore(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid store id"})
	}

	var store models.Store
	if err := h.DB.First(&store, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "store not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while fetching the store"})
	}

	if err := h.DB.Delete(&store).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while deleting the store"})
	}

	h.publish(c, fmt.Sprint(store.ID), map[string]any{
		"type":    "store_deleted",
		"storeID": store.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "store got deleted"})
}
