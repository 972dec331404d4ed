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

	"github.com/mkarpenko/stores_api/internal/es"
	"github.com/mkarpenko/stores_api/internal/logging"
	"github.com/mkarpenko/stores_api/internal/models"
	"github.com/mkarpenko/stores_api/internal/mykafka"
	"github.com/mkarpenko/stores_api/internal/util"
)

type ItemHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	Indexer  *es.Indexer
}

func (h *ItemHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "item_events", key, event); err != nil {
		logging.FromContext(ctx).Error("kafka publish failed", "error", err)
	}
}

func (h *ItemHandler) index(c echo.Context, item *models.Item) {
	ctx := c.Request().Context()
	if err := h.Indexer.IndexItem(ctx, item); err != nil {
		logging.FromContext(ctx).Error("es index failed", "itemID", item.ID, "error", err)
	}
}

func (h *ItemHandler) GetItems(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var items []models.Item
	if err := h.DB.Preload("Tags").
		Order("id ASC").Offset(offset).Limit(limit).
		Find(&items).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while fetching items"})
	}

	return c.JSON(http.StatusOK, items)
}

func (h *ItemHandler) GetItem(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid item id"})
	}

	var item models.Item
	if err := h.DB.Preload("Tags").First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "item not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while fetching the item"})
	}

	return c.JSON(http.StatusOK, item)
}

func (h *ItemHandler) CreateItem(c echo.Context) error {
	var req struct {
		Name    string  `json:"name"`
		Price   float64 `json:"price"`
		StoreID uint    `json:"store_id"`
	}
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "name, price and store_id are required"})
	}

	item := models.Item{Name: req.Name, Price: req.Price, StoreID: req.StoreID}
	if err := h.DB.Create(&item).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while inserting the item"})
	}

	h.index(c, &item)
	h.publish(c, fmt.Sprint(item.ID), map[string]any{
		"type":   "item_created",
		"itemID": item.ID,
		"name":   item.Name,
	})

	return c.JSON(http.StatusCreated, item)
}

// PutItem overwrites name and price of an existing item, or creates the
// item under the client-supplied id when it does not exist yet.
func (h *ItemHandler) PutItem(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid item id"})
	}

	var req struct {
		Name    string  `json:"name"`
		Price   float64 `json:"price"`
		StoreID uint    `json:"store_id"`
	}
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "name and price are required"})
	}

	var item models.Item
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		findErr := tx.First(&item, id).Error
		switch {
		case findErr == nil:
			item.Name = req.Name
			item.Price = req.Price
			return tx.Save(&item).Error
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			item = models.Item{ID: uint(id), Name: req.Name, Price: req.Price, StoreID: req.StoreID}
			return tx.Create(&item).Error
		default:
			return findErr
		}
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while upserting the item"})
	}

	h.index(c, &item)
	h.publish(c, fmt.Sprint(item.ID), map[string]any{
		"type":   "item_updated",
		"itemID": item.ID,
		"name":   item.Name,
	})

	return c.JSON(http.StatusOK, item)
}

func (h *ItemHandler) DeleteItem(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid item id"})
	}

	var item models.Item
	if err := h.DB.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "item not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while fetching the item"})
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&item).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(&item).Error
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while deleting the item"})
	}

	ctx := c.Request().Context()
	if err := h.Indexer.DeleteItem(ctx, item.ID); err != nil {
		logging.FromContext(ctx).Error("es delete failed", "itemID", item.ID, "error", err)
	}
	h.publish(c, fmt.Sprint(item.ID), map[string]any{
		"type":   "item_deleted",
		"itemID": item.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "item got deleted"})
}

type SearchHandler struct {
	Indexer *es.Indexer
}

func (h *SearchHandler) Search(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "q is required"})
	}
	if h.Indexer == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"message": "search is not configured"})
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	total, items, err := h.Indexer.Search(c.Request().Context(), q, from, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while searching"})
	}

	return c.JSON(http.StatusOK, echo.Map{"total": total, "items": items})
}
