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
)

type TagHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

func (h *TagHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "tag_events", key, event); err != nil {
		logging.FromContext(ctx).Error("kafka publish failed", "error", err)
	}
}

func (h *TagHandler) GetStoreTags(c echo.Context) error {
	storeID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid store id"})
	}

	var store models.Store
	if err := h.DB.Preload("Tags").First(&store, storeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "store not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while fetching tags"})
	}

	return c.JSON(http.StatusOK, store.Tags)
}

func (h *TagHandler) CreateStoreTag(c echo.Context) error {
	storeID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid store id"})
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "name is required"})
	}

	var store models.Store
	if err := h.DB.First(&store, storeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "store not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while fetching the store"})
	}

	tag := models.Tag{Name: req.Name, StoreID: store.ID}
	if err := h.DB.Create(&tag).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while inserting the tag"})
	}

	h.publish(c, fmt.Sprint(tag.ID), map[string]any{
		"type":    "tag_created",
		"tagID":   tag.ID,
		"storeID": tag.StoreID,
		"name":    tag.Name,
	})

	return c.JSON(http.StatusCreated, tag)
}

func (h *TagHandler) GetTag(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid tag id"})
	}

	var tag models.Tag
	if err := h.DB.Preload("Items").First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "tag not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while fetching the tag"})
	}

	return c.JSON(http.StatusOK, tag)
}

// LinkTag appends a tag to an item's tag set. Linking the same pair twice
// is a no-op thanks to the join-table upsert.
func (h *TagHandler) LinkTag(c echo.Context) error {
	item, tag, ok := h.itemAndTag(c)
	if !ok {
		return nil
	}

	if err := h.DB.Model(item).Association("Tags").Append(tag); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while linking the tag"})
	}

	h.publish(c, fmt.Sprint(tag.ID), map[string]any{
		"type":   "tag_linked",
		"tagID":  tag.ID,
		"itemID": item.ID,
	})

	return c.JSON(http.StatusCreated, tag)
}

// UnlinkTag removes the association. Removing an association that does not
// exist is a no-op, so a repeated unlink still succeeds.
func (h *TagHandler) UnlinkTag(c echo.Context) error {
	item, tag, ok := h.itemAndTag(c)
	if !ok {
		return nil
	}

	if err := h.DB.Model(item).Association("Tags").Delete(tag); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while unlinking the tag"})
	}

	h.publish(c, fmt.Sprint(tag.ID), map[string]any{
		"type":   "tag_unlinked",
		"tagID":  tag.ID,
		"itemID": item.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Item removed from the tag",
		"item":    item,
		"tag":     tag,
	})
}

func (h *TagHandler) DeleteTag(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid tag id"})
	}

	var tag models.Tag
	if err := h.DB.First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "tag not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while fetching the tag"})
	}

	count := h.DB.Model(&tag).Association("Items").Count()
	if count > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "Could not delete tag, make sure tag is not associated with any items, then try again",
		})
	}

	if err := h.DB.Delete(&tag).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while deleting the tag"})
	}

	h.publish(c, fmt.Sprint(tag.ID), map[string]any{
		"type":  "tag_deleted",
		"tagID": tag.ID,
	})

	return c.JSON(http.StatusAccepted, echo.Map{"message": "tag deleted"})
}

// itemAndTag resolves both path params. When it returns ok=false the
// response has already been written.
func (h *TagHandler) itemAndTag(c echo.Context) (*models.Item, *models.Tag, bool) {
	itemID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid item id"})
		return nil, nil, false
	}
	tagID, err := strconv.Atoi(c.Param("tag_id"))
	if err != nil {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid tag id"})
		return nil, nil, false
	}

	var item models.Item
	if err := h.DB.First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = c.JSON(http.StatusNotFound, echo.Map{"message": "item not found"})
		} else {
			_ = c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while fetching the item"})
		}
		return nil, nil, false
	}

	var tag models.Tag
	if err := h.DB.First(&tag, tagID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = c.JSON(http.StatusNotFound, echo.Map{"message": "tag not found"})
		} else {
			_ = c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while fetching the tag"})
		}
		return nil, nil, false
	}

	return &item, &tag, true
}
