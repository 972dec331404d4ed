package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarpenko/stores_api/internal/models"
)

func (env *testEnv) seedItemAndTag() (models.Item, models.Tag) {
	store := env.createStore("bookstore")
	item := models.Item{Name: "mug", Price: 4.5, StoreID: store.ID}
	require.NoError(env.T, env.DB.Create(&item).Error)
	tag := models.Tag{Name: "kitchen", StoreID: store.ID}
	require.NoError(env.T, env.DB.Create(&tag).Error)
	return item, tag
}

func (env *testEnv) linkTag(item models.Item, tag models.Tag) {
	rec, c := env.doJSONRequest(http.MethodPost, "/item/1/tag/1", nil, "")
	c.SetParamNames("id", "tag_id")
	c.SetParamValues(strconv.Itoa(int(item.ID)), strconv.Itoa(int(tag.ID)))
	require.NoError(env.T, env.TG.LinkTag(c))
	require.Equal(env.T, http.StatusCreated, rec.Code)
}

func (env *testEnv) tagItemCount(tag models.Tag) int64 {
	return env.DB.Model(&tag).Association("Items").Count()
}

func TestCreateStoreTag(t *testing.T) {
	env := newTestEnv(t)
	store := env.createStore("bookstore")

	rec, c := env.doJSONRequest(http.MethodPost, "/store/1/tag", map[string]string{"name": "kitchen"}, "")
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(int(store.ID)))
	require.NoError(t, env.TG.CreateStoreTag(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var tag models.Tag
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tag))
	assert.Equal(t, "kitchen", tag.Name)
	assert.Equal(t, store.ID, tag.StoreID)
}

func TestCreateStoreTag_StoreNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSONRequest(http.MethodPost, "/store/9/tag", map[string]string{"name": "kitchen"}, "")
	c.SetParamNames("id")
	c.SetParamValues("9")
	require.NoError(t, env.TG.CreateStoreTag(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLinkTag_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	item, tag := env.seedItemAndTag()

	env.linkTag(item, tag)
	env.linkTag(item, tag)

	assert.Equal(t, int64(1), env.tagItemCount(tag))
}

func TestUnlinkTag_TwiceIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	item, tag := env.seedItemAndTag()
	env.linkTag(item, tag)

	rec, c := env.doJSONRequest(http.MethodDelete, "/item/1/tag/1", nil, "")
	c.SetParamNames("id", "tag_id")
	c.SetParamValues("1", "1")
	require.NoError(t, env.TG.UnlinkTag(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Item removed from the tag")
	assert.Zero(t, env.tagItemCount(tag))

	// Unlinking an association that no longer exists must not fail.
	rec2, c2 := env.doJSONRequest(http.MethodDelete, "/item/1/tag/1", nil, "")
	c2.SetParamNames("id", "tag_id")
	c2.SetParamValues("1", "1")
	require.NoError(t, env.TG.UnlinkTag(c2))
	assert.Equal(t, http.StatusOK, rec2.Code)
}

func TestDeleteTag_LinkedItemsBlockDeletion(t *testing.T) {
	env := newTestEnv(t)
	item, tag := env.seedItemAndTag()
	env.linkTag(item, tag)

	rec, c := env.doJSONRequest(http.MethodDelete, "/tag/1", nil, "")
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.TG.DeleteTag(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The tag must survive a refused deletion.
	var count int64
	require.NoError(t, env.DB.Model(&models.Tag{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDeleteTag_UnlinkedSucceeds(t *testing.T) {
	env := newTestEnv(t)
	_, tag := env.seedItemAndTag()

	rec, c := env.doJSONRequest(http.MethodDelete, "/tag/1", nil, "")
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(int(tag.ID)))
	require.NoError(t, env.TG.DeleteTag(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	var count int64
	require.NoError(t, env.DB.Model(&models.Tag{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetStoreTags(t *testing.T) {
	env := newTestEnv(t)
	_, tag := env.seedItemAndTag()

	rec, c := env.doJSONRequest(http.MethodGet, "/store/1/tag", nil, "")
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.TG.GetStoreTags(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var tags []models.Tag
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tags))
	require.Len(t, tags, 1)
	assert.Equal(t, tag.Name, tags[0].Name)
}
