package service

import (
	"fmt"
	"net/http"
	"testing"

	"fleetdata/dao/model"
	"fleetdata/dao/query"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDatastream(t *testing.T) uuid.UUID {
	t.Helper()
	row := &model.Datastream{Type: 1, MeasurementID: uuid.New()}
	require.NoError(t, query.DB.Create(row).Error)
	return row.ID
}

func seedScene(t *testing.T) uuid.UUID {
	t.Helper()
	row := &model.Scene{StartIdx: 0, EndIdx: 10}
	require.NoError(t, query.DB.Create(row).Error)
	return row.ID
}

func createDataset(t *testing.T, r *gin.Engine, body gin.H) model.Dataset {
	t.Helper()
	w, env := doRequest(t, r, http.MethodPost, "/api/v1/datasets", body)
	require.Equal(t, http.StatusCreated, w.Code, env.Msg)
	return decodeData[model.Dataset](t, env)
}

func TestDatasetCreateComposed(t *testing.T) {
	r := newTestRouter(t)
	dsID := seedDatastream(t)
	scID := seedScene(t)

	ds := createDataset(t, r, gin.H{
		"name":    "nightly-train",
		"purpose": "training",
		"items": []gin.H{
			{"item_type": model.ItemKindDatastream, "item_id": dsID},
			{"item_type": model.ItemKindScene, "item_id": scID},
		},
	})
	assert.Equal(t, model.DatasetReady, ds.Status)
	assert.Equal(t, 1, ds.DatastreamCount)
	assert.Equal(t, 1, ds.SceneCount)
}

func TestDatasetCreateExternalFileRules(t *testing.T) {
	r := newTestRouter(t)

	// Missing file path.
	w, _ := doRequest(t, r, http.MethodPost, "/api/v1/datasets", gin.H{
		"name":        "export",
		"source_type": model.SourceExternalFile,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ds := createDataset(t, r, gin.H{
		"name":        "export",
		"source_type": model.SourceExternalFile,
		"file_path":   "/data/export.parquet",
		"file_format": "parquet",
	})
	assert.Equal(t, model.DatasetReady, ds.Status)

	// Items are rejected on a read-only dataset.
	w, _ = doRequest(t, r, http.MethodPost,
		fmt.Sprintf("/api/v1/datasets/%s/items", ds.ID), gin.H{
			"items": []gin.H{{"item_type": model.ItemKindScene, "item_id": uuid.New()}},
		})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDatasetDetailAndListing(t *testing.T) {
	r := newTestRouter(t)
	scID := seedScene(t)

	ds := createDataset(t, r, gin.H{
		"name":  "detail",
		"items": []gin.H{{"item_type": model.ItemKindScene, "item_id": scID}},
	})

	w, env := doRequest(t, r, http.MethodGet, "/api/v1/datasets/"+ds.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decodeData[struct {
		model.Dataset
		Items []struct {
			ItemType model.ItemKind `json:"item_type"`
			ItemID   uuid.UUID      `json:"item_id"`
		} `json:"items"`
	}](t, env)
	assert.Equal(t, "detail", detail.Name)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, scID, detail.Items[0].ItemID)

	createDataset(t, r, gin.H{"name": "other"})

	w, env = doRequest(t, r, http.MethodGet, "/api/v1/datasets?search=DET", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decodeData[struct {
		Datasets []model.Dataset `json:"datasets"`
		Total    int64           `json:"total"`
	}](t, env)
	assert.EqualValues(t, 1, page.Total)
	require.Len(t, page.Datasets, 1)
	assert.Equal(t, "detail", page.Datasets[0].Name)

	w, env = doRequest(t, r, http.MethodGet, "/api/v1/datasets/count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	count := decodeData[struct {
		Count int64 `json:"count"`
	}](t, env)
	assert.EqualValues(t, 2, count.Count)

	w, _ = doRequest(t, r, http.MethodGet, "/api/v1/datasets/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDatasetItemMutation(t *testing.T) {
	r := newTestRouter(t)
	scID := seedScene(t)
	ds := createDataset(t, r, gin.H{"name": "members"})

	itemsPath := fmt.Sprintf("/api/v1/datasets/%s/items", ds.ID)

	w, env := doRequest(t, r, http.MethodPost, itemsPath, gin.H{
		"items": []gin.H{{"item_type": model.ItemKindScene, "item_id": scID}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decodeData[model.Dataset](t, env).SceneCount)

	// Adding the same pair again conflicts and leaves the counters alone.
	w, _ = doRequest(t, r, http.MethodPost, itemsPath, gin.H{
		"items": []gin.H{{"item_type": model.ItemKindScene, "item_id": scID}},
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = doRequest(t, r, http.MethodGet, "/api/v1/datasets/"+ds.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decodeData[model.Dataset](t, env).SceneCount)

	w, env = doRequest(t, r, http.MethodDelete, itemsPath, gin.H{
		"items": []gin.H{{"item_type": model.ItemKindScene, "item_id": scID}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decodeData[model.Dataset](t, env).SceneCount)
}

func TestDatasetResolveEndpoint(t *testing.T) {
	r := newTestRouter(t)
	dsID := seedDatastream(t)
	scID := seedScene(t)

	inner := createDataset(t, r, gin.H{
		"name":  "inner",
		"items": []gin.H{{"item_type": model.ItemKindScene, "item_id": scID}},
	})
	outer := createDataset(t, r, gin.H{
		"name": "outer",
		"items": []gin.H{
			{"item_type": model.ItemKindDataset, "item_id": inner.ID},
			{"item_type": model.ItemKindDatastream, "item_id": dsID},
		},
	})

	type itemPage struct {
		Items []struct {
			ItemType model.ItemKind `json:"item_type"`
			ItemID   uuid.UUID      `json:"item_id"`
		} `json:"items"`
		Total int `json:"total"`
	}
	base := fmt.Sprintf("/api/v1/datasets/%s/items", outer.ID)

	w, env := doRequest(t, r, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decodeData[itemPage](t, env).Total)

	w, env = doRequest(t, r, http.MethodGet, base+"?resolve=leaf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	leaf := decodeData[itemPage](t, env)
	assert.Equal(t, 2, leaf.Total)
	for _, it := range leaf.Items {
		assert.NotEqual(t, model.ItemKindDataset, it.ItemType)
	}

	w, env = doRequest(t, r, http.MethodGet, base+"?resolve=all", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decodeData[itemPage](t, env).Total)

	w, env = doRequest(t, r, http.MethodGet,
		fmt.Sprintf("%s?resolve=leaf&item_type=%d", base, model.ItemKindScene), nil)
	require.Equal(t, http.StatusOK, w.Code)
	scenes := decodeData[itemPage](t, env)
	require.Equal(t, 1, scenes.Total)
	assert.Equal(t, scID, scenes.Items[0].ItemID)

	w, _ = doRequest(t, r, http.MethodGet, base+"?resolve=sideways", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doRequest(t, r, http.MethodGet, base+"?item_type=9", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDatasetUpdateAndDelete(t *testing.T) {
	r := newTestRouter(t)
	scID := seedScene(t)
	ds := createDataset(t, r, gin.H{
		"name":  "old-name",
		"items": []gin.H{{"item_type": model.ItemKindScene, "item_id": scID}},
	})

	w, env := doRequest(t, r, http.MethodPut, "/api/v1/datasets/"+ds.ID.String(), gin.H{
		"name":    "new-name",
		"purpose": "validation",
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decodeData[model.Dataset](t, env)
	assert.Equal(t, "new-name", updated.Name)
	assert.Equal(t, 1, updated.SceneCount)

	// Replacing items through the update endpoint.
	dsID := seedDatastream(t)
	w, env = doRequest(t, r, http.MethodPut, "/api/v1/datasets/"+ds.ID.String(), gin.H{
		"replace_items": []gin.H{{"item_type": model.ItemKindDatastream, "item_id": dsID}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated = decodeData[model.Dataset](t, env)
	assert.Equal(t, 0, updated.SceneCount)
	assert.Equal(t, 1, updated.DatastreamCount)

	// A follow-up replacement swaps the member set back.
	w, env = doRequest(t, r, http.MethodPut, "/api/v1/datasets/"+ds.ID.String(), gin.H{
		"replace_items": []gin.H{{"item_type": model.ItemKindScene, "item_id": scID}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated = decodeData[model.Dataset](t, env)
	assert.Equal(t, 1, updated.SceneCount)
	assert.Equal(t, 0, updated.DatastreamCount)

	w, _ = doRequest(t, r, http.MethodDelete, "/api/v1/datasets/"+ds.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = doRequest(t, r, http.MethodGet, "/api/v1/datasets/"+ds.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var members int64
	require.NoError(t, query.DB.Model(&model.DatasetMember{}).Count(&members).Error)
	assert.EqualValues(t, 0, members)
}

func TestDatasetCycleOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	x := createDataset(t, r, gin.H{"name": "x"})
	y := createDataset(t, r, gin.H{"name": "y"})

	w, _ := doRequest(t, r, http.MethodPost,
		fmt.Sprintf("/api/v1/datasets/%s/items", x.ID), gin.H{
			"items": []gin.H{{"item_type": model.ItemKindDataset, "item_id": y.ID}},
		})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = doRequest(t, r, http.MethodPost,
		fmt.Sprintf("/api/v1/datasets/%s/items", y.ID), gin.H{
			"items": []gin.H{{"item_type": model.ItemKindDataset, "item_id": x.ID}},
		})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
