package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tcg_inventory_v1/internal/model"
	"tcg_inventory_v1/pkg/net"
)

func newTestAPIService(t *testing.T, handler http.HandlerFunc) (*InventoryAPIService, context.Context) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	d := net.NewDispatcher(net.DispatcherConfig{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		Resilience: net.ResilienceConfig{
			RetryMaxAttempts:    1,
			RetryInitialBackoff: time.Millisecond,
			RetryMaxBackoff:     time.Millisecond,
		},
	}, net.NewContextCredentials(""), nil)

	return NewInventoryAPIService(d, nil), net.WithToken(context.Background(), "tok")
}

func TestInventoryAPI_IssueUploadDestination(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantNil    bool
		wantMaster string
	}{
		{"按 SKU 取定义", `{"success":true,"data":{"SKU-1":[{"presigned_url":"https://s3/put","destination_urls":{"MASTER":"https://cdn/a/master.png"}}]}}`, false, "https://cdn/a/master.png"},
		{"SKU 不匹配取第一个键", `{"data":{"other":[{"presigned_url":"https://s3/put","destination_urls":{"master":"https://cdn/b/master.png"}}]}}`, false, "https://cdn/b/master.png"},
		{"无定义", `{"data":{"SKU-1":[]}}`, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, ctx := newTestAPIService(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPut, r.Method)
				assert.Equal(t, "/inventory/SKU-1/upload", r.URL.Path)
				assert.Equal(t, "card.png", r.URL.Query().Get("filename"))
				_, _ = io.WriteString(w, tt.body)
			})

			dest, err := svc.IssueUploadDestination(ctx, "SKU-1", "card.png")
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, dest)
				return
			}
			require.NotNil(t, dest)
			assert.Equal(t, "https://s3/put", dest.PresignedURL)
			assert.Equal(t, tt.wantMaster, dest.MasterURL())
		})
	}
}

func TestInventoryAPI_CreateAndUpdate(t *testing.T) {
	var created model.SavePayload
	svc, ctx := newTestAPIService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/inventory":
			_ = json.NewDecoder(r.Body).Decode(&created)
			_, _ = io.WriteString(w, `{"success":true,"data":{"sku":"SKU-NEW"}}`)
		case "/inventory/SKU-NEW":
			assert.Equal(t, http.MethodPost, r.Method)
			_, _ = io.WriteString(w, `{"success":true}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	payload := BuildPayload(validValues(), nil, nil, nil)
	sku, err := svc.CreateItem(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, "SKU-NEW", sku)
	assert.Equal(t, "Charizard Holo", created.Product.Title)
	assert.Equal(t, 1, created.Availability.ShipToLocationAvailability.Quantity)

	assert.NoError(t, svc.UpdateItem(ctx, "SKU-NEW", payload))
	assert.ErrorIs(t, svc.UpdateItem(ctx, "", payload), ErrMissingSKU)
}

func TestInventoryAPI_CreateNotRetried(t *testing.T) {
	var creates, updates int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/inventory" {
			atomic.AddInt32(&creates, 1)
		} else {
			atomic.AddInt32(&updates, 1)
		}
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `{"success":false}`)
	}))
	t.Cleanup(srv.Close)

	d := net.NewDispatcher(net.DispatcherConfig{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		Resilience: net.ResilienceConfig{
			RetryMaxAttempts:    3,
			RetryInitialBackoff: time.Millisecond,
			RetryMaxBackoff:     time.Millisecond,
		},
	}, net.NewContextCredentials("tok"), nil)
	svc := NewInventoryAPIService(d, nil)

	_, err := svc.CreateItem(context.Background(), BuildPayload(validValues(), nil, nil, nil))
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&creates), "创建失败后不应自动重发")

	// 更新按 SKU 覆盖，可重试
	assert.Error(t, svc.UpdateItem(context.Background(), "SKU-1", model.SavePayload{}))
	assert.Equal(t, int32(3), atomic.LoadInt32(&updates))
}

func TestInventoryAPI_CreateWithoutSKU(t *testing.T) {
	svc, ctx := newTestAPIService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":{}}`)
	})

	_, err := svc.CreateItem(ctx, model.SavePayload{})
	require.Error(t, err)
	assert.Equal(t, "Inventory item created but no SKU was returned.", err.Error())
}

func TestInventoryAPI_GetItem(t *testing.T) {
	svc, ctx := newTestAPIService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/inventory/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"data":{"sku":"SKU-1","title":"Pikachu"}}`)
	})

	item, err := svc.GetItem(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, "Pikachu", item["title"])

	_, err = svc.GetItem(ctx, "missing")
	assert.True(t, errors.Is(err, ErrItemNotFound))
}

func TestInventoryAPI_Transfer(t *testing.T) {
	var gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	svc, ctx := newTestAPIService(t, func(w http.ResponseWriter, r *http.Request) {})

	err := svc.Transfer(ctx, srv.URL+"/put", &model.LocalFile{Name: "a.webp", ContentType: "image/webp", Data: []byte("webp")})
	require.NoError(t, err)
	assert.Equal(t, "image/webp", gotType)
	assert.Equal(t, "webp", string(gotBody))

	err = svc.Transfer(ctx, "", nil)
	assert.EqualError(t, err, "Missing upload parameters.")
}

func TestInventoryAPI_FetchAspects(t *testing.T) {
	svc, ctx := newTestAPIService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "183454", r.URL.Query().Get("category_id"))
		_, _ = io.WriteString(w, `{"success":true,"data":`+testTaxonomyJSON+`}`)
	})

	raw, err := svc.FetchAspects(ctx, "")
	require.NoError(t, err)

	schema, err := NewSchemaCache().Schema(model.DefaultCategoryID, raw)
	require.NoError(t, err)
	assert.Len(t, schema.Fields, 4)
}
