package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"tcg_inventory_v1/internal/model"
	"tcg_inventory_v1/pkg/net"
	"tcg_inventory_v1/pkg/tcgid"
)

var (
	ErrMissingSKU      = errors.New("Missing SKU")
	ErrMissingFilename = errors.New("At least one filename is required.")
	ErrItemNotFound    = errors.New("inventory item not found")
)

// ==================== 接口定义 ====================

// TaxonomySource 类目属性来源，返回原始 JSON
type TaxonomySource interface {
	FetchAspects(ctx context.Context, categoryID string) ([]byte, error)
}

// InventoryStore 库存保存接口
type InventoryStore interface {
	CreateItem(ctx context.Context, payload model.SavePayload) (string, error)
	UpdateItem(ctx context.Context, sku string, payload model.SavePayload) error
}

// ItemLoader 读取已有库存记录 (编辑模式)
type ItemLoader interface {
	GetItem(ctx context.Context, sku string) (tcgid.InventoryItemResp, error)
}

// ==================== 实现 ====================

// InventoryAPIService 库存接口客户端
// 同时作为属性来源、上传目标签发、文件传输与保存接口
type InventoryAPIService struct {
	dispatcher net.Dispatcher
	logger     *zap.Logger
}

var (
	_ TaxonomySource  = (*InventoryAPIService)(nil)
	_ InventoryStore  = (*InventoryAPIService)(nil)
	_ ItemLoader      = (*InventoryAPIService)(nil)
	_ UploadURLIssuer = (*InventoryAPIService)(nil)
	_ ObjectTransfer  = (*InventoryAPIService)(nil)
)

func NewInventoryAPIService(dispatcher net.Dispatcher, logger *zap.Logger) *InventoryAPIService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryAPIService{dispatcher: dispatcher, logger: logger}
}

// FetchAspects GET /ebay/aspects?category_id=...
func (s *InventoryAPIService) FetchAspects(ctx context.Context, categoryID string) ([]byte, error) {
	if categoryID == "" {
		categoryID = model.DefaultCategoryID
	}
	resp, err := s.dispatcher.Send(ctx, "taxonomy.aspects", &net.Request{
		Method: http.MethodGet,
		Path:   "/ebay/aspects",
		Query:  url.Values{"category_id": []string{categoryID}},
	})
	if err != nil {
		return nil, err
	}
	// 响应可能包在 data 中，也可能直接是属性对象
	if len(resp.Envelope.Data) > 0 && string(resp.Envelope.Data) != "null" {
		return resp.Envelope.Data, nil
	}
	return resp.Raw, nil
}

// IssueUploadDestination PUT /inventory/{sku}/upload?filename=...
// 返回 nil 表示响应中没有对应的上传定义
func (s *InventoryAPIService) IssueUploadDestination(ctx context.Context, sku, filename string) (*model.UploadDestination, error) {
	if sku == "" {
		return nil, ErrMissingSKU
	}
	if filename == "" {
		return nil, ErrMissingFilename
	}

	resp, err := s.dispatcher.Send(ctx, "inventory.upload_url", &net.Request{
		Method: http.MethodPut,
		Path:   "/inventory/" + url.PathEscape(sku) + "/upload",
		Query:  url.Values{"filename": []string{filename}},
	})
	if err != nil {
		if err.Error() == "" {
			return nil, errors.New("Failed to request upload URLs.")
		}
		return nil, err
	}

	var data tcgid.UploadURLData
	if len(resp.Envelope.Data) > 0 {
		if err := json.Unmarshal(resp.Envelope.Data, &data); err != nil {
			s.logger.Warn("unexpected upload url payload", zap.String("sku", sku), zap.Error(err))
			return nil, nil
		}
	}

	defs := data[sku]
	if defs == nil && len(data) > 0 {
		keys := make([]string, 0, len(data))
		for k := range data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		defs = data[keys[0]]
	}
	if len(defs) == 0 || defs[0].PresignedURL == "" {
		return nil, nil
	}
	return &model.UploadDestination{
		PresignedURL:    defs[0].PresignedURL,
		DestinationURLs: defs[0].DestinationURLs,
	}, nil
}

// Transfer 向预签名地址 PUT 文件内容
func (s *InventoryAPIService) Transfer(ctx context.Context, presignedURL string, file *model.LocalFile) error {
	if presignedURL == "" || file == nil {
		return &net.APIError{Status: http.StatusBadRequest, Message: "Missing upload parameters."}
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return s.dispatcher.PutObject(ctx, presignedURL, contentType, file.Data)
}

// CreateItem POST /inventory，返回新 SKU
func (s *InventoryAPIService) CreateItem(ctx context.Context, payload model.SavePayload) (string, error) {
	resp, err := s.dispatcher.Send(ctx, "inventory.create", &net.Request{
		Method:  http.MethodPost,
		Path:    "/inventory",
		Body:    payload,
		NoRetry: true,
	})
	if err != nil {
		return "", err
	}

	var data tcgid.CreateItemData
	if len(resp.Envelope.Data) > 0 {
		_ = json.Unmarshal(resp.Envelope.Data, &data)
	}
	if strings.TrimSpace(data.SKU) == "" {
		return "", errors.New("Inventory item created but no SKU was returned.")
	}
	s.logger.Info("inventory item created", zap.String("sku", data.SKU))
	return data.SKU, nil
}

// UpdateItem POST /inventory/{sku}
func (s *InventoryAPIService) UpdateItem(ctx context.Context, sku string, payload model.SavePayload) error {
	if sku == "" {
		return ErrMissingSKU
	}
	_, err := s.dispatcher.Send(ctx, "inventory.update", &net.Request{
		Method: http.MethodPost,
		Path:   "/inventory/" + url.PathEscape(sku),
		Body:   payload,
	})
	return err
}

// GetItem GET /inventory/{sku}
func (s *InventoryAPIService) GetItem(ctx context.Context, sku string) (tcgid.InventoryItemResp, error) {
	if sku == "" {
		return nil, ErrMissingSKU
	}
	resp, err := s.dispatcher.Send(ctx, "inventory.get", &net.Request{
		Method: http.MethodGet,
		Path:   "/inventory/" + url.PathEscape(sku),
	})
	if err != nil {
		var apiErr *net.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, sku)
		}
		return nil, err
	}

	var item tcgid.InventoryItemResp
	if len(resp.Envelope.Data) > 0 {
		if err := json.Unmarshal(resp.Envelope.Data, &item); err != nil {
			return nil, fmt.Errorf("解析库存记录失败: %w", err)
		}
	}
	if len(item) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, sku)
	}
	return item, nil
}
