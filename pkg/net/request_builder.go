package net

import (
	"context"

	"github.com/go-resty/resty/v2"

	"tcg_inventory_v1/pkg/tcgid"
)

// BuildAPIRequest 通用库存接口请求构建器
// 职责：统一封装鉴权头 (x-authorization-token) 和标准头 (Accept, Content-Type)
// 仅在有请求体时设置 JSON Content-Type
func BuildAPIRequest(ctx context.Context, client *resty.Client, token string, body any) *resty.Request {
	req := client.R().
		SetContext(ctx).
		SetHeader(tcgid.TokenHeader, token).
		SetHeader("Accept", "application/json")

	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	return req
}

// BuildObjectPutRequest 预签名地址上传请求
// 预签名地址自带鉴权，不附加 token
func BuildObjectPutRequest(ctx context.Context, client *resty.Client, contentType string, data []byte) *resty.Request {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(data)
}
