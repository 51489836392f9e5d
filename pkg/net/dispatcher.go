package net

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"tcg_inventory_v1/pkg/tcgid"
)

// ==================== 错误定义 ====================

var (
	ErrUnauthorized   = errors.New(tcgid.SignInRequiredMsg)
	ErrDemoRestricted = errors.New(tcgid.DemoUserToastMessage)
)

// APIError 远程接口错误，Message 可直接展示给用户
type APIError struct {
	Status         int
	Message        string
	Payload        []byte
	DemoRestricted bool
}

func (e *APIError) Error() string {
	return e.Message
}

// Is 支持 errors.Is(err, ErrUnauthorized / ErrDemoRestricted)
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrDemoRestricted:
		return e.DemoRestricted
	}
	return false
}

// transportError 网络层错误 (可重试)
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// ==================== 接口定义 ====================

// Request 库存接口请求
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	// NoRetry 非幂等请求 (如创建) 只发送一次
	NoRetry bool
}

// Response 已通过 success 校验的响应
type Response struct {
	Status   int
	Envelope tcgid.Envelope
	Raw      []byte
}

// Dispatcher 网络调度器 (通用组件)
type Dispatcher interface {
	// Send 发送带鉴权的库存接口请求
	// operation: 操作名，用于熔断隔离与日志
	Send(ctx context.Context, operation string, req *Request) (*Response, error)

	// PutObject 向预签名地址上传文件
	PutObject(ctx context.Context, presignedURL, contentType string, data []byte) error
}

// DispatcherConfig 调度器配置
type DispatcherConfig struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	Resilience    ResilienceConfig
	Debug         bool
}

// httpDispatcher 是 Dispatcher 接口的具体实现
// 注意：它是私有的，外部只能通过 NewDispatcher 获取接口
type httpDispatcher struct {
	client      *resty.Client
	credentials CredentialProvider
	limiter     *rate.Limiter
	exec        *executor
	logger      *zap.Logger
}

var _ Dispatcher = (*httpDispatcher)(nil)

func NewDispatcher(cfg DispatcherConfig, credentials CredentialProvider, logger *zap.Logger) Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = tcgid.DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetDebug(cfg.Debug).
		SetHeader("User-Agent", "TCG-Inventory-Workbench/1.0")

	return &httpDispatcher{
		client:      client,
		credentials: credentials,
		limiter:     rate.NewLimiter(limit, burst),
		exec:        newExecutor(cfg.Resilience, logger),
		logger:      logger,
	}
}

// Send 发送请求 (自动处理限流、重试与熔断)
func (d *httpDispatcher) Send(ctx context.Context, operation string, req *Request) (*Response, error) {
	token := ""
	if d.credentials != nil {
		t, err := d.credentials.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("credential provider error: %w", err)
		}
		token = t
	}
	if token == "" {
		return nil, &APIError{Status: http.StatusUnauthorized, Message: tcgid.SignInRequiredMsg}
	}

	var out *Response
	err := d.exec.execute(ctx, operation, func(ctx context.Context) error {
		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}

		r := BuildAPIRequest(ctx, d.client, token, req.Body)
		if len(req.Query) > 0 {
			r.SetQueryParamsFromValues(req.Query)
		}
		raw, err := r.Execute(req.Method, req.Path)
		if err != nil {
			return &transportError{err: err}
		}

		resp, err := parseResponse(raw.StatusCode(), raw.Body())
		if err != nil {
			return err
		}
		out = resp
		return nil
	}, requestClassifier(req))

	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized && d.credentials != nil {
			d.credentials.ReportUnauthorized(ctx)
		}
		d.logger.Debug("api request failed",
			zap.String("operation", operation),
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Error(err),
		)
		return nil, err
	}
	return out, nil
}

// PutObject 上传文件，Content-Type 原样转发
func (d *httpDispatcher) PutObject(ctx context.Context, presignedURL, contentType string, data []byte) error {
	if presignedURL == "" {
		return &APIError{Status: http.StatusBadRequest, Message: "Missing upload parameters."}
	}

	return d.exec.execute(ctx, "object.put", func(ctx context.Context) error {
		raw, err := BuildObjectPutRequest(ctx, d.client, contentType, data).Put(presignedURL)
		if err != nil {
			return &transportError{err: err}
		}
		if raw.IsSuccess() {
			return nil
		}

		msg := fmt.Sprintf("Upload failed with status %d", raw.StatusCode())
		var env tcgid.Envelope
		if json.Unmarshal(raw.Body(), &env) == nil {
			if s := env.DataString(); s != "" {
				msg = s
			}
		}
		return &APIError{Status: raw.StatusCode(), Message: msg, Payload: raw.Body()}
	}, classifyError)
}

// ==================== 工具函数 ====================

// parseResponse 校验 HTTP 状态与 success 字段
func parseResponse(status int, body []byte) (*Response, error) {
	resp := &Response{Status: status, Raw: body}

	isJSON := len(body) > 0 && json.Unmarshal(body, &resp.Envelope) == nil
	ok := status >= 200 && status < 300
	if ok && !resp.Envelope.Failed() {
		return resp, nil
	}

	text := ""
	if isJSON {
		text = resp.Envelope.DataString()
		if text == "" {
			text = resp.Envelope.Message
		}
	} else {
		text = strings.TrimSpace(string(body))
	}

	if status == http.StatusForbidden && text == tcgid.DemoUserAPIMessage {
		return nil, &APIError{Status: status, Message: tcgid.DemoUserToastMessage, Payload: body, DemoRestricted: true}
	}

	msg := ""
	if isJSON {
		msg = text
	}
	if msg == "" {
		msg = fmt.Sprintf("Request failed with status %d", status)
	}
	return nil, &APIError{Status: status, Message: msg, Payload: body}
}

// requestClassifier 非幂等请求仍计入熔断，但不重试
func requestClassifier(req *Request) ErrorClassifier {
	if !req.NoRetry {
		return classifyError
	}
	return func(err error) ErrorClass {
		class := classifyError(err)
		class.Retryable = false
		return class
	}
}

func classifyError(err error) ErrorClass {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorClass{}
	}

	var te *transportError
	if errors.As(err, &te) {
		return ErrorClass{Retryable: true, RecordFailure: true}
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusTooManyRequests:
			return ErrorClass{Retryable: true, RecordFailure: false}
		case apiErr.Status >= 500:
			return ErrorClass{Retryable: true, RecordFailure: true}
		}
	}
	return ErrorClass{}
}
