package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"tcg_inventory_v1/internal/model"
)

// ==================== 接口定义 ====================

// PresignAPI 预签名能力 (s3.PresignClient)
type PresignAPI interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// ==================== 配置 ====================

type StorageConfig struct {
	Provider  string // "s3" | "cos"
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string // 自定义端点 (腾讯云COS等)
	CDNDomain string // CDN域名 (可选)
	BasePath  string // 基础路径前缀
	URLExpiry time.Duration
}

// ==================== 工厂方法 ====================

// NewStorageUploadIssuer 自建存储签发上传目标
// 上传地址为对象存储预签名 PUT，尺寸图地址由 CDN 按 /<size>.<ext> 约定提供
func NewStorageUploadIssuer(cfg StorageConfig) (*StorageUploadIssuer, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("存储桶未配置")
	}
	switch cfg.Provider {
	case "", "s3":
		client, err := newS3Client(cfg, "")
		if err != nil {
			return nil, err
		}
		return newStorageUploadIssuer(cfg, s3.NewPresignClient(client), s3PublicHost(cfg)), nil
	case "cos":
		// COS兼容S3协议
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = fmt.Sprintf("https://cos.%s.myqcloud.com", cfg.Region)
		}
		client, err := newS3Client(cfg, endpoint)
		if err != nil {
			return nil, err
		}
		return newStorageUploadIssuer(cfg, s3.NewPresignClient(client), fmt.Sprintf("%s.cos.%s.myqcloud.com", cfg.Bucket, cfg.Region)), nil
	default:
		return nil, fmt.Errorf("不支持的存储提供者: %s", cfg.Provider)
	}
}

func newS3Client(cfg StorageConfig, endpoint string) (*s3.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("加载存储配置失败: %v", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func s3PublicHost(cfg StorageConfig) string {
	return fmt.Sprintf("%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
}

// ==================== 实现 ====================

// StorageUploadIssuer 基于对象存储预签名的上传目标签发
type StorageUploadIssuer struct {
	presign    PresignAPI
	bucket     string
	publicHost string
	cdnDomain  string
	basePath   string
	expiry     time.Duration
}

var _ UploadURLIssuer = (*StorageUploadIssuer)(nil)

func newStorageUploadIssuer(cfg StorageConfig, presign PresignAPI, publicHost string) *StorageUploadIssuer {
	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &StorageUploadIssuer{
		presign:    presign,
		bucket:     cfg.Bucket,
		publicHost: publicHost,
		cdnDomain:  cfg.CDNDomain,
		basePath:   strings.Trim(cfg.BasePath, "/"),
		expiry:     expiry,
	}
}

// IssueUploadDestination 为单个文件签发 PUT 地址
func (s *StorageUploadIssuer) IssueUploadDestination(ctx context.Context, sku, filename string) (*model.UploadDestination, error) {
	if sku == "" {
		return nil, ErrMissingSKU
	}
	if filename == "" {
		return nil, ErrMissingFilename
	}

	key := s.generateKey(sku, filename)
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return nil, fmt.Errorf("签发上传地址失败: %w", err)
	}

	master := s.getPublicURL(key)
	destinations := make(map[string]string, len(model.ImageSizes))
	for _, size := range model.ImageSizes {
		destinations[size] = model.BuildSizedImageURL(master, size)
	}

	return &model.UploadDestination{
		PresignedURL:    req.URL,
		DestinationURLs: destinations,
	}, nil
}

// generateKey <base>/<sku>/<文件名去扩展>/master.<ext>
func (s *StorageUploadIssuer) generateKey(sku, filename string) string {
	ext := path.Ext(filename)
	if ext == "" {
		ext = ".jpg"
	}
	stem := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	key := path.Join(sku, stem, model.ImageSizeMaster+strings.ToLower(ext))
	if s.basePath != "" {
		return s.basePath + "/" + key
	}
	return key
}

func (s *StorageUploadIssuer) getPublicURL(key string) string {
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, key)
	}
	return fmt.Sprintf("https://%s/%s", s.publicHost, key)
}
