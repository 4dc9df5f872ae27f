package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"bluberry_store_v1/internal/config"
)

// ==================== 接口定义 ====================

// StorageProvider 存储提供者接口
type StorageProvider interface {
	// Put 写入对象，返回公开访问URL
	Put(ctx context.Context, key string, data []byte, contentType string) (url string, err error)

	// Delete 删除对象，对象不存在不算错误
	Delete(ctx context.Context, key string) error
}

// ==================== 工厂方法 ====================

func NewStorageProvider(cfg config.StorageConfig) (StorageProvider, error) {
	switch cfg.Provider {
	case "s3":
		return NewS3Storage(cfg)
	case "local", "":
		return NewLocalStorage(cfg)
	default:
		return nil, fmt.Errorf("不支持的存储提供者: %s", cfg.Provider)
	}
}

// ==================== StorageService ====================

// StorageService 图片预览存储
type StorageService struct {
	provider StorageProvider
	basePath string
}

// NewStorageService 创建存储服务
func NewStorageService(provider StorageProvider, basePath string) *StorageService {
	return &StorageService{provider: provider, basePath: strings.Trim(basePath, "/")}
}

// PreviewKey 预览图对象键：previews/<会话>/<uuid>.jpg
func (s *StorageService) PreviewKey(sessionKey string) string {
	return path.Join("previews", sessionKey, uuid.New().String()+".jpg")
}

// SavePreview 保存预览图，返回对象键与访问地址
func (s *StorageService) SavePreview(ctx context.Context, sessionKey string, data []byte) (key, url string, err error) {
	key = s.PreviewKey(sessionKey)
	url, err = s.provider.Put(ctx, key, data, "image/jpeg")
	if err != nil {
		return "", "", fmt.Errorf("保存预览图失败: %w", err)
	}
	return key, url, nil
}

// Delete 删除对象
func (s *StorageService) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return s.provider.Delete(ctx, key)
}

// ==================== S3 实现 ====================

type S3Storage struct {
	client    *s3.Client
	bucket    string
	region    string
	endpoint  string
	cdnDomain string
	basePath  string
}

// NewS3Storage 创建 S3 存储；配置 endpoint 时按兼容协议走 path-style
func NewS3Storage(cfg config.StorageConfig) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage.bucket 不能为空")
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("加载AWS配置失败: %w", err)
	}

	endpoint := ""
	if strings.HasPrefix(cfg.Endpoint, "http") {
		endpoint = strings.TrimRight(cfg.Endpoint, "/")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{
		client:    client,
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		endpoint:  endpoint,
		cdnDomain: cfg.CDNDomain,
		basePath:  strings.Trim(cfg.BasePath, "/"),
	}, nil
}

func (s *S3Storage) objectKey(key string) string {
	if s.basePath == "" || strings.HasPrefix(s.basePath, ".") {
		return key
	}
	return s.basePath + "/" + key
}

func (s *S3Storage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	objKey := s.objectKey(key)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("上传S3失败: %w", err)
	}
	return s.publicURL(objKey), nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("删除S3对象失败: %w", err)
	}
	return nil
}

func (s *S3Storage) publicURL(key string) string {
	switch {
	case s.cdnDomain != "":
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, key)
	case s.endpoint != "":
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	}
}

// ==================== 本地存储 ====================

type LocalStorage struct {
	basePath string
	baseURL  string
}

func NewLocalStorage(cfg config.StorageConfig) (*LocalStorage, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "./uploads"
	}
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = "/uploads"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("创建本地存储目录失败: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

// Root 本地文件根目录，供路由挂载静态文件
func (s *LocalStorage) Root() string {
	return s.basePath
}

func (s *LocalStorage) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	full, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("创建目录失败: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("写入文件失败: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

func (s *LocalStorage) Delete(_ context.Context, key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("删除文件失败: %w", err)
	}
	return nil
}

// resolve 防止 key 逃出根目录
func (s *LocalStorage) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("无效的对象键: %q", key)
	}
	return filepath.Join(s.basePath, filepath.FromSlash(clean)), nil
}
