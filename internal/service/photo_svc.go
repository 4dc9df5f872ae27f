package service

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"bluberry_store_v1/internal/model"
	"bluberry_store_v1/pkg/utils"
)

// PreviewStore 预览图存储
type PreviewStore interface {
	SavePreview(ctx context.Context, sessionKey string, data []byte) (key, url string, err error)
	Delete(ctx context.Context, key string) error
}

// PhotoUpload 一张待处理的上传文件
type PhotoUpload struct {
	FileName string
	MimeType string
	Data     []byte
}

// PhotoOptions 图片处理参数
type PhotoOptions struct {
	MaxBytes     int64
	ThumbnailMax int
	Workers      int
}

// PhotoService 图片校验、编码与预览管理
type PhotoService struct {
	store PreviewStore
	opts  PhotoOptions
}

// NewPhotoService 创建图片服务
func NewPhotoService(store PreviewStore, opts PhotoOptions) *PhotoService {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 5 * 1024 * 1024
	}
	if opts.ThumbnailMax <= 0 {
		opts.ThumbnailMax = 512
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &PhotoService{store: store, opts: opts}
}

type photoResult struct {
	asset  *model.PhotoAsset
	notice *Notice
}

// Prepare 校验并并发编码上传文件
// 单个文件失败只产生提示，不影响其余文件；返回顺序与输入一致
func (s *PhotoService) Prepare(ctx context.Context, sessionKey string, files []PhotoUpload) ([]*model.PhotoAsset, []Notice) {
	results := make([]photoResult, len(files))

	p := pool.New().WithMaxGoroutines(s.opts.Workers)
	for i := range files {
		p.Go(func() {
			results[i] = s.process(ctx, sessionKey, files[i])
		})
	}
	p.Wait()

	var (
		assets  []*model.PhotoAsset
		notices []Notice
	)
	for _, r := range results {
		if r.notice != nil {
			notices = append(notices, *r.notice)
		}
		if r.asset != nil {
			assets = append(assets, r.asset)
		}
	}
	return assets, notices
}

func (s *PhotoService) process(ctx context.Context, sessionKey string, f PhotoUpload) photoResult {
	mimeType := strings.ToLower(strings.TrimSpace(f.MimeType))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(f.Data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		n := warn("Invalid File", "Please upload only image files.")
		return photoResult{notice: &n}
	}
	if int64(len(f.Data)) > s.opts.MaxBytes {
		n := warn("File Too Large", "Please upload images smaller than 5MB.")
		return photoResult{notice: &n}
	}

	asset := &model.PhotoAsset{
		AssetKey:    "photo-" + uuid.New().String(),
		FileName:    f.FileName,
		MimeType:    mimeType,
		SizeBytes:   int64(len(f.Data)),
		UploadState: model.PhotoStateUploading,
	}

	fail := func(err error) photoResult {
		zap.L().Warn("图片处理失败",
			zap.String("session", sessionKey),
			zap.String("file", f.FileName),
			zap.Error(err))
		n := warn("Upload Error", "Failed to process image.")
		return photoResult{notice: &n}
	}

	// HEIC、SVG 等无法解码的格式照常接收，只是没有预览图
	thumb, err := utils.MakeThumbnail(f.Data, s.opts.ThumbnailMax)
	if err != nil {
		zap.L().Info("无法生成预览图，跳过",
			zap.String("session", sessionKey),
			zap.String("file", f.FileName),
			zap.String("mime", mimeType),
			zap.Error(err))
	} else {
		key, url, err := s.store.SavePreview(ctx, sessionKey, thumb)
		if err != nil {
			return fail(err)
		}
		asset.PreviewKey = key
		asset.PreviewURL = url
	}

	asset.EncodedContent = utils.DataURL(mimeType, f.Data)
	asset.UploadState = model.PhotoStateUploaded
	return photoResult{asset: asset}
}

// Release 释放不再被引用的图片预览
func (s *PhotoService) Release(ctx context.Context, assets []model.PhotoAsset) {
	for _, a := range assets {
		if a.PreviewKey == "" {
			continue
		}
		if err := s.store.Delete(ctx, a.PreviewKey); err != nil {
			zap.L().Warn("释放预览图失败", zap.String("asset", a.AssetKey), zap.Error(err))
		}
	}
}

// Discard 丢弃尚未入库的图片预览
func (s *PhotoService) Discard(ctx context.Context, assets []*model.PhotoAsset) {
	for _, a := range assets {
		if a.PreviewKey == "" {
			continue
		}
		if err := s.store.Delete(ctx, a.PreviewKey); err != nil {
			zap.L().Warn("丢弃预览图失败", zap.String("asset", a.AssetKey), zap.Error(err))
		}
	}
}
