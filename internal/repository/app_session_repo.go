package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"bluberry_store_v1/internal/model"
)

// AppSessionRepository 登录会话仓储接口
type AppSessionRepository interface {
	Create(ctx context.Context, session *model.AppSession) error
	GetByKey(ctx context.Context, key string) (*model.AppSession, error)
	Update(ctx context.Context, session *model.AppSession) error
	UpdateTokens(ctx context.Context, key, access, refresh string) error
	Delete(ctx context.Context, key string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type appSessionRepo struct {
	db *gorm.DB
}

// NewAppSessionRepository 创建登录会话仓储
func NewAppSessionRepository(db *gorm.DB) AppSessionRepository {
	return &appSessionRepo{db: db}
}

func (r *appSessionRepo) Create(ctx context.Context, session *model.AppSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *appSessionRepo) GetByKey(ctx context.Context, key string) (*model.AppSession, error) {
	var session model.AppSession
	if err := r.db.WithContext(ctx).Where("session_key = ?", key).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *appSessionRepo) Update(ctx context.Context, session *model.AppSession) error {
	return r.db.WithContext(ctx).Save(session).Error
}

// UpdateTokens 刷新后写回令牌
func (r *appSessionRepo) UpdateTokens(ctx context.Context, key, access, refresh string) error {
	return r.db.WithContext(ctx).
		Model(&model.AppSession{}).
		Where("session_key = ?", key).
		Updates(map[string]interface{}{
			"access_token":  access,
			"refresh_token": refresh,
		}).Error
}

// Delete 物理删除，注销后令牌不保留
func (r *appSessionRepo) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Unscoped().Where("session_key = ?", key).Delete(&model.AppSession{}).Error
}

// DeleteExpired 删除过期会话，返回删除条数
func (r *appSessionRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Unscoped().Where("expires_at < ?", before).Delete(&model.AppSession{})
	return result.RowsAffected, result.Error
}
