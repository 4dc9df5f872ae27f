package repository

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bluberry_store_v1/internal/model"
)

// ==================== 仓储接口 ====================

// WizardSessionRepository 向导会话仓储接口
type WizardSessionRepository interface {
	Create(ctx context.Context, session *model.WizardSession) error
	GetByKey(ctx context.Context, key string) (*model.WizardSession, error)
	Update(ctx context.Context, session *model.WizardSession) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error

	// 过期清理相关
	FindIdle(ctx context.Context, before time.Time, limit int) ([]*model.WizardSession, error)
	MarkExpired(ctx context.Context, id int64) error
}

// WizardItemRepository 向导物品仓储接口
type WizardItemRepository interface {
	Create(ctx context.Context, item *model.WizardItem) error
	CreateBatch(ctx context.Context, items []*model.WizardItem) error
	Update(ctx context.Context, item *model.WizardItem) error
	Delete(ctx context.Context, id int64) error
	ListBySession(ctx context.Context, sessionID int64) ([]model.WizardItem, error)
	MaxPosition(ctx context.Context, sessionID int64) (int, error)
	ClearEstimates(ctx context.Context, sessionID int64) error
	SaveEstimate(ctx context.Context, item *model.WizardItem) error
	DeleteBySession(ctx context.Context, sessionID int64) error
}

// PhotoRepository 图片仓储接口
type PhotoRepository interface {
	CreateAsset(ctx context.Context, asset *model.PhotoAsset) error
	UpdateAsset(ctx context.Context, asset *model.PhotoAsset) error
	DeleteAssets(ctx context.Context, ids []int64) error
	ListAssetsBySession(ctx context.Context, sessionID int64) ([]model.PhotoAsset, error)

	CreateLinks(ctx context.Context, links []model.ItemPhoto) error
	GetLink(ctx context.Context, itemID, linkID int64) (*model.ItemPhoto, error)
	DeleteLink(ctx context.Context, linkID int64) error
	DeleteLinksByItem(ctx context.Context, itemID int64) ([]int64, error)
	MaxLinkPosition(ctx context.Context, itemID int64) (int, error)

	// OrphanAssets 返回 ids 中已没有任何物品引用的图片
	OrphanAssets(ctx context.Context, ids []int64) ([]model.PhotoAsset, error)
}

// ==================== WizardSession 仓储实现 ====================

type wizardSessionRepo struct {
	db *gorm.DB
}

// NewWizardSessionRepository 创建向导会话仓储
func NewWizardSessionRepository(db *gorm.DB) WizardSessionRepository {
	return &wizardSessionRepo{db: db}
}

func (r *wizardSessionRepo) Create(ctx context.Context, session *model.WizardSession) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(session).Error
}

// GetByKey 按会话键加载，含物品与图片
func (r *wizardSessionRepo) GetByKey(ctx context.Context, key string) (*model.WizardSession, error) {
	var session model.WizardSession
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Preload("Items.Photos", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Preload("Items.Photos.Asset").
		Where("session_key = ?", key).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *wizardSessionRepo) Update(ctx context.Context, session *model.WizardSession) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(session).Error
}

func (r *wizardSessionRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.WizardSession{}).Where("id = ?", id).Updates(fields).Error
}

// FindIdle 查找长时间未活动且未结束的会话
func (r *wizardSessionRepo) FindIdle(ctx context.Context, before time.Time, limit int) ([]*model.WizardSession, error) {
	var sessions []*model.WizardSession
	query := r.db.WithContext(ctx).
		Where("last_active_at < ? AND stage IN ?", before, []string{model.WizardStageItems, model.WizardStageContact}).
		Order("last_active_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&sessions).Error
	return sessions, err
}

// MarkExpired 标记会话为过期
func (r *wizardSessionRepo) MarkExpired(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.WizardSession{}).
		Where("id = ?", id).
		Update("stage", model.WizardStageExpired).Error
}

// ==================== WizardItem 仓储实现 ====================

type wizardItemRepo struct {
	db *gorm.DB
}

// NewWizardItemRepository 创建向导物品仓储
func NewWizardItemRepository(db *gorm.DB) WizardItemRepository {
	return &wizardItemRepo{db: db}
}

func (r *wizardItemRepo) Create(ctx context.Context, item *model.WizardItem) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error
}

func (r *wizardItemRepo) CreateBatch(ctx context.Context, items []*model.WizardItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&items).Error
}

func (r *wizardItemRepo) Update(ctx context.Context, item *model.WizardItem) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(item).Error
}

func (r *wizardItemRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.WizardItem{}, id).Error
}

func (r *wizardItemRepo) ListBySession(ctx context.Context, sessionID int64) ([]model.WizardItem, error) {
	var items []model.WizardItem
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("position ASC, id ASC").
		Find(&items).Error
	return items, err
}

func (r *wizardItemRepo) MaxPosition(ctx context.Context, sessionID int64) (int, error) {
	var pos sql.NullInt64
	err := r.db.WithContext(ctx).
		Model(&model.WizardItem{}).
		Where("session_id = ?", sessionID).
		Select("MAX(position)").
		Row().Scan(&pos)
	if err != nil || !pos.Valid {
		return -1, err
	}
	return int(pos.Int64), nil
}

// ClearEstimates 清空会话下所有物品的估价结果
func (r *wizardItemRepo) ClearEstimates(ctx context.Context, sessionID int64) error {
	return r.db.WithContext(ctx).
		Model(&model.WizardItem{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"temp_product_id":     nil,
			"estimate_price":      "",
			"estimate_min":        0,
			"estimate_max":        0,
			"estimate_source":     "",
			"estimate_confidence": "",
			"reference_count":     0,
		}).Error
}

// SaveEstimate 只写估价相关列，不覆盖物品内容
func (r *wizardItemRepo) SaveEstimate(ctx context.Context, item *model.WizardItem) error {
	return r.db.WithContext(ctx).
		Model(&model.WizardItem{}).
		Where("id = ?", item.ID).
		UpdateColumns(map[string]interface{}{
			"temp_product_id":     item.TempProductID,
			"estimate_price":      item.EstimatePrice,
			"estimate_min":        item.EstimateMin,
			"estimate_max":        item.EstimateMax,
			"estimate_source":     item.EstimateSource,
			"estimate_confidence": item.EstimateConfidence,
			"reference_count":     item.ReferenceCount,
		}).Error
}

func (r *wizardItemRepo) DeleteBySession(ctx context.Context, sessionID int64) error {
	return r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&model.WizardItem{}).Error
}

// ==================== Photo 仓储实现 ====================

type photoRepo struct {
	db *gorm.DB
}

// NewPhotoRepository 创建图片仓储
func NewPhotoRepository(db *gorm.DB) PhotoRepository {
	return &photoRepo{db: db}
}

func (r *photoRepo) CreateAsset(ctx context.Context, asset *model.PhotoAsset) error {
	return r.db.WithContext(ctx).Create(asset).Error
}

func (r *photoRepo) UpdateAsset(ctx context.Context, asset *model.PhotoAsset) error {
	return r.db.WithContext(ctx).Save(asset).Error
}

func (r *photoRepo) DeleteAssets(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.PhotoAsset{}).Error
}

func (r *photoRepo) ListAssetsBySession(ctx context.Context, sessionID int64) ([]model.PhotoAsset, error) {
	var assets []model.PhotoAsset
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Find(&assets).Error
	return assets, err
}

func (r *photoRepo) CreateLinks(ctx context.Context, links []model.ItemPhoto) error {
	if len(links) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&links).Error
}

func (r *photoRepo) GetLink(ctx context.Context, itemID, linkID int64) (*model.ItemPhoto, error) {
	var link model.ItemPhoto
	if err := r.db.WithContext(ctx).Where("id = ? AND item_id = ?", linkID, itemID).First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *photoRepo) DeleteLink(ctx context.Context, linkID int64) error {
	return r.db.WithContext(ctx).Delete(&model.ItemPhoto{}, linkID).Error
}

// DeleteLinksByItem 删除物品的全部图片关联，返回涉及的图片ID
func (r *photoRepo) DeleteLinksByItem(ctx context.Context, itemID int64) ([]int64, error) {
	var assetIDs []int64
	if err := r.db.WithContext(ctx).
		Model(&model.ItemPhoto{}).
		Where("item_id = ?", itemID).
		Distinct().
		Pluck("asset_id", &assetIDs).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Where("item_id = ?", itemID).Delete(&model.ItemPhoto{}).Error; err != nil {
		return nil, err
	}
	return assetIDs, nil
}

func (r *photoRepo) MaxLinkPosition(ctx context.Context, itemID int64) (int, error) {
	var pos sql.NullInt64
	err := r.db.WithContext(ctx).
		Model(&model.ItemPhoto{}).
		Where("item_id = ?", itemID).
		Select("MAX(position)").
		Row().Scan(&pos)
	if err != nil || !pos.Valid {
		return -1, err
	}
	return int(pos.Int64), nil
}

func (r *photoRepo) OrphanAssets(ctx context.Context, ids []int64) ([]model.PhotoAsset, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var assets []model.PhotoAsset
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Where("NOT EXISTS (SELECT 1 FROM item_photos WHERE item_photos.asset_id = photo_assets.id)").
		Find(&assets).Error
	return assets, err
}

// ==================== 工作单元 ====================

// WizardUnitOfWork 向导工作单元（事务）
type WizardUnitOfWork struct {
	db       *gorm.DB
	Sessions WizardSessionRepository
	Items    WizardItemRepository
	Photos   PhotoRepository
}

// NewWizardUnitOfWork 创建工作单元
func NewWizardUnitOfWork(db *gorm.DB) *WizardUnitOfWork {
	return &WizardUnitOfWork{
		db:       db,
		Sessions: NewWizardSessionRepository(db),
		Items:    NewWizardItemRepository(db),
		Photos:   NewPhotoRepository(db),
	}
}

// Transaction 执行事务
func (u *WizardUnitOfWork) Transaction(ctx context.Context, fn func(uow *WizardUnitOfWork) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewWizardUnitOfWork(tx))
	})
}
