package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"bluberry_store_v1/internal/model"
	"bluberry_store_v1/internal/repository"
)

// ==================== 外部依赖 ====================

// Suggester 描述建议生成
type Suggester interface {
	SuggestDescription(ctx context.Context, item *model.WizardItem) (string, error)
}

// 可编辑字段
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldCondition   = "condition"
	FieldDefectNotes = "defect_notes"
)

var nameDisallowed = regexp.MustCompile(`[^a-zA-Z0-9\s,.\-']`)

// SanitizeItemName 名称只保留字母、数字、空白与 ,.-'
func SanitizeItemName(name string) string {
	return nameDisallowed.ReplaceAllString(name, "")
}

// WizardOptions 向导参数
type WizardOptions struct {
	MaxDuplicate int
}

// WizardResult 操作后的会话视图与提示
type WizardResult struct {
	Session *model.WizardSession
	Notices []Notice
}

// ==================== 服务实现 ====================

// WizardService 物品收集与阶段切换
type WizardService struct {
	uow       *repository.WizardUnitOfWork
	photos    *PhotoService
	suggester Suggester
	opts      WizardOptions
	now       func() time.Time
}

// NewWizardService 创建向导服务
func NewWizardService(uow *repository.WizardUnitOfWork, photos *PhotoService, suggester Suggester, opts WizardOptions) *WizardService {
	if opts.MaxDuplicate <= 0 {
		opts.MaxDuplicate = 20
	}
	return &WizardService{
		uow:       uow,
		photos:    photos,
		suggester: suggester,
		opts:      opts,
		now:       time.Now,
	}
}

// ==================== 会话 ====================

// StartSession 新建向导会话，带一个空物品
func (s *WizardService) StartSession(ctx context.Context, userID int64) (*WizardResult, error) {
	sess := &model.WizardSession{
		SessionKey:   uuid.NewString(),
		UserID:       userID,
		Stage:        model.WizardStageItems,
		LastActiveAt: s.now(),
	}
	err := s.uow.Transaction(ctx, func(tx *repository.WizardUnitOfWork) error {
		if err := tx.Sessions.Create(ctx, sess); err != nil {
			return err
		}
		return tx.Items.Create(ctx, newWizardItem(sess.ID, 0))
	})
	if err != nil {
		return nil, fmt.Errorf("创建向导失败: %w", err)
	}
	return s.result(ctx, sess.SessionKey)
}

// GetSession 当前向导视图
func (s *WizardService) GetSession(ctx context.Context, key string) (*model.WizardSession, error) {
	return loadWizard(ctx, s.uow, key)
}

// Restart 结束旧会话并开始新会话
func (s *WizardService) Restart(ctx context.Context, key string, userID int64) (*WizardResult, error) {
	if key != "" {
		old, err := loadWizard(ctx, s.uow, key)
		switch {
		case errors.Is(err, ErrWizardNotFound):
		case err != nil:
			return nil, err
		case old.Stage != model.WizardStageSubmitted:
			if err := s.ExpireSession(ctx, old); err != nil {
				return nil, err
			}
		}
	}
	return s.StartSession(ctx, userID)
}

// ExpireSession 标记会话过期并释放全部图片
func (s *WizardService) ExpireSession(ctx context.Context, sess *model.WizardSession) error {
	var assets []model.PhotoAsset
	err := s.uow.Transaction(ctx, func(tx *repository.WizardUnitOfWork) error {
		var err error
		if assets, err = tx.Photos.ListAssetsBySession(ctx, sess.ID); err != nil {
			return err
		}
		items, err := tx.Items.ListBySession(ctx, sess.ID)
		if err != nil {
			return err
		}
		for _, it := range items {
			if _, err := tx.Photos.DeleteLinksByItem(ctx, it.ID); err != nil {
				return err
			}
		}
		ids := make([]int64, 0, len(assets))
		for _, a := range assets {
			ids = append(ids, a.ID)
		}
		if err := tx.Photos.DeleteAssets(ctx, ids); err != nil {
			return err
		}
		if err := tx.Items.DeleteBySession(ctx, sess.ID); err != nil {
			return err
		}
		return tx.Sessions.MarkExpired(ctx, sess.ID)
	})
	if err != nil {
		return fmt.Errorf("过期向导失败: %w", err)
	}
	s.photos.Release(ctx, assets)
	zap.L().Info("向导会话已过期",
		zap.String("session", sess.SessionKey),
		zap.Int("assets", len(assets)))
	return nil
}

// ==================== 物品 ====================

// AddItem 追加空物品
func (s *WizardService) AddItem(ctx context.Context, key string) (*WizardResult, error) {
	sess, err := s.loadEditable(ctx, key)
	if err != nil {
		return nil, err
	}

	var stale bool
	err = s.uow.Transaction(ctx, func(tx *repository.WizardUnitOfWork) error {
		pos, err := tx.Items.MaxPosition(ctx, sess.ID)
		if err != nil {
			return err
		}
		if err := tx.Items.Create(ctx, newWizardItem(sess.ID, pos+1)); err != nil {
			return err
		}
		stale, err = s.commit(ctx, tx, sess, true)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("添加物品失败: %w", err)
	}
	return s.result(ctx, key, withStale(stale, info("Item Added", "A new item has been added to your submission."))...)
}

// RemoveItem 删除物品，至少保留一个
func (s *WizardService) RemoveItem(ctx context.Context, key, itemKey string) (*WizardResult, error) {
	sess, item, err := s.loadItem(ctx, key, itemKey, true)
	if err != nil {
		return nil, err
	}
	if len(sess.Items) <= 1 {
		return nil, NewValidationError("Cannot Remove", "You must have at least one item.")
	}

	var (
		orphans []model.PhotoAsset
		stale   bool
	)
	err = s.uow.Transaction(ctx, func(tx *repository.WizardUnitOfWork) error {
		assetIDs, err := tx.Photos.DeleteLinksByItem(ctx, item.ID)
		if err != nil {
			return err
		}
		if err := tx.Items.Delete(ctx, item.ID); err != nil {
			return err
		}
		if orphans, err = releaseOrphans(ctx, tx, assetIDs); err != nil {
			return err
		}
		stale, err = s.commit(ctx, tx, sess, true)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("删除物品失败: %w", err)
	}
	s.photos.Release(ctx, orphans)
	return s.result(ctx, key, withStale(stale, info("Item Removed", "The item has been removed from your submission."))...)
}

// UpdateField 修改单个字段并重新计算有效性
func (s *WizardService) UpdateField(ctx context.Context, key, itemKey, field, value string) (*WizardResult, error) {
	return s.UpdateFields(ctx, key, itemKey, []FieldChange{{Field: field, Value: value}})
}

// FieldChange 一次字段修改
type FieldChange struct {
	Field string
	Value string
}

// UpdateFields 同时修改多个字段，任一字段不合法则全部不生效
func (s *WizardService) UpdateFields(ctx context.Context, key, itemKey string, changes []FieldChange) (*WizardResult, error) {
	sess, item, err := s.loadItem(ctx, key, itemKey, true)
	if err != nil {
		return nil, err
	}

	var changed bool
	for _, c := range changes {
		ok, err := applyField(item, c.Field, c.Value)
		if err != nil {
			return nil, err
		}
		changed = changed || ok
	}
	item.RefreshValidity()

	var stale bool
	err = s.uow.Transaction(ctx, func(tx *repository.WizardUnitOfWork) error {
		if err := tx.Items.Update(ctx, item); err != nil {
			return err
		}
		var err error
		stale, err = s.commit(ctx, tx, sess, changed)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("更新物品失败: %w", err)
	}
	return s.result(ctx, key, withStale(stale)...)
}

// applyField 只改内存中的物品，返回值是否变化
func applyField(item *model.WizardItem, field, value string) (bool, error) {
	var changed bool
	switch field {
	case FieldName:
		value = SanitizeItemName(value)
		changed = item.Name != value
		item.Name = value
	case FieldDescription:
		changed = item.Description != value
		item.Description = value
	case FieldCondition:
		if value != "" && !model.IsValidCondition(value) {
			return false, NewValidationError("Invalid Condition", "Please select a valid condition.")
		}
		changed = item.Condition != value
		item.Condition = value
	case FieldDefectNotes:
		changed = item.DefectNotes != value
		item.DefectNotes = value
	default:
		return false, NewValidationError("Invalid Field", fmt.Sprintf("Field %q cannot be edited.", field))
	}
	return changed, nil
}

// ToggleExpanded 展开/收起，不影响估价
func (s *WizardService) ToggleExpanded(ctx context.Context, key, itemKey string) (*WizardResult, error) {
	sess, item, err := s.loadItem(ctx, key, itemKey, false)
	if err != nil {
		return nil, err
	}
	item.IsExpanded = !item.IsExpanded

	err = s.uow.Transaction(ctx, func(tx *repository.WizardUnitOfWork) error {
		if err := tx.Items.Update(ctx, item); err != nil {
			return err
		}
		_, err := s.commit(ctx, tx, sess, false)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("更新物品失败: %w", err)
	}
	return s.result(ctx, key)
}

// DuplicateItem 复制 count 份追加到末尾，副本收起并共享图片
func (s *WizardService) DuplicateItem(ctx context.Context, key, itemKey string, count int) (*WizardResult, error) {
	if count < 1 || count > s.opts.MaxDuplicate {
		return nil, NewValidationError("Invalid Count",
			fmt.Sprintf("You can create between 1 and %d copies.", s.opts.MaxDuplicate))
	}
	sess, item, err := s.loadItem(ctx, key, itemKey, true)
	if err != nil {
		return nil, err
	}

	var stale bool
	err = s.uow.Transaction(ctx, func(tx *repository.WizardUnitOfWork) error {
		pos, err := tx.Items.MaxPosition(ctx, sess.ID)
		if err != nil {
			return err
		}
		copies := make([]*model.WizardItem, 0, count)
		for i := 0; i < count; i++ {
			c := newWizardItem(sess.ID, pos+1+i)
			c.Name = item.Name
			c.Description = item.Description
			c.Condition = item.Condition
			c.DefectNotes = item.DefectNotes
			c.ImageURL = item.ImageURL
			c.IsExpanded = false
			c.IsValid = item.IsValid
			copies = append(copies, c)
		}
		if err := tx.Items.CreateBatch(ctx, copies); err != nil {
			return err
		}

		links := make([]model.ItemPhoto, 0, len(copies)*len(item.Photos))
		for _, c := range copies {
			for _, p := range item.Photos {
				links = append(links, model.ItemPhoto{ItemID: c.ID, AssetID: p.AssetID, Position: p.Position})
			}
		}
		if err := tx.Photos.CreateLinks(ctx, links); err != nil {
			return err
		}
		stale, err = s.commit(ctx, tx, sess, true)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("复制物品失败: %w", err)
	}

	noun := "copies"
	if count == 1 {
		noun = "copy"
	}
	return s.result(ctx, key, withStale(stale,
		info("Items Duplicated", fmt.Sprintf("Created %d %s of the item.", count, noun)))...)
}

// ==================== 图片 ====================

// AttachPhotos 校验并添加图片，被拒绝的文件只产生提示
func (s *WizardService) AttachPhotos(ctx context.Context, key, itemKey string, files []PhotoUpload) (*WizardResult, error) {
	sess, item, err := s.loadItem(ctx, key, itemKey, true)
	if err != nil {
		return nil, err
	}

	assets, notices := s.photos.Prepare(ctx, sess.SessionKey, files)
	if len(assets) == 0 {
		return s.result(ctx, key, notices...)
	}

	var stale bool
	err = s.uow.Transaction(ctx, func(tx *repository.WizardUnitOfWork) error {
		pos, err := tx.Photos.MaxLinkPosition(ctx, item.ID)
		if err != nil {
			return err
		}
		links := make([]model.ItemPhoto, 0, len(assets))
		for i, a := range assets {
			a.SessionID = sess.ID
			if err := tx.Photos.CreateAsset(ctx, a); err != nil {
				return err
			}
			links = append(links, model.ItemPhoto{ItemID: item.ID, AssetID: a.ID, Position: pos + 1 + i})
		}
		if err := tx.Photos.CreateLinks(ctx, links); err != nil {
			return err
		}
		item.IsValid = model.ItemComplete(item.Name, item.Description, item.Condition, item.DefectNotes, len(item.Photos)+len(assets))
		if err := tx.Items.Update(ctx, item); err != nil {
			return err
		}
		stale, err = s.commit(ctx, tx, sess, true)
		return err
	})
	if err != nil {
		s.photos.Discard(ctx, assets)
		return nil, fmt.Errorf("保存图片失败: %w", err)
	}
	return s.result(ctx, key, withStale(stale, notices...)...)
}

// RemovePhoto 移除物品的一张图片
func (s *WizardService) RemovePhoto(ctx context.Context, key, itemKey string, photoID int64) (*WizardResult, error) {
	sess, item, err := s.loadItem(ctx, key, itemKey, true)
	if err != nil {
		return nil, err
	}
	link, err := s.uow.Photos.GetLink(ctx, item.ID, photoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPhotoNotFound
		}
		return nil, fmt.Errorf("查询图片失败: %w", err)
	}

	var (
		orphans []model.PhotoAsset
		stale   bool
	)
	err = s.uow.Transaction(ctx, func(tx *repository.WizardUnitOfWork) error {
		if err := tx.Photos.DeleteLink(ctx, link.ID); err != nil {
			return err
		}
		var err error
		if orphans, err = releaseOrphans(ctx, tx, []int64{link.AssetID}); err != nil {
			return err
		}
		item.IsValid = model.ItemComplete(item.Name, item.Description, item.Condition, item.DefectNotes, len(item.Photos)-1)
		if err := tx.Items.Update(ctx, item); err != nil {
			return err
		}
		stale, err = s.commit(ctx, tx, sess, true)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("移除图片失败: %w", err)
	}
	s.photos.Release(ctx, orphans)
	return s.result(ctx, key, withStale(stale)...)
}

// SetImageURL 设置参考图片链接
func (s *WizardService) SetImageURL(ctx context.Context, key, itemKey, url string) (*WizardResult, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, NewValidationError("Invalid URL", "Please enter an image URL.")
	}
	return s.updateImageURL(ctx, key, itemKey, url, info("Image URL Added", "The image URL has been added to your item."))
}

// RemoveImageURL 清除参考图片链接
func (s *WizardService) RemoveImageURL(ctx context.Context, key, itemKey string) (*WizardResult, error) {
	return s.updateImageURL(ctx, key, itemKey, "", info("Image URL Removed", "The image URL has been removed from your item."))
}

func (s *WizardService) updateImageURL(ctx context.Context, key, itemKey, url string, notice Notice) (*WizardResult, error) {
	sess, item, err := s.loadItem(ctx, key, itemKey, true)
	if err != nil {
		return nil, err
	}
	item.ImageURL = url
	item.RefreshValidity()

	err = s.uow.Transaction(ctx, func(tx *repository.WizardUnitOfWork) error {
		if err := tx.Items.Update(ctx, item); err != nil {
			return err
		}
		_, err := s.commit(ctx, tx, sess, false)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("更新物品失败: %w", err)
	}
	return s.result(ctx, key, notice)
}

// ==================== AI 建议 ====================

// RequestSuggestion 生成描述建议，暂存在物品上等待确认
func (s *WizardService) RequestSuggestion(ctx context.Context, key, itemKey string) (*WizardResult, error) {
	if s.suggester == nil {
		return nil, ErrSuggestionOff
	}
	sess, item, err := s.loadItem(ctx, key, itemKey, true)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(item.Name) == "" {
		return nil, NewValidationError("Missing Name", "Please enter an item name first.")
	}

	text, err := s.suggester.SuggestDescription(ctx, item)
	if err != nil {
		if errors.Is(err, ErrSuggestionOff) {
			return nil, err
		}
		return nil, &UpstreamError{Title: "Error", Message: "Failed to generate a suggestion. Please try again.", Err: err}
	}
	item.Suggestion = text

	err = s.uow.Transaction(ctx, func(tx *repository.WizardUnitOfWork) error {
		if err := tx.Items.Update(ctx, item); err != nil {
			return err
		}
		_, err := s.commit(ctx, tx, sess, false)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("保存建议失败: %w", err)
	}
	return s.result(ctx, key)
}

// ApplySuggestion 用建议替换描述
func (s *WizardService) ApplySuggestion(ctx context.Context, key, itemKey string) (*WizardResult, error) {
	sess, item, err := s.loadItem(ctx, key, itemKey, true)
	if err != nil {
		return nil, err
	}
	if item.Suggestion == "" {
		return nil, ErrNoSuggestion
	}
	item.Description = item.Suggestion
	item.Suggestion = ""
	item.RefreshValidity()

	var stale bool
	err = s.uow.Transaction(ctx, func(tx *repository.WizardUnitOfWork) error {
		if err := tx.Items.Update(ctx, item); err != nil {
			return err
		}
		var err error
		stale, err = s.commit(ctx, tx, sess, true)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("应用建议失败: %w", err)
	}
	return s.result(ctx, key, withStale(stale,
		info("Suggestion Applied", "The AI suggestion has been applied to your item description."))...)
}

// ==================== 阶段切换 ====================

// GoToContact 进入联系信息阶段：物品全部有效且已估价
func (s *WizardService) GoToContact(ctx context.Context, key string) (*WizardResult, error) {
	sess, err := loadWizard(ctx, s.uow, key)
	if err != nil {
		return nil, err
	}
	switch sess.Stage {
	case model.WizardStageSubmitted:
		return nil, ErrAlreadySubmitted
	case model.WizardStageContact:
		return &WizardResult{Session: sess}, nil
	}

	for i := range sess.Items {
		sess.Items[i].RefreshValidity()
	}
	if !sess.Step1Valid() {
		return nil, NewValidationError("Validation Error", "Please complete all item details before calculating prices.")
	}
	if !sess.HasFreshEstimate() {
		return nil, NewValidationError("Validation Error", "Please calculate price estimates before submitting.")
	}

	err = s.uow.Sessions.UpdateFields(ctx, sess.ID, map[string]interface{}{
		"stage":          model.WizardStageContact,
		"last_active_at": s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("切换阶段失败: %w", err)
	}
	return s.result(ctx, key)
}

// GoBack 返回物品阶段，已填写内容保留
func (s *WizardService) GoBack(ctx context.Context, key string) (*WizardResult, error) {
	sess, err := loadWizard(ctx, s.uow, key)
	if err != nil {
		return nil, err
	}
	switch sess.Stage {
	case model.WizardStageSubmitted:
		return nil, ErrAlreadySubmitted
	case model.WizardStageItems:
		return &WizardResult{Session: sess}, nil
	}

	err = s.uow.Sessions.UpdateFields(ctx, sess.ID, map[string]interface{}{
		"stage":          model.WizardStageItems,
		"last_active_at": s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("切换阶段失败: %w", err)
	}
	return s.result(ctx, key)
}

// ==================== 内部方法 ====================

func newWizardItem(sessionID int64, position int) *model.WizardItem {
	return &model.WizardItem{
		SessionID:  sessionID,
		ItemKey:    "item-" + uuid.NewString(),
		Position:   position,
		IsExpanded: true,
	}
}

// loadWizard 加载会话，过期视为不存在
func loadWizard(ctx context.Context, uow *repository.WizardUnitOfWork, key string) (*model.WizardSession, error) {
	if key == "" {
		return nil, ErrWizardNotFound
	}
	sess, err := uow.Sessions.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWizardNotFound
		}
		return nil, fmt.Errorf("加载向导失败: %w", err)
	}
	if sess.Stage == model.WizardStageExpired {
		return nil, ErrWizardNotFound
	}
	return sess, nil
}

// loadEditable 只有物品阶段允许修改物品
func (s *WizardService) loadEditable(ctx context.Context, key string) (*model.WizardSession, error) {
	sess, err := loadWizard(ctx, s.uow, key)
	if err != nil {
		return nil, err
	}
	switch sess.Stage {
	case model.WizardStageSubmitted:
		return nil, ErrAlreadySubmitted
	case model.WizardStageItems:
		return sess, nil
	default:
		return nil, ErrWizardStage
	}
}

func (s *WizardService) loadItem(ctx context.Context, key, itemKey string, editable bool) (*model.WizardSession, *model.WizardItem, error) {
	var (
		sess *model.WizardSession
		err  error
	)
	if editable {
		sess, err = s.loadEditable(ctx, key)
	} else {
		sess, err = loadWizard(ctx, s.uow, key)
		if err == nil && sess.IsClosed() {
			err = ErrAlreadySubmitted
		}
	}
	if err != nil {
		return nil, nil, err
	}
	item, _ := sess.FindItem(itemKey)
	if item == nil {
		return nil, nil, ErrItemNotFound
	}
	return sess, item, nil
}

// commit 刷新活动时间；invalidate 为 true 时清空已有估价，返回是否发生清空
func (s *WizardService) commit(ctx context.Context, tx *repository.WizardUnitOfWork, sess *model.WizardSession, invalidate bool) (bool, error) {
	fields := map[string]interface{}{"last_active_at": s.now()}

	stale := false
	if invalidate {
		stale = sess.HasFreshEstimate()
		for i := range sess.Items {
			if sess.Items[i].HasEstimate() {
				stale = true
			}
		}
	}
	if stale {
		if err := tx.Items.ClearEstimates(ctx, sess.ID); err != nil {
			return false, err
		}
		sess.ClearEstimate()
		fields["temp_product_ids"] = nil
		fields["total_estimated_value"] = 0
		fields["estimated_at"] = nil
		fields["estimate_expires_at"] = nil
		fields["estimate_next_step"] = ""
	}
	return stale, tx.Sessions.UpdateFields(ctx, sess.ID, fields)
}

// releaseOrphans 删除已无引用的图片记录，返回待释放的预览
func releaseOrphans(ctx context.Context, tx *repository.WizardUnitOfWork, assetIDs []int64) ([]model.PhotoAsset, error) {
	orphans, err := tx.Photos.OrphanAssets(ctx, assetIDs)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(orphans))
	for _, a := range orphans {
		ids = append(ids, a.ID)
	}
	return orphans, tx.Photos.DeleteAssets(ctx, ids)
}

func (s *WizardService) result(ctx context.Context, key string, notices ...Notice) (*WizardResult, error) {
	sess, err := loadWizard(ctx, s.uow, key)
	if err != nil {
		return nil, err
	}
	return &WizardResult{Session: sess, Notices: notices}, nil
}

func withStale(stale bool, notices ...Notice) []Notice {
	if stale {
		notices = append(notices, info("Estimates Cleared", "Your items changed. Please recalculate price estimates."))
	}
	return notices
}
