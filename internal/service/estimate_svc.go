package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"bluberry_store_v1/internal/model"
	"bluberry_store_v1/internal/repository"
	"bluberry_store_v1/pkg/backend"
)

// Estimator 批量估价接口
type Estimator interface {
	EstimateItems(ctx context.Context, req *backend.EstimateRequest) (*backend.EstimateResponse, error)
}

// EstimateService 价格估算
type EstimateService struct {
	uow *repository.WizardUnitOfWork
	api Estimator
	now func() time.Time
}

// NewEstimateService 创建估价服务
func NewEstimateService(uow *repository.WizardUnitOfWork, api Estimator) *EstimateService {
	return &EstimateService{uow: uow, api: api, now: time.Now}
}

// CalculateEstimates 对所有填写完整的物品发起一次批量估价
// 失败时不改动已有估价；成功后把临时商品ID写到对应物品上
func (s *EstimateService) CalculateEstimates(ctx context.Context, key string) (*WizardResult, error) {
	sess, err := loadWizard(ctx, s.uow, key)
	if err != nil {
		return nil, err
	}
	switch sess.Stage {
	case model.WizardStageSubmitted:
		return nil, ErrAlreadySubmitted
	case model.WizardStageContact:
		return nil, ErrWizardStage
	}

	ready := readyItems(sess)
	if len(ready) == 0 {
		return nil, NewValidationError("Validation Error", "Please complete all item details before calculating prices.")
	}
	snapshot := fingerprintItems(ready)

	req := &backend.EstimateRequest{Items: make([]backend.EstimateItem, 0, len(ready))}
	for _, it := range ready {
		req.Items = append(req.Items, buildEstimateItem(it))
	}

	resp, err := s.api.EstimateItems(ctx, req)
	if err == nil {
		err = checkEstimateResponse(resp, len(ready))
	}
	if err != nil {
		zap.L().Warn("估价失败",
			zap.String("session", key),
			zap.Int("items", len(ready)),
			zap.Error(err))
		_ = s.uow.Sessions.UpdateFields(ctx, sess.ID, map[string]interface{}{
			"last_error":     backend.ErrorMessage(err, err.Error()),
			"last_active_at": s.now(),
		})
		return nil, &UpstreamError{
			Title:   "Error",
			Message: "Failed to calculate price estimates. Please try again.",
			Err:     err,
		}
	}

	now := s.now()
	tempIDs := make([]int64, len(ready))
	total := resp.ProductsSummary.TotalEstimatedValue.Float()
	var sum float64

	err = s.uow.Transaction(ctx, func(tx *repository.WizardUnitOfWork) error {
		// 请求期间物品被修改则丢弃本次结果
		current, err := loadWizard(ctx, tx, key)
		if err != nil {
			return err
		}
		if current.Stage != sess.Stage {
			return errItemsChanged
		}
		ready = readyItems(current)
		if !sameFingerprints(snapshot, fingerprintItems(ready)) {
			return errItemsChanged
		}

		if err := tx.Items.ClearEstimates(ctx, sess.ID); err != nil {
			return err
		}
		for i, it := range ready {
			p := resp.IndividualProducts[i]
			tid := p.TempProductID
			if tid == 0 && i < len(resp.TempProductIDs) {
				tid = resp.TempProductIDs[i]
			}
			tempIDs[i] = tid
			sum += p.EstimatedValue.Float()
			applyEstimate(it, tid, p)
			if err := tx.Items.SaveEstimate(ctx, it); err != nil {
				return err
			}
		}

		if total == 0 {
			total = sum
		}
		return tx.Sessions.UpdateFields(ctx, sess.ID, map[string]interface{}{
			"temp_product_ids":      datatypes.JSONSlice[int64](tempIDs),
			"total_estimated_value": total,
			"estimated_at":          now,
			"estimate_expires_at":   estimateExpiry(resp.TempStorage, now),
			"estimate_next_step":    resp.NextStep,
			"last_error":            "",
			"last_active_at":        now,
		})
	})
	if errors.Is(err, errItemsChanged) {
		zap.L().Info("估价期间物品已修改，丢弃结果", zap.String("session", key))
		return nil, NewValidationError("Please recalculate", "Your items changed while prices were being calculated. Please recalculate price estimates.")
	}
	if err != nil {
		return nil, fmt.Errorf("保存估价结果失败: %w", err)
	}

	zap.L().Info("估价完成",
		zap.String("session", key),
		zap.Int("items", len(ready)),
		zap.Float64("total", total))

	fresh, err := loadWizard(ctx, s.uow, key)
	if err != nil {
		return nil, err
	}
	return &WizardResult{
		Session: fresh,
		Notices: []Notice{info("Price Estimates Calculated!", "Total estimated value: $"+formatAmount(total))},
	}, nil
}

var errItemsChanged = errors.New("items changed during estimate")

// readyItems 不依赖已存的 IsValid，按字段重新判断
func readyItems(sess *model.WizardSession) []*model.WizardItem {
	var ready []*model.WizardItem
	for i := range sess.Items {
		it := &sess.Items[i]
		if model.ItemComplete(it.Name, it.Description, it.Condition, it.DefectNotes, len(it.Photos)) {
			ready = append(ready, it)
		}
	}
	return ready
}

// fingerprintItems 参与估价的内容：物品、字段与图片
func fingerprintItems(items []*model.WizardItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		var b strings.Builder
		b.WriteString(strconv.FormatInt(it.ID, 10))
		for _, v := range []string{it.Name, it.Description, it.Condition, it.DefectNotes} {
			b.WriteByte(0)
			b.WriteString(v)
		}
		b.WriteByte(0)
		for _, p := range it.Photos {
			b.WriteString(strconv.FormatInt(p.AssetID, 10))
			b.WriteByte(',')
		}
		out = append(out, b.String())
	}
	return out
}

func sameFingerprints(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func buildEstimateItem(it *model.WizardItem) backend.EstimateItem {
	defects := strings.TrimSpace(it.DefectNotes)
	if defects == "" {
		defects = "No issues reported"
	}
	images := make([]string, 0, len(it.Photos))
	for _, p := range it.Photos {
		if p.Asset != nil && p.Asset.EncodedContent != "" {
			images = append(images, p.Asset.EncodedContent)
		}
	}
	return backend.EstimateItem{
		Title:          strings.TrimSpace(it.Name),
		Description:    it.Description,
		Condition:      model.MapConditionForAPI(it.Condition),
		Defects:        defects,
		UploadedImages: images,
	}
}

func checkEstimateResponse(resp *backend.EstimateResponse, want int) error {
	if resp == nil {
		return fmt.Errorf("%w: 空响应", ErrEstimateMismatch)
	}
	if len(resp.IndividualProducts) != want {
		return fmt.Errorf("%w: 期望 %d 个，返回 %d 个", ErrEstimateMismatch, want, len(resp.IndividualProducts))
	}
	for i, p := range resp.IndividualProducts {
		if p.TempProductID == 0 && i >= len(resp.TempProductIDs) {
			return fmt.Errorf("%w: 第 %d 个物品缺少临时商品ID", ErrEstimateMismatch, i+1)
		}
	}
	return nil
}

func applyEstimate(it *model.WizardItem, tempID int64, p backend.IndividualProduct) {
	value := p.EstimatedValue.Float()
	lo, hi, ok := parsePriceRange(p.PriceRange)
	if !ok {
		lo, hi = value, value
	}
	it.TempProductID = &tempID
	it.EstimatePrice = "$" + formatAmount(value)
	it.EstimateMin = lo
	it.EstimateMax = hi
	it.EstimateSource = model.ParseEstimateSource(p.Source)
	it.EstimateConfidence = model.NormalizeConfidence(p.ConfidenceLevel)
	it.ReferenceCount = p.ImageCount
}

// parsePriceRange 解析 "$40.00 - $60.00"
func parsePriceRange(raw string) (float64, float64, bool) {
	lo, hi, found := strings.Cut(raw, " - ")
	if !found {
		return 0, 0, false
	}
	a, err1 := parseMoney(lo)
	b, err2 := parseMoney(hi)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return a, b, true
}

func parseMoney(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	return strconv.ParseFloat(s, 64)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func estimateExpiry(ts backend.TempStorage, now time.Time) *time.Time {
	if ts.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, ts.ExpiresAt); err == nil {
			return &t
		}
	}
	if ts.ExpiresInHours > 0 {
		t := now.Add(time.Duration(ts.ExpiresInHours * float64(time.Hour)))
		return &t
	}
	return nil
}
