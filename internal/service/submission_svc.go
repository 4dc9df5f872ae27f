package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"bluberry_store_v1/internal/model"
	"bluberry_store_v1/internal/repository"
	"bluberry_store_v1/pkg/backend"
	"bluberry_store_v1/pkg/utils"
)

// SubmissionAPI 提交接口
type SubmissionAPI interface {
	SubmitContactOnly(ctx context.Context, req *backend.ContactSubmission) (*backend.ContactSubmissionResponse, error)
}

// ContactInput 联系与取件信息
type ContactInput struct {
	FullName        string
	Email           string
	Phone           string
	PickupAddress   string
	PickupDate      *time.Time
	ConsentAccepted bool
}

// SubmissionService 联系信息与最终提交
type SubmissionService struct {
	uow *repository.WizardUnitOfWork
	api SubmissionAPI
	loc *time.Location
	now func() time.Time
}

// NewSubmissionService 创建提交服务，loc 为取件时间所在时区
func NewSubmissionService(uow *repository.WizardUnitOfWork, api SubmissionAPI, loc *time.Location) *SubmissionService {
	if loc == nil {
		loc = time.Local
	}
	return &SubmissionService{uow: uow, api: api, loc: loc, now: time.Now}
}

// Location 取件时区
func (s *SubmissionService) Location() *time.Location {
	return s.loc
}

// UpdateContact 保存联系信息草稿
func (s *SubmissionService) UpdateContact(ctx context.Context, key string, in ContactInput) (*WizardResult, error) {
	sess, err := loadWizard(ctx, s.uow, key)
	if err != nil {
		return nil, err
	}
	switch sess.Stage {
	case model.WizardStageSubmitted:
		return nil, ErrAlreadySubmitted
	case model.WizardStageItems:
		return nil, ErrWizardStage
	}

	phone := strings.TrimSpace(in.Phone)
	display := phone
	if !strings.HasPrefix(phone, "+") {
		display = utils.FormatPhoneDisplay(phone)
	}
	apiPhone := ""
	if phone != "" {
		apiPhone = utils.NormalizePhoneForAPI(phone)
	}

	err = s.uow.Sessions.UpdateFields(ctx, sess.ID, map[string]interface{}{
		"full_name":        in.FullName,
		"email":            in.Email,
		"phone_display":    display,
		"phone_api":        apiPhone,
		"pickup_address":   in.PickupAddress,
		"pickup_date":      in.PickupDate,
		"consent_accepted": in.ConsentAccepted,
		"last_active_at":   s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("保存联系信息失败: %w", err)
	}
	return s.reload(ctx, key)
}

// Step2Valid 联系信息是否完整
func (s *SubmissionService) Step2Valid(ctx context.Context, key string) (bool, error) {
	sess, err := loadWizard(ctx, s.uow, key)
	if err != nil {
		return false, err
	}
	return sess.Step2Valid(), nil
}

// Finalize 把临时商品ID与联系信息一起提交
// 失败时草稿与估价保持不变，可直接重试
func (s *SubmissionService) Finalize(ctx context.Context, key string) (*WizardResult, error) {
	sess, err := loadWizard(ctx, s.uow, key)
	if err != nil {
		return nil, err
	}
	if sess.Stage == model.WizardStageSubmitted {
		return nil, ErrAlreadySubmitted
	}
	if !sess.HasFreshEstimate() {
		return nil, NewValidationError("Validation Error", "Please calculate price estimates before submitting.")
	}
	if sess.Stage != model.WizardStageContact {
		return nil, ErrWizardStage
	}
	if !sess.Step2Valid() {
		return nil, NewValidationError("Validation Error", "Please complete all contact details and accept the privacy policy.")
	}

	var notices []Notice
	pickup, adjusted := NormalizePickupDate(*sess.PickupDate, s.now(), s.loc)
	if adjusted {
		notices = append(notices, info("Date Adjusted", "Pickup date has been adjusted to tomorrow as it must be in the future."))
	}

	phone := sess.PhoneAPI
	if phone == "" {
		phone = utils.NormalizePhoneForAPI(sess.PhoneDisplay)
	}
	req := &backend.ContactSubmission{
		TempProductIDs:        []int64(sess.TempProductIDs),
		FullName:              sess.FullName,
		Email:                 sess.Email,
		Phone:                 phone,
		PickupDate:            FormatPickupDate(pickup),
		PickupAddress:         sess.PickupAddress,
		PrivacyPolicyAccepted: sess.ConsentAccepted,
	}

	resp, err := s.api.SubmitContactOnly(ctx, req)
	if err != nil {
		msg := backend.ErrorMessage(err, "An unexpected error occurred. Please try again.")
		zap.L().Warn("提交失败",
			zap.String("session", key),
			zap.Int64s("temp_product_ids", req.TempProductIDs),
			zap.Error(err))
		_ = s.uow.Sessions.UpdateFields(ctx, sess.ID, map[string]interface{}{
			"last_error":     msg,
			"last_active_at": s.now(),
		})
		return nil, &UpstreamError{
			Title:   "Error",
			Message: "There was a problem submitting your form: " + msg,
			Err:     err,
		}
	}

	summary, err := json.Marshal(map[string]interface{}{
		"submission_data": resp.SubmissionData,
		"summary":         resp.Summary,
		"next_steps":      resp.NextSteps,
	})
	if err != nil {
		return nil, fmt.Errorf("序列化提交结果失败: %w", err)
	}

	now := s.now()
	err = s.uow.Sessions.UpdateFields(ctx, sess.ID, map[string]interface{}{
		"stage":              model.WizardStageSubmitted,
		"submission_id":      resp.SubmissionID,
		"submission_summary": datatypes.JSON(summary),
		"submitted_at":       now,
		"pickup_date":        pickup,
		"last_error":         "",
		"last_active_at":     now,
	})
	if err != nil {
		return nil, fmt.Errorf("保存提交结果失败: %w", err)
	}

	zap.L().Info("提交成功",
		zap.String("session", key),
		zap.Int64("submission_id", resp.SubmissionID))

	notices = append(notices, info("Success!",
		fmt.Sprintf("Your items have been submitted successfully! Submission ID: %d", resp.SubmissionID)))
	res, err := s.reload(ctx, key)
	if err != nil {
		return nil, err
	}
	res.Notices = notices
	return res, nil
}

func (s *SubmissionService) reload(ctx context.Context, key string) (*WizardResult, error) {
	sess, err := loadWizard(ctx, s.uow, key)
	if err != nil {
		return nil, err
	}
	return &WizardResult{Session: sess}, nil
}

// ==================== 取件时间 ====================

// NormalizePickupDate 零点改为当天 14:00；不晚于 now 时改为次日 14:00，第二个返回值表示是否被改到次日
func NormalizePickupDate(date, now time.Time, loc *time.Location) (time.Time, bool) {
	d := date.In(loc)
	if d.Hour() == 0 && d.Minute() == 0 {
		d = time.Date(d.Year(), d.Month(), d.Day(), 14, 0, 0, 0, loc)
	}
	if d.After(now) {
		return d, false
	}
	t := now.In(loc).AddDate(0, 0, 1)
	return time.Date(t.Year(), t.Month(), t.Day(), 14, 0, 0, 0, loc), true
}

var pickupLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParsePickupDate 解析页面提交的取件时间，不带时区的按 loc 解释
func ParsePickupDate(raw string, loc *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range pickupLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("无法解析取件时间: %q", raw)
}

// FormatPickupDate 后端要求的 UTC ISO 格式
func FormatPickupDate(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
