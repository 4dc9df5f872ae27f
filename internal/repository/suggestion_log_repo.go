package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"bluberry_store_v1/internal/model"
)

// ==================== 仓储接口 ====================

// SuggestionLogRepository 描述建议调用日志仓储接口
type SuggestionLogRepository interface {
	Create(ctx context.Context, log *model.SuggestionCallLog) error
	GetUsage(ctx context.Context, startTime, endTime time.Time) (*SuggestionUsage, error)
	GetDailyUsage(ctx context.Context, startDate, endDate time.Time) ([]DailySuggestionUsage, error)
}

// SuggestionUsage 用量统计
type SuggestionUsage struct {
	TotalCalls        int64   `json:"total_calls"`
	ImageCalls        int64   `json:"image_calls"`
	TotalInputTokens  int64   `json:"total_input_tokens"`
	TotalOutputTokens int64   `json:"total_output_tokens"`
	AvgDurationMs     float64 `json:"avg_duration_ms"`
	SuccessCount      int64   `json:"success_count"`
	FailedCount       int64   `json:"failed_count"`
}

// DailySuggestionUsage 每日用量
type DailySuggestionUsage struct {
	Date              string `json:"date"`
	TotalCalls        int64  `json:"total_calls"`
	TotalInputTokens  int64  `json:"total_input_tokens"`
	TotalOutputTokens int64  `json:"total_output_tokens"`
}

// ==================== 仓储实现 ====================

type suggestionLogRepo struct {
	db *gorm.DB
}

func NewSuggestionLogRepository(db *gorm.DB) SuggestionLogRepository {
	return &suggestionLogRepo{db: db}
}

func (r *suggestionLogRepo) Create(ctx context.Context, log *model.SuggestionCallLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *suggestionLogRepo) GetUsage(ctx context.Context, startTime, endTime time.Time) (*SuggestionUsage, error) {
	var stats SuggestionUsage

	query := r.db.WithContext(ctx).Model(&model.SuggestionCallLog{})
	if !startTime.IsZero() {
		query = query.Where("created_at >= ?", startTime)
	}
	if !endTime.IsZero() {
		query = query.Where("created_at <= ?", endTime)
	}

	err := query.Select(`
		COUNT(*) as total_calls,
		COALESCE(SUM(CASE WHEN with_image THEN 1 ELSE 0 END), 0) as image_calls,
		COALESCE(SUM(input_tokens), 0) as total_input_tokens,
		COALESCE(SUM(output_tokens), 0) as total_output_tokens,
		COALESCE(AVG(duration_ms), 0) as avg_duration_ms,
		COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0) as success_count,
		COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) as failed_count
	`).Scan(&stats).Error

	return &stats, err
}

func (r *suggestionLogRepo) GetDailyUsage(ctx context.Context, startDate, endDate time.Time) ([]DailySuggestionUsage, error) {
	var stats []DailySuggestionUsage

	err := r.db.WithContext(ctx).Model(&model.SuggestionCallLog{}).
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Select(`
			DATE(created_at) as date,
			COUNT(*) as total_calls,
			COALESCE(SUM(input_tokens), 0) as total_input_tokens,
			COALESCE(SUM(output_tokens), 0) as total_output_tokens
		`).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&stats).Error

	return stats, err
}
