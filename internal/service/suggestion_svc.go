package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"bluberry_store_v1/internal/model"
	"bluberry_store_v1/internal/repository"
)

// SuggestionService 基于 Gemini 的物品描述建议
type SuggestionService struct {
	apiKey string
	model  string
	logs   repository.SuggestionLogRepository
}

// NewSuggestionService 创建建议服务，apiKey 为空时不可用
func NewSuggestionService(apiKey, modelName string) *SuggestionService {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	return &SuggestionService{apiKey: apiKey, model: modelName}
}

// WithCallLog 记录每次调用的用量
func (s *SuggestionService) WithCallLog(logs repository.SuggestionLogRepository) *SuggestionService {
	s.logs = logs
	return s
}

// Enabled 是否已配置
func (s *SuggestionService) Enabled() bool {
	return s != nil && s.apiKey != ""
}

// SuggestDescription 根据名称、成色与首张图片生成描述
func (s *SuggestionService) SuggestDescription(ctx context.Context, item *model.WizardItem) (string, error) {
	if !s.Enabled() {
		return "", ErrSuggestionOff
	}

	img, withImage := firstImagePart(item)
	callLog := &model.SuggestionCallLog{
		SessionID: item.SessionID,
		ItemKey:   item.ItemKey,
		ModelName: s.model,
		WithImage: withImage,
		Status:    model.SuggestionCallSuccess,
	}
	start := time.Now()

	text, err := s.generate(ctx, item, img, callLog)

	callLog.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		callLog.Status = model.SuggestionCallFailed
		callLog.ErrorMsg = truncate(err.Error(), 1024)
	}
	s.saveLog(ctx, callLog)

	return text, err
}

func (s *SuggestionService) generate(ctx context.Context, item *model.WizardItem, img genai.Part, callLog *model.SuggestionCallLog) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(s.apiKey))
	if err != nil {
		return "", fmt.Errorf("Gemini 初始化失败: %w", err)
	}
	defer client.Close()

	gm := client.GenerativeModel(s.model)
	parts := []genai.Part{genai.Text(buildSuggestionPrompt(item))}
	if img != nil {
		parts = append(parts, img)
	}

	resp, err := gm.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("AI 生成失败: %w", err)
	}
	if resp.UsageMetadata != nil {
		callLog.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		callLog.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("AI 返回为空")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("AI 返回为空")
	}
	return text, nil
}

// saveLog 日志写入失败不影响建议结果
func (s *SuggestionService) saveLog(ctx context.Context, callLog *model.SuggestionCallLog) {
	if s.logs == nil {
		return
	}
	if err := s.logs.Create(context.WithoutCancel(ctx), callLog); err != nil {
		zap.L().Warn("记录建议调用日志失败", zap.Error(err))
	}
}

// SuggestionUsageReport 近期用量
type SuggestionUsageReport struct {
	Enabled bool                              `json:"enabled"`
	Total   *repository.SuggestionUsage       `json:"total"`
	Daily   []repository.DailySuggestionUsage `json:"daily"`
}

// Usage 最近 days 天的调用统计
func (s *SuggestionService) Usage(ctx context.Context, days int) (*SuggestionUsageReport, error) {
	report := &SuggestionUsageReport{Enabled: s.Enabled(), Total: &repository.SuggestionUsage{}}
	if s == nil || s.logs == nil {
		return report, nil
	}
	if days <= 0 {
		days = 7
	}

	end := time.Now()
	start := end.AddDate(0, 0, -days)

	total, err := s.logs.GetUsage(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("查询建议用量失败: %w", err)
	}
	daily, err := s.logs.GetDailyUsage(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("查询建议用量失败: %w", err)
	}
	report.Total = total
	report.Daily = daily
	return report, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func buildSuggestionPrompt(item *model.WizardItem) string {
	var b strings.Builder
	b.WriteString("You help people describe second-hand items they want to sell.\n")
	b.WriteString("Write a short, factual description (2-3 sentences, plain text, no markdown) for this item.\n")
	fmt.Fprintf(&b, "Item name: %s\n", strings.TrimSpace(item.Name))
	if item.Condition != "" {
		fmt.Fprintf(&b, "Condition: %s\n", item.Condition)
	}
	if d := strings.TrimSpace(item.DefectNotes); d != "" {
		fmt.Fprintf(&b, "Known issues: %s\n", d)
	}
	if d := strings.TrimSpace(item.Description); d != "" {
		fmt.Fprintf(&b, "Current description: %s\n", d)
	}
	return b.String()
}

// firstImagePart 从首张图片的 data URL 构造图片输入
func firstImagePart(item *model.WizardItem) (genai.Part, bool) {
	for _, p := range item.Photos {
		if p.Asset == nil || p.Asset.EncodedContent == "" {
			continue
		}
		mimeType, data, ok := decodeDataURL(p.Asset.EncodedContent)
		if !ok {
			continue
		}
		return genai.ImageData(strings.TrimPrefix(mimeType, "image/"), data), true
	}
	return nil, false
}

func decodeDataURL(s string) (string, []byte, bool) {
	if !strings.HasPrefix(s, "data:") {
		return "", nil, false
	}
	meta, payload, found := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !found || !strings.HasSuffix(meta, ";base64") {
		return "", nil, false
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, false
	}
	return strings.TrimSuffix(meta, ";base64"), data, true
}
