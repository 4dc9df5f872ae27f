package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"bluberry_store_v1/internal/model"
	"bluberry_store_v1/pkg/backend"
)

// SupportService 联系表单、评价与上门服务申请
type SupportService struct {
	auth *AuthService
}

// NewSupportService 创建客服服务
func NewSupportService(auth *AuthService) *SupportService {
	return &SupportService{auth: auth}
}

// SubmitContact 提交联系表单，姓名、邮箱、留言必填
func (s *SupportService) SubmitContact(ctx context.Context, form *backend.ContactForm) (*Notice, error) {
	form.YourName = strings.TrimSpace(form.YourName)
	form.YourEmail = strings.TrimSpace(form.YourEmail)
	form.YourMessage = strings.TrimSpace(form.YourMessage)
	if form.YourName == "" || form.YourEmail == "" || form.YourMessage == "" {
		return nil, NewValidationError("Missing Information", "Please fill in your name, email and message.")
	}

	resp, err := s.auth.client.SubmitContact(ctx, form)
	if err != nil {
		return nil, upstream(err, "Error", "Failed to send your message. Please try again.")
	}
	n := info("Message Sent", messageOr(resp, "Thank you for contacting us. We will get back to you soon."))
	return &n, nil
}

// SubmitReview 提交评价；已登录时带上会话令牌
func (s *SupportService) SubmitReview(ctx context.Context, sess *model.AppSession, review *backend.Review) (*Notice, error) {
	review.FullName = strings.TrimSpace(review.FullName)
	review.ReviewText = strings.TrimSpace(review.ReviewText)
	if review.FullName == "" || review.ReviewText == "" {
		return nil, NewValidationError("Missing Information", "Please provide your name and review.")
	}
	if review.Rating < 1 || review.Rating > 5 {
		return nil, NewValidationError("Invalid Rating", "Rating must be between 1 and 5.")
	}

	var (
		resp *backend.MessageResponse
		err  error
	)
	if sess.IsAuthenticated() {
		if review.Email == "" {
			review.Email = sess.Email
		}
		resp, err = withSession(ctx, s.auth, sess, func(token string) (*backend.MessageResponse, error) {
			return s.auth.client.SubmitReview(ctx, token, review)
		})
	} else {
		resp, err = s.auth.client.SubmitReview(ctx, "", review)
	}
	if err != nil {
		return nil, upstream(err, "Error", "Failed to submit review.")
	}
	n := info("Thank You!", messageOr(resp, "Your review has been submitted."))
	return &n, nil
}

// ListReviews 评价列表
func (s *SupportService) ListReviews(ctx context.Context) (interface{}, error) {
	reviews, err := s.auth.client.ListReviews(ctx)
	if err != nil {
		return nil, upstream(err, "Error", "Failed to load reviews.")
	}
	return reviews, nil
}

// RequestService 上门服务申请
func (s *SupportService) RequestService(ctx context.Context, req *backend.ServiceRequest) (*Notice, error) {
	if strings.TrimSpace(req.FullName) == "" || strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.PhoneNumber) == "" {
		return nil, NewValidationError("Missing Information", "Please provide your name, email and phone number.")
	}
	resp, err := s.auth.client.RequestService(ctx, req)
	if err != nil {
		return nil, upstream(err, "Error", "Failed to submit service request.")
	}
	zap.L().Info("收到上门服务申请", zap.String("service_type", req.ServiceType), zap.String("zip", req.ZipCode))
	n := info("Request Received", messageOr(resp, "We will contact you to schedule your service."))
	return &n, nil
}

func messageOr(resp *backend.MessageResponse, fallback string) string {
	if resp != nil && resp.Message != "" {
		return resp.Message
	}
	return fallback
}
