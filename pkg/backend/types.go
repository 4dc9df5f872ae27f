package backend

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// ==================== 接口路径 ====================

const (
	PathEstimate          = "/items/estimate/"
	PathContactOnly       = "/submissions/contact-only/"
	PathLogin             = "/auth/login/"
	PathTokenRefresh      = "/auth/token/refresh/"
	PathRegister          = "/auth/register/"
	PathOTPCreate         = "/auth/otp/create/"
	PathOTPVerify         = "/auth/otp/verify/"
	PathForgotPassword    = "/auth/forgot-password"
	PathVerifyEmail       = "/auth/verify-email"
	PathResetPassword     = "/auth/reset-password"
	PathChangePassword    = "/auth/change-password"
	PathProfile           = "/auth/profile/"
	PathSubmitContact     = "/auth/submit-contact/"
	PathSubmitReview      = "/auth/submit-review/"
	PathReviews           = "/auth/reviews/"
	PathRequestService    = "/auth/request-service/"
	PathAdminProducts     = "/admin/products/"
	PathAdminUpdateStatus = "/admin/products/update-status/"
	PathAdminUpdatePrice  = "/admin/products/update-price/"
	PathAdminStats        = "/admin/dashboard/stats/"
)

// ==================== Amount ====================

// Amount 金额，兼容数字与数字字符串（Decimal 序列化为字符串）
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*a = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			*a = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*a = Amount(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}

// Float 转为 float64
func (a Amount) Float() float64 {
	return float64(a)
}

// ==================== 估价 ====================

// EstimateItem 估价请求中的单个物品
type EstimateItem struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Condition      string   `json:"condition"`
	Defects        string   `json:"defects"`
	UploadedImages []string `json:"uploaded_images"`
}

// EstimateRequest 批量估价请求
type EstimateRequest struct {
	Items []EstimateItem `json:"items"`
}

// ProductsSummary 估价汇总
type ProductsSummary struct {
	TotalProducts       int         `json:"total_products"`
	TotalEstimatedValue Amount      `json:"total_estimated_value"`
	AverageCondition    string      `json:"average_condition"`
	HighestValueItem    interface{} `json:"highest_value_item"`
	ProcessingCompleted bool        `json:"processing_completed"`
}

// IndividualProduct 单品估价
type IndividualProduct struct {
	TempProductID   int64  `json:"temp_product_id"`
	Title           string `json:"title"`
	Condition       string `json:"condition"`
	EstimatedValue  Amount `json:"estimated_value"`
	PriceRange      string `json:"price_range"`
	ConfidenceLevel string `json:"confidence_level"`
	ImageCount      int    `json:"image_count"`
	Source          string `json:"source,omitempty"`
}

// TempStorage 临时存储信息
type TempStorage struct {
	ExpiresAt      string  `json:"expires_at"`
	ExpiresInHours float64 `json:"expires_in_hours"`
	StorageStatus  string  `json:"storage_status"`
}

// EstimateResponse 批量估价响应
type EstimateResponse struct {
	Status             string              `json:"status"`
	Message            string              `json:"message"`
	TempProductIDs     []int64             `json:"temp_product_ids"`
	ProductsSummary    ProductsSummary     `json:"products_summary"`
	IndividualProducts []IndividualProduct `json:"individual_products"`
	TempStorage        TempStorage         `json:"temp_storage"`
	NextStep           string              `json:"next_step"`
}

// ==================== 提交 ====================

// ContactSubmission 联系人/取件提交
type ContactSubmission struct {
	TempProductIDs        []int64 `json:"temp_product_ids"`
	FullName              string  `json:"full_name"`
	Email                 string  `json:"email"`
	Phone                 string  `json:"phone"`
	PickupDate            string  `json:"pickup_date"`
	PickupAddress         string  `json:"pickup_address"`
	PrivacyPolicyAccepted bool    `json:"privacy_policy_accepted"`
}

// ContactSubmissionResponse 提交响应
type ContactSubmissionResponse struct {
	Status         string                 `json:"status"`
	Message        string                 `json:"message"`
	SubmissionID   int64                  `json:"submission_id"`
	SubmissionData map[string]interface{} `json:"submission_data"`
	Summary        map[string]interface{} `json:"summary"`
	NextSteps      interface{}            `json:"next_steps"`
}

// ==================== 鉴权 ====================

// User 后端用户
type User struct {
	ID         int64  `json:"id"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
	IsVerified bool   `json:"is_verified"`
}

// Profile 用户资料
type Profile struct {
	ID             int64  `json:"id"`
	User           int64  `json:"user"`
	FullName       string `json:"full_name"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profile_picture"`
	PhoneNumber    string `json:"phone_number"`
	Address        string `json:"address"`
	JoinedDate     string `json:"joined_date"`
}

// LoginData 登录结果主体
type LoginData struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	User         User    `json:"user"`
	Profile      Profile `json:"profile"`
}

// LoginResponse 登录响应，兼容包在 data 里与平铺两种形式
type LoginResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    *LoginData `json:"data"`
	LoginData
}

// Result 归一后的登录结果
func (r *LoginResponse) Result() LoginData {
	if r.Data != nil && r.Data.AccessToken != "" {
		return *r.Data
	}
	return r.LoginData
}

// TokenPair 刷新结果
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// RegisterRequest 注册
type RegisterRequest struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// OTPRequest OTP 相关请求
type OTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp,omitempty"`
}

// ResetPasswordRequest 重置密码
type ResetPasswordRequest struct {
	Email           string `json:"email"`
	OTP             string `json:"otp"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ChangePasswordRequest 修改密码
type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ProfileUpdate 资料更新（multipart）
type ProfileUpdate struct {
	FullName    string
	PhoneNumber string
	Address     string
	PictureName string
	Picture     []byte
}

// ProfileResponse 资料响应
type ProfileResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		User    User    `json:"user"`
		Profile Profile `json:"profile"`
	} `json:"data"`
}

// MessageResponse 通用响应
type MessageResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ==================== 管理后台 ====================

// ProductQuery 商品列表查询
type ProductQuery struct {
	Page     int
	PageSize int
	Status   string
	Search   string
	DateFrom string
	DateTo   string
}

// AdminProductItem 商品信息
type AdminProductItem struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Condition   string   `json:"condition"`
	Defects     string   `json:"defects"`
	Images      []string `json:"images"`
}

// AdminCustomer 客户信息
type AdminCustomer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// AdminPrice 价格信息
type AdminPrice struct {
	EstimatedValue    Amount `json:"estimated_value"`
	PriceRange        string `json:"price_range"`
	FinalPrice        Amount `json:"final_price"`
	FinalListingPrice Amount `json:"final_listing_price"`
}

// AdminDates 时间信息
type AdminDates struct {
	SubmittedAt string `json:"submitted_at"`
	UpdatedAt   string `json:"updated_at"`
	PickupDate  string `json:"pickup_date"`
}

// AdminProduct 后台商品
type AdminProduct struct {
	ID       int64            `json:"id"`
	Item     AdminProductItem `json:"item"`
	Customer AdminCustomer    `json:"customer"`
	Status   string           `json:"status"`
	Price    AdminPrice       `json:"price"`
	Date     AdminDates       `json:"date"`
	Actions  interface{}      `json:"actions"`
}

// ProductPage 商品分页
type ProductPage struct {
	Count      int            `json:"count"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
	Products   []AdminProduct `json:"products"`
}

// StatusUpdate 状态变更
type StatusUpdate struct {
	ID         int64  `json:"id"`
	Action     string `json:"action"`
	FinalPrice string `json:"final_price,omitempty"`
}

// PriceUpdate 价格变更
type PriceUpdate struct {
	ID         int64  `json:"id"`
	FinalPrice string `json:"final_price"`
}

// PriceUpdateResponse 价格变更响应
type PriceUpdateResponse struct {
	Message string                 `json:"message"`
	Product map[string]interface{} `json:"product"`
}

// DashboardStats 后台统计
type DashboardStats struct {
	TotalProducts     int    `json:"total_products"`
	PendingProducts   int    `json:"pending_products"`
	ApprovedProducts  int    `json:"approved_products"`
	ListedProducts    int    `json:"listed_products"`
	NotListedProducts int    `json:"not_listed_products"`
	SoldProducts      int    `json:"sold_products"`
	TotalRevenue      Amount `json:"total_revenue"`
}

// ==================== 客服/评价 ====================

// ContactForm 联系表单
type ContactForm struct {
	YourName    string `json:"your_name"`
	YourEmail   string `json:"your_email"`
	YourMessage string `json:"your_message"`
}

// Review 评价
type Review struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email,omitempty"`
	Rating     int    `json:"rating"`
	ReviewText string `json:"review_text"`
}

// ServiceRequest 上门服务申请
type ServiceRequest struct {
	FullName              string `json:"full_name"`
	Email                 string `json:"email"`
	PhoneNumber           string `json:"phone_number"`
	City                  string `json:"city"`
	State                 string `json:"state"`
	ZipCode               string `json:"zip_code"`
	ServiceType           string `json:"service_type"`
	TypesOfItems          string `json:"types_of_items"`
	EstimatedTotalValue   string `json:"estimated_total_value"`
	PreferredTimeframe    string `json:"preferred_timeframe"`
	AdditionalInformation string `json:"additional_information"`
}
