package model

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

const RoleAdmin = "admin"

// AppSession 登录会话容器，保存后端令牌与用户信息
type AppSession struct {
	BaseModel
	SessionKey      string         `gorm:"size:64;uniqueIndex;not null;comment:会话键"`
	AccessToken     string         `gorm:"type:text;comment:访问令牌"`
	RefreshToken    string         `gorm:"type:text;comment:刷新令牌"`
	UserID          int64          `gorm:"index;comment:后端用户ID"`
	Email           string         `gorm:"size:255;comment:邮箱"`
	FullName        string         `gorm:"size:128;comment:姓名"`
	Role            string         `gorm:"size:32;comment:角色"`
	IsVerified      bool           `gorm:"comment:邮箱是否验证"`
	Profile         datatypes.JSON `gorm:"comment:用户资料"`
	ConsoleUnlocked bool           `gorm:"comment:后台口令是否已验证"`
	ExpiresAt       time.Time      `gorm:"index;comment:过期时间"`
}

func (*AppSession) TableName() string {
	return "app_sessions"
}

// SessionIdentity 登录成功后写入会话的身份信息
type SessionIdentity struct {
	UserID     int64
	Email      string
	FullName   string
	Role       string
	IsVerified bool
	Profile    datatypes.JSON
}

// Init 登录时初始化会话
func (s *AppSession) Init(access, refresh string, id SessionIdentity, ttl time.Duration, now time.Time) {
	s.AccessToken = access
	s.RefreshToken = refresh
	s.UserID = id.UserID
	s.Email = id.Email
	s.FullName = id.FullName
	s.Role = id.Role
	s.IsVerified = id.IsVerified
	s.Profile = id.Profile
	s.ConsoleUnlocked = false
	s.ExpiresAt = now.Add(ttl)
}

// Teardown 清空令牌与身份
func (s *AppSession) Teardown() {
	s.AccessToken = ""
	s.RefreshToken = ""
	s.UserID = 0
	s.Email = ""
	s.FullName = ""
	s.Role = ""
	s.IsVerified = false
	s.Profile = nil
	s.ConsoleUnlocked = false
}

// IsAuthenticated 是否持有访问令牌
func (s *AppSession) IsAuthenticated() bool {
	return s != nil && s.AccessToken != ""
}

// IsAdmin 是否管理员
func (s *AppSession) IsAdmin() bool {
	return s.IsAuthenticated() && strings.EqualFold(s.Role, RoleAdmin)
}

// Expired 是否已过期
func (s *AppSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
