package utils

import (
	"regexp"
	"strings"
)

var (
	phoneStripper = regexp.MustCompile(`[\s()\-]`)
	nonDigit      = regexp.MustCompile(`\D`)
	usLocal       = regexp.MustCompile(`^\d{10}$`)
	usWithCountry = regexp.MustCompile(`^1\d{10}$`)
)

// NormalizePhoneForAPI 转成后端需要的 E.164 风格
// 已带 + 的原样去掉分隔符；10 位按美国号码补 +1；1 开头的 11 位补 +；其余直接补 +
// 不校验位数是否合法
func NormalizePhoneForAPI(phone string) string {
	cleaned := phoneStripper.ReplaceAllString(strings.TrimSpace(phone), "")
	if cleaned == "" {
		return ""
	}
	if strings.HasPrefix(cleaned, "+") {
		return cleaned
	}
	switch {
	case usLocal.MatchString(cleaned):
		return "+1" + cleaned
	case usWithCountry.MatchString(cleaned):
		return "+" + cleaned
	default:
		return "+" + cleaned
	}
}

// FormatPhoneDisplay 输入过程中的展示格式 (123) 456-7890，最多 10 位
func FormatPhoneDisplay(input string) string {
	digits := nonDigit.ReplaceAllString(input, "")
	if len(digits) > 10 {
		digits = digits[:10]
	}

	switch {
	case len(digits) <= 3:
		return digits
	case len(digits) <= 6:
		return "(" + digits[:3] + ") " + digits[3:]
	default:
		return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]
	}
}
