package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"bluberry_store_v1/internal/model"
	"bluberry_store_v1/internal/service"
)

// RegisterValidators 在 gin 的校验器上注册业务标签
//
//	item_condition: like-new / excellent / good / fair / poor
//	admin_action:   approve / reject / list / unlist
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("不支持的校验引擎: %T", binding.Validator.Engine())
	}
	if err := v.RegisterValidation("item_condition", func(fl validator.FieldLevel) bool {
		return model.IsValidCondition(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("admin_action", func(fl validator.FieldLevel) bool {
		return service.IsAdminAction(fl.Field().String())
	})
}
