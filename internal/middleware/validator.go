package middleware

import (
	"errors"
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"storefront_v1_202610/pkg/utils"
)

var hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// RegisterValidators 在 gin 的校验器上注册自定义 tag
//
//	slug       小写字母、数字、中划线（空值交给 omitempty / required 处理）
//	hexcolor6  #RGB 或 #RRGGBB
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin 校验器不是 validator/v10")
	}

	if err := v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || utils.IsValidSlug(s)
	}); err != nil {
		return err
	}

	return v.RegisterValidation("hexcolor6", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || hexColorRe.MatchString(s)
	})
}
