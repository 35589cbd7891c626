package handler

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"elearning/backend/internal/model"
)

const (
	assignmentTypeTag = "assignment_type"
	discountCodeTag   = "discount_code"
)

var (
	discountCodeRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	registerOnce      sync.Once
	registerErr       error
)

// RegisterValidators 在 gin 的 validator 引擎上注册自定义校验标签，可重复调用
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		// 校验错误中使用 JSON 字段名
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		if registerErr = v.RegisterValidation(assignmentTypeTag, assignmentTypeValidation); registerErr != nil {
			return
		}
		registerErr = v.RegisterValidation(discountCodeTag, discountCodeValidation)
	})
	return registerErr
}

func assignmentTypeValidation(fl validator.FieldLevel) bool {
	return model.IsValidAssignmentType(fl.Field().String())
}

// 比较前先规范化，允许前后空白与小写
func discountCodeValidation(fl validator.FieldLevel) bool {
	return discountCodeRegex.MatchString(model.NormalizeDiscountCode(fl.Field().String()))
}
