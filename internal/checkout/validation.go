package checkout

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/altruria/storefront/internal/constants"
	"github.com/altruria/storefront/internal/models"

	validatorv10 "github.com/go-playground/validator/v10"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Form 结算表单输入
type Form struct {
	DeliveryMethod string `json:"delivery_method" validate:"required,oneof=pickup delivery"`
	Name           string `json:"name" validate:"notblank"`
	Phone          string `json:"phone" validate:"notblank"`
	Email          string `json:"email" validate:"notblank,storefront_email"`
	Address        string `json:"address"`
	PaymentMethod  string `json:"payment_method" validate:"omitempty,oneof=gcash bank cod"`
	PickupLocation string `json:"pickup_location"`
}

// Normalize 去除首尾空白，统一枚举大小写
func (f Form) Normalize() Form {
	return Form{
		DeliveryMethod: strings.ToLower(strings.TrimSpace(f.DeliveryMethod)),
		Name:           strings.TrimSpace(f.Name),
		Phone:          strings.TrimSpace(f.Phone),
		Email:          strings.TrimSpace(f.Email),
		Address:        strings.TrimSpace(f.Address),
		PaymentMethod:  strings.ToLower(strings.TrimSpace(f.PaymentMethod)),
		PickupLocation: strings.TrimSpace(f.PickupLocation),
	}
}

// Problem 单个校验问题
type Problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 汇总的表单校验错误
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	messages := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		messages = append(messages, p.Message)
	}
	return strings.Join(messages, "; ")
}

// Is 支持 errors.Is(err, ErrValidation)
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// First 第一条提示（逐条展示时使用）
func (e *ValidationError) First() string {
	if e == nil || len(e.Problems) == 0 {
		return ""
	}
	return e.Problems[0].Message
}

// fieldRank 提示顺序与表单顺序一致
var fieldRank = map[string]int{
	"delivery_method": 0,
	"name":            1,
	"phone":           2,
	"email":           3,
	"address":         4,
	"payment_method":  5,
	"pickup_location": 6,
}

// NewValidator 创建带自定义规则的校验器
func NewValidator() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validatorv10.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("storefront_email", func(fl validatorv10.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	v.RegisterStructValidation(formStructValidation, Form{})
	return v
}

// formStructValidation 按配送方式校验附加字段
func formStructValidation(sl validatorv10.StructLevel) {
	form := sl.Current().Interface().(Form)
	switch form.DeliveryMethod {
	case models.DeliveryMethodDelivery:
		if strings.TrimSpace(form.Address) == "" {
			sl.ReportError(form.Address, "address", "Address", "required_for_delivery", "")
		}
		if strings.TrimSpace(form.PaymentMethod) == "" {
			sl.ReportError(form.PaymentMethod, "payment_method", "PaymentMethod", "required_for_delivery", "")
		}
	case models.DeliveryMethodPickup:
		if strings.TrimSpace(form.PickupLocation) == "" {
			sl.ReportError(form.PickupLocation, "pickup_location", "PickupLocation", "required_for_pickup", "")
		}
	}
}

// Validate 校验表单，返回全部问题（按表单顺序）
func Validate(v *validatorv10.Validate, form Form) error {
	err := v.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrors validatorv10.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}
	problems := make([]Problem, 0, len(fieldErrors))
	seen := map[string]bool{}
	for _, fe := range fieldErrors {
		field := fe.Field()
		if seen[field] {
			continue
		}
		seen[field] = true
		problems = append(problems, Problem{Field: field, Message: messageFor(field, fe.Tag())})
	}
	sort.SliceStable(problems, func(i, j int) bool {
		return fieldRank[problems[i].Field] < fieldRank[problems[j].Field]
	})
	return &ValidationError{Problems: problems}
}

func messageFor(field, tag string) string {
	switch field {
	case "delivery_method":
		return constants.MsgSelectDeliveryMethod
	case "name":
		return constants.MsgEnterName
	case "phone":
		return constants.MsgEnterPhone
	case "email":
		if tag == "storefront_email" {
			return constants.MsgInvalidEmail
		}
		return constants.MsgEnterEmail
	case "address":
		return constants.MsgEnterAddress
	case "payment_method":
		if tag == "oneof" {
			return constants.MsgInvalidPayment
		}
		return constants.MsgSelectPayment
	case "pickup_location":
		return constants.MsgSelectPickup
	default:
		return constants.MsgOrderProcessingFailed
	}
}
