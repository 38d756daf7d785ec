package account

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/altruria/storefront/internal/constants"

	validatorv10 "github.com/go-playground/validator/v10"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10,15}$`)
)

// LoginForm 登录表单
type LoginForm struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"notblank"`
}

// RegisterForm 注册表单
type RegisterForm struct {
	Username        string `json:"username" validate:"min=3"`
	Email           string `json:"email" validate:"account_email"`
	Password        string `json:"password" validate:"min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"eqfield=Password"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Mobile          string `json:"mobile" validate:"omitempty,account_phone"`
	Address         string `json:"address"`
}

// ProfileForm 资料编辑表单
type ProfileForm struct {
	FullName         string `json:"full_name" validate:"min=2"`
	Email            string `json:"email" validate:"account_email"`
	Phone            string `json:"phone"`
	Address          string `json:"address"`
	PreferredPayment string `json:"preferred_payment" validate:"omitempty,oneof=gcash bank cod"`
}

// SignupForm 本地演示注册表单
type SignupForm struct {
	FirstName string `json:"first_name" validate:"notblank"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" validate:"account_email"`
	Mobile    string `json:"mobile" validate:"omitempty,account_phone"`
	Address   string `json:"address"`
}

func (f LoginForm) normalize() LoginForm {
	return LoginForm{Username: strings.TrimSpace(f.Username), Password: f.Password}
}

func (f RegisterForm) normalize() RegisterForm {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Mobile = strings.TrimSpace(f.Mobile)
	f.Address = strings.TrimSpace(f.Address)
	return f
}

func (f ProfileForm) normalize() ProfileForm {
	return ProfileForm{
		FullName:         strings.Join(strings.Fields(f.FullName), " "),
		Email:            strings.TrimSpace(f.Email),
		Phone:            strings.TrimSpace(f.Phone),
		Address:          strings.TrimSpace(f.Address),
		PreferredPayment: strings.ToLower(strings.TrimSpace(f.PreferredPayment)),
	}
}

func (f SignupForm) normalize() SignupForm {
	return SignupForm{
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		Email:     strings.TrimSpace(f.Email),
		Mobile:    strings.TrimSpace(f.Mobile),
		Address:   strings.TrimSpace(f.Address),
	}
}

// ValidationError 表单校验错误，按字段顺序保存全部提示
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// Is 支持 errors.Is(err, ErrValidation)
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidator() *validatorv10.Validate {
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
	_ = v.RegisterValidation("account_email", func(fl validatorv10.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("account_phone", func(fl validatorv10.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// check 执行校验并转换为用户提示
func check(v *validatorv10.Validate, form interface{}) error {
	err := v.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrors validatorv10.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}
	messages := make([]string, 0, len(fieldErrors))
	seen := map[string]bool{}
	for _, fe := range fieldErrors {
		message := messageFor(fe.Field(), fe.Tag())
		if seen[message] {
			continue
		}
		seen[message] = true
		messages = append(messages, message)
	}
	return &ValidationError{Messages: messages}
}

func messageFor(field, tag string) string {
	switch field {
	case "username":
		if tag == "notblank" {
			return constants.MsgEnterCredentials
		}
		return constants.MsgUsernameTooShort
	case "password":
		if tag == "notblank" {
			return constants.MsgEnterCredentials
		}
		return constants.MsgPasswordTooShort
	case "password_confirm":
		return constants.MsgPasswordMismatch
	case "email":
		return constants.MsgInvalidEmail
	case "mobile":
		return constants.MsgInvalidPhone
	case "full_name":
		return constants.MsgFullNameTooShort
	case "first_name":
		return constants.MsgEnterName
	case "preferred_payment":
		return constants.MsgInvalidPayment
	default:
		return constants.MsgRequestFailedPrefix + field
	}
}
