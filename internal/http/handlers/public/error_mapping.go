package public

import (
	"errors"

	"github.com/altruria/storefront/internal/account"
	"github.com/altruria/storefront/internal/apiclient"
	"github.com/altruria/storefront/internal/cart"
	"github.com/altruria/storefront/internal/checkout"
	"github.com/altruria/storefront/internal/constants"
	handlershared "github.com/altruria/storefront/internal/http/handlers/shared"
	"github.com/altruria/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var upstreamErrorRules = []mappedHandlerError{
	{target: apiclient.ErrReauthRequired, code: response.CodeUnauthorized, msg: constants.MsgSessionExpired},
	{target: apiclient.ErrUnauthorized, code: response.CodeUnauthorized, msg: constants.MsgSessionExpired},
	{target: apiclient.ErrNetwork, code: response.CodeBadGateway, msg: constants.MsgNetworkError},
}

var cartErrorRules = []mappedHandlerError{
	{target: cart.ErrInvalidProduct, code: response.CodeBadRequest, msg: constants.MsgInvalidProductID},
	{target: cart.ErrInvalidQuantity, code: response.CodeBadRequest, msg: constants.MsgInvalidQuantity},
}

var checkoutPrepareErrorRules = []mappedHandlerError{
	{target: checkout.ErrCartEmpty, code: response.CodeBadRequest, msg: constants.MsgCartEmptyProceed},
	{target: checkout.ErrLoginRequired, code: response.CodeUnauthorized, msg: constants.MsgLoginToContinue},
}

var checkoutSubmitErrorRules = []mappedHandlerError{
	{target: checkout.ErrCartEmpty, code: response.CodeBadRequest, msg: constants.MsgCartEmpty},
	{target: checkout.ErrLoginRequired, code: response.CodeUnauthorized, msg: constants.MsgLoginRequired},
	{target: checkout.ErrGuestLoginRequired, code: response.CodeUnauthorized, msg: constants.MsgGuestLoginRequired},
	{target: checkout.ErrNotPermitted, code: response.CodeForbidden, msg: constants.MsgOrderNotPermitted},
	{target: checkout.ErrSubmissionInProgress, code: response.CodeConflict, msg: constants.MsgSubmissionInProgress},
	{target: checkout.ErrAlreadySubmitted, code: response.CodeConflict, msg: constants.MsgAlreadySubmitted},
}

var accountErrorRules = []mappedHandlerError{
	{target: account.ErrLoginRequired, code: response.CodeUnauthorized, msg: constants.MsgLoginToContinue},
	{target: account.ErrEmailExists, code: response.CodeConflict, msg: constants.MsgEmailExists},
	{target: account.ErrLocalUserNotFound, code: response.CodeNotFound, msg: constants.MsgLocalUserNotFound},
}

func respondCartError(c *gin.Context, err error) {
	respondWithMappedError(c, err, cartErrorRules, response.CodeInternal, constants.MsgCartUpdateFailed)
}

func respondProductsError(c *gin.Context, err error) {
	respondWithMappedError(c, err, upstreamErrorRules, response.CodeBadGateway, constants.MsgProductsFetchFailed)
}

func respondCheckoutPrepareError(c *gin.Context, err error) {
	respondWithMappedError(c, err, checkoutPrepareErrorRules, response.CodeInternal, constants.MsgOrderProcessingFailed)
}

// respondCheckoutSubmitError 提交失败时优先返回状态机记录的提示，与通知内容一致
func respondCheckoutSubmitError(c *gin.Context, err error, lastError string) {
	if respondValidationError(c, err) {
		return
	}
	rules := concatMappedHandlerErrors(checkoutSubmitErrorRules, upstreamErrorRules)
	var apiErr *apiclient.APIError
	if lastError != "" && (errors.As(err, &apiErr) || errors.Is(err, apiclient.ErrNetwork)) {
		code := response.CodeBadGateway
		if apiErr != nil && apiErr.Status >= 400 && apiErr.Status < 500 {
			code = response.CodeBadRequest
		}
		respondError(c, code, lastError, nil)
		return
	}
	respondWithMappedError(c, err, rules, response.CodeInternal, constants.MsgOrderProcessingFailed)
}

func respondAccountError(c *gin.Context, err error, fallbackMsg string) {
	if respondValidationError(c, err) {
		return
	}
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && !errors.Is(err, apiclient.ErrUnauthorized) {
		respondError(c, response.CodeBadRequest, constants.MsgRequestFailedPrefix+apiErr.Message(), nil)
		return
	}
	rules := concatMappedHandlerErrors(accountErrorRules, upstreamErrorRules)
	respondWithMappedError(c, err, rules, response.CodeInternal, fallbackMsg)
}

// respondLoginError 登录失败统一带前缀返回后端详情
func respondLoginError(c *gin.Context, err error) {
	if respondValidationError(c, err) {
		return
	}
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		code := response.CodeBadRequest
		if apiErr.Status == 401 {
			code = response.CodeUnauthorized
		}
		respondError(c, code, constants.MsgLoginFailedPrefix+apiErr.Message(), nil)
		return
	}
	if errors.Is(err, apiclient.ErrNetwork) {
		respondError(c, response.CodeBadGateway, constants.MsgLoginFailedPrefix+constants.MsgNetworkError, err)
		return
	}
	respondError(c, response.CodeInternal, constants.MsgAccountRequestFailed, err)
}

// respondValidationError 表单校验失败：首条提示作为消息，全部问题放入数据
func respondValidationError(c *gin.Context, err error) bool {
	var checkoutErr *checkout.ValidationError
	if errors.As(err, &checkoutErr) {
		handlershared.RespondErrorWithData(c, response.CodeBadRequest, checkoutErr.First(), gin.H{"problems": checkoutErr.Problems}, nil)
		return true
	}
	var accountErr *account.ValidationError
	if errors.As(err, &accountErr) {
		msg := constants.MsgBadRequest
		if len(accountErr.Messages) > 0 {
			msg = accountErr.Messages[0]
		}
		handlershared.RespondErrorWithData(c, response.CodeBadRequest, msg, gin.H{"messages": accountErr.Messages}, nil)
		return true
	}
	return false
}
