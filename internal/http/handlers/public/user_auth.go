package public

import (
	"strings"

	"github.com/altruria/storefront/internal/account"
	"github.com/altruria/storefront/internal/constants"
	"github.com/altruria/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// LocalLoginRequest 本地演示账号登录请求
type LocalLoginRequest struct {
	Email string `json:"email" binding:"required"`
}

// UserLogin 用户名密码登录
func (h *Handler) UserLogin(c *gin.Context) {
	var req account.LoginForm
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, constants.MsgBadRequest, err)
		return
	}
	user, err := h.AccountService.Login(c.Request.Context(), req)
	if err != nil {
		respondLoginError(c, err)
		return
	}
	response.SuccessWithMsg(c, constants.MsgLoggedIn, gin.H{"user": user})
}

// UserRegister 注册后端账号
func (h *Handler) UserRegister(c *gin.Context) {
	var req account.RegisterForm
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, constants.MsgBadRequest, err)
		return
	}
	user, err := h.AccountService.Register(c.Request.Context(), req)
	if err != nil {
		respondAccountError(c, err, constants.MsgAccountRequestFailed)
		return
	}
	response.SuccessWithMsg(c, constants.MsgRegistered, gin.H{"user": user})
}

// UserLogout 登出
func (h *Handler) UserLogout(c *gin.Context) {
	if err := h.AccountService.Logout(c.Request.Context()); err != nil {
		respondAccountError(c, err, constants.MsgAccountRequestFailed)
		return
	}
	response.SuccessWithMsg(c, constants.MsgLoggedOut, nil)
}

// LocalSignup 本地演示注册
func (h *Handler) LocalSignup(c *gin.Context) {
	var req account.SignupForm
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, constants.MsgBadRequest, err)
		return
	}
	user, err := h.AccountService.SignupLocal(c.Request.Context(), req)
	if err != nil {
		respondAccountError(c, err, constants.MsgAccountRequestFailed)
		return
	}
	response.Success(c, gin.H{"user": user})
}

// LocalLogin 本地演示账号登录
func (h *Handler) LocalLogin(c *gin.Context) {
	var req LocalLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, constants.MsgBadRequest, err)
		return
	}
	user, err := h.AccountService.LoginLocal(c.Request.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		respondAccountError(c, err, constants.MsgAccountRequestFailed)
		return
	}
	response.Success(c, gin.H{"user": user})
}
