package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tripbuddy/internal/domain"
	"tripbuddy/internal/service"
	mdw "tripbuddy/internal/transport/http/middleware"
	resp "tripbuddy/internal/transport/http/response"
)

type UserHandler struct {
	svc *service.UserService
	log *zap.Logger
}

func NewUserHandler(svc *service.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, log: log}
}

// GetByID GET /api/users/:id
func (h *UserHandler) GetByID(c *gin.Context) {
	view, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		resp.FromError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Profile GET /api/profile，roles 按现有行为不返回
func (h *UserHandler) Profile(c *gin.Context) {
	ident, ok := mdw.IdentityFrom(c)
	if !ok {
		resp.Fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	profile, err := h.svc.Profile(c.Request.Context(), ident.ID)
	if err != nil {
		resp.FromError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile PUT /api/profile，只动非敏感字段
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	ident, ok := mdw.IdentityFrom(c)
	if !ok {
		resp.Fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	var patch service.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		resp.Fail(c, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.svc.UpdateProfile(c.Request.Context(), ident.ID, patch); err != nil {
		resp.FromError(c, h.log, err)
		return
	}
	resp.OK(c, "profile updated successfully")
}

type deleteAccountReq struct {
	Password string `json:"password"`
}

// DeleteAccount DELETE /api/profile，需重验密码
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	ident, ok := mdw.IdentityFrom(c)
	if !ok {
		resp.Fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	// 缺失或坏掉的 body 当作空密码，走凭据校验失败
	var req deleteAccountReq
	_ = c.ShouldBindJSON(&req)
	if err := h.svc.DeleteAccount(c.Request.Context(), ident.ID, req.Password); err != nil {
		resp.FromError(c, h.log, err)
		return
	}
	resp.OK(c, "account deleted successfully")
}

// Create POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var in service.CreateUserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		resp.Fail(c, http.StatusBadRequest, "invalid request payload")
		return
	}
	view, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		resp.FromError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// AdminUpdate PUT /api/users/:id
func (h *UserHandler) AdminUpdate(c *gin.Context) {
	// 坏掉的 body 等价于空补丁，沿用原有行为
	var patch service.UserPatch
	_ = c.ShouldBindJSON(&patch)
	if err := h.svc.AdminUpdate(c.Request.Context(), c.Param("id"), patch); err != nil {
		resp.FromError(c, h.log, err)
		return
	}
	resp.OK(c, "user updated successfully")
}

// AdminDelete DELETE /api/users/:id，目标本人或 admin 才放行
func (h *UserHandler) AdminDelete(c *gin.Context) {
	ident, ok := mdw.IdentityFrom(c)
	if !ok {
		resp.Fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.AdminDelete(c.Request.Context(), c.Param("id"), ident); err != nil {
		resp.FromError(c, h.log, err)
		return
	}
	resp.OK(c, "user deleted successfully")
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResp struct {
	Token string `json:"token"`
}

// Login POST /api/login
func (h *UserHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Fail(c, http.StatusBadRequest, "invalid request payload")
		return
	}
	token, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			resp.Fail(c, http.StatusUnauthorized, "invalid credentials")
			return
		}
		resp.FromError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, loginResp{Token: token})
}
