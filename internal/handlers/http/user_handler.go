package http

import (
	"net/http"
	"strconv"

	"hudcast/internal/core/domain"
	"hudcast/internal/core/ports"
	"hudcast/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService ports.UserService
	audit       ports.AuditRepository
}

func NewUserHandler(userService ports.UserService, audit ports.AuditRepository) *UserHandler {
	return &UserHandler{
		userService: userService,
		audit:       audit,
	}
}

// SetupRoutes registers the authenticated user endpoints.
func (h *UserHandler) SetupRoutes(api *gin.RouterGroup) {
	api.GET("/users", h.PublicList)
}

// SetupAdminRoutes registers the account management endpoints; the group
// carries AdminMiddleware.
func (h *UserHandler) SetupAdminRoutes(admin *gin.RouterGroup) {
	admin.GET("/users", h.List)
	admin.POST("/users", h.Create)
	admin.PATCH("/users/:id", h.Update)
	admin.POST("/users/:id/reset-password", h.ResetPassword)
	admin.GET("/audit", h.AuditLog)
}

func (h *UserHandler) PublicList(c *gin.Context) {
	users, err := h.userService.PublicList(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type CreateUserRequest struct {
	Username    string `json:"username" binding:"required,max=50"`
	DisplayName string `json:"displayName" binding:"required,max=100"`
	Password    string `json:"password" binding:"required,max=128"`
	Role        string `json:"role" binding:"required"`
}

func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := middleware.CurrentUser(c)
	user, err := h.userService.Create(c.Request.Context(), actor,
		req.Username, req.DisplayName, req.Password, domain.UserRole(req.Role))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

type UpdateUserRequest struct {
	DisplayName *string `json:"displayName"`
	Role        *string `json:"role"`
	Disabled    *bool   `json:"disabled"`
}

func (h *UserHandler) Update(c *gin.Context) {
	var req UpdateUserRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var role *domain.UserRole
	if req.Role != nil {
		r := domain.UserRole(*req.Role)
		role = &r
	}

	actor := middleware.CurrentUser(c)
	user, err := h.userService.Update(c.Request.Context(), actor,
		domain.UserID(c.Param("id")), req.DisplayName, role, req.Disabled)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,max=128"`
}

func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := middleware.CurrentUser(c)
	if err := h.userService.ResetPassword(c.Request.Context(), actor,
		domain.UserID(c.Param("id")), req.Password); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "password reset"})
}

const auditLogMaxLimit = 100

func (h *UserHandler) AuditLog(c *gin.Context) {
	limit := auditLogMaxLimit
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		if parsed > auditLogMaxLimit {
			parsed = auditLogMaxLimit
		}
		limit = parsed
	}

	entries, err := h.audit.Recent(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
