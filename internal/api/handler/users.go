package handler

import (
	"net/http"
	"strings"

	"dmsync/backend/internal/apperrors"

	"github.com/gin-gonic/gin"
)

type createUserRequest struct {
	Email       string  `json:"email" binding:"required"`
	DisplayName *string `json:"display_name"`
}

// CreateUser provisions the account bound to the caller's token.
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errors.Handle(c, apperrors.Wrap(err, apperrors.InvalidRequest, "email is required"))
		return
	}

	user, err := h.Accounts.CreateUser(c.Request.Context(), c.GetString(ctxSubject), req.Email, req.DisplayName)
	if err != nil {
		h.errors.Handle(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

// LastActive accepts ids as a comma separated list, a repeated parameter, or both.
func (h *Handler) LastActive(c *gin.Context) {
	var ids []string
	for _, raw := range c.QueryArray("ids") {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		h.errors.Handle(c, apperrors.NewInvalidRequest("ids are required"))
		return
	}

	lastActive, err := h.Accounts.GetLastActiveAt(c.Request.Context(), ids)
	if err != nil {
		h.errors.Handle(c, err)
		return
	}
	c.JSON(http.StatusOK, lastActive)
}

func (h *Handler) ListProfiles(c *gin.Context) {
	profiles, err := h.Accounts.ListProfiles(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.errors.Handle(c, err)
		return
	}
	c.JSON(http.StatusOK, profiles)
}

func (h *Handler) GetProfile(c *gin.Context) {
	profile, err := h.Accounts.GetProfile(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.errors.Handle(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
