package handler

import (
	"errors"
	"strings"

	"dmsync/backend/internal/apperrors"
	"dmsync/backend/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	ctxSubject = "auth_subject"
	ctxUser    = "user"
)

// RequireToken verifies the bearer token and stores its subject.
func (h *Handler) RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			h.errors.Handle(c, apperrors.NewUnauthenticated("authorization token missing"))
			return
		}

		identity, err := h.Verifier.Verify(c.Request.Context(), token)
		if err != nil {
			h.errors.Handle(c, err)
			return
		}
		c.Set(ctxSubject, identity.Subject)
		c.Next()
	}
}

// RequireUser resolves the token subject to a registered user and records
// the user as active. It must run after RequireToken.
func (h *Handler) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.Accounts.GetByAuthSubject(c.Request.Context(), c.GetString(ctxSubject))
		if errors.Is(err, apperrors.ErrNotFound) {
			h.errors.Handle(c, apperrors.NewUnauthenticated("user is not registered"))
			return
		}
		if err != nil {
			h.errors.Handle(c, err)
			return
		}

		if err := h.Accounts.TouchLastActiveAt(c.Request.Context(), user.ID); err != nil {
			h.logger.Warnw("Failed to record last activity", "user_id", user.ID, "error", err)
		}

		c.Set(ctxUser, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	return c.MustGet(ctxUser).(*models.User)
}
