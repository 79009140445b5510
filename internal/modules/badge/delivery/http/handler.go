package handler

import (
	"net/http"

	badge "bayanika.app/backend/internal/modules/badge/service"
	"bayanika.app/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type BadgeHandler struct {
	service badge.BadgeService
}

func NewBadgeHandler(service badge.BadgeService) *BadgeHandler {
	return &BadgeHandler{service: service}
}

func (h *BadgeHandler) ListBadges(c *gin.Context) {
	badges, err := h.service.ListBadges(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, badges)
}

func (h *BadgeHandler) GetMyBadges(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	badges, err := h.service.GetUserBadges(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, badges)
}
