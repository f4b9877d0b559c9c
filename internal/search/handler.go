package search

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bookshelf/internal/middleware"
)

type Handler struct {
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.search)
}

func (h *Handler) search(c *gin.Context) {
	userID := middleware.CallerID(c)

	resp, err := h.Service.Search(c.Request.Context(), userID, c.Query("q"))
	if err != nil {
		if errors.Is(err, ErrQueryTooShort) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "book search upstream failed"})
		return
	}

	c.Header("Cache-Control", "public, max-age=600, stale-while-revalidate=60")
	c.Header("Vary", "Accept, Accept-Encoding, userid, x-user-id, Authorization")
	c.JSON(http.StatusOK, resp)
}
