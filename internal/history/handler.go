package history

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookshelf/internal/middleware"
)

const lastSearchCount = 5

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/last-search", h.last)
}

func (h *Handler) last(c *gin.Context) {
	userID := middleware.CallerID(c)

	items, err := h.Repo.Last(c.Request.Context(), userID, lastSearchCount)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history lookup failed"})
		return
	}

	c.Header("Cache-Control", "private, no-store")
	c.JSON(http.StatusOK, items)
}
