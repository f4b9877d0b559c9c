package covers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Store is the stored-cover lookup the handler needs from the library repo.
type Store interface {
	CoverByID(ctx context.Context, coverID int64) ([]byte, string, error)
}

// Handler streams cover images: stored covers are served from the library
// (long-lived, immutable); anything else is proxied from the upstream cover
// service with a short cache lifetime.
type Handler struct {
	Store    Store
	Resolver *Resolver
}

func NewHandler(store Store, resolver *Resolver) *Handler {
	return &Handler{Store: store, Resolver: resolver}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/library/front-cover/:cover_i", h.stream)
}

func (h *Handler) stream(c *gin.Context) {
	coverID, err := strconv.ParseInt(c.Param("cover_i"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cover id"})
		return
	}

	data, contentType, err := h.Store.CoverByID(c.Request.Context(), coverID)
	if err != nil {
		// fall through to the upstream proxy; a broken store lookup
		// should not hide a cover that upstream can still serve
		log.Printf("[covers] stored cover lookup failed for %d: %v", coverID, err)
	}
	if len(data) > 0 {
		if contentType == "" {
			contentType = "image/jpeg"
		}
		c.Header("Cache-Control", "public, max-age=31536000, immutable")
		c.Data(http.StatusOK, contentType, data)
		return
	}

	url := fmt.Sprintf("%s/b/id/%d-L.jpg", h.Resolver.CoversURL, coverID)
	body, contentType, err := h.Resolver.Download(c.Request.Context(), url)
	if err != nil {
		log.Printf("[covers] upstream fetch failed for %d: %v", coverID, err)
		c.JSON(http.StatusNotFound, gin.H{"error": "cover not available"})
		return
	}

	c.Header("Cache-Control", "public, max-age=120")
	c.Data(http.StatusOK, contentType, body)
}
