package library

import (
	"encoding/base64"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"bookshelf/internal/catalog"
	"bookshelf/internal/covers"
	"bookshelf/internal/events"
	"bookshelf/internal/middleware"
	"bookshelf/pkg/models"
)

const maxReviewLen = 2000

type Handler struct {
	Repo   *Repo
	Covers *covers.Resolver
	Hub    *events.Hub
}

func NewHandler(repo *Repo, resolver *covers.Resolver, hub *events.Hub) *Handler {
	return &Handler{Repo: repo, Covers: resolver, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/my-library", h.add)
	rg.GET("/my-library", h.list)
	rg.GET("/my-library/:id", h.getOne)
	rg.PUT("/my-library/:id", h.updateReview)
	rg.DELETE("/my-library/:id", h.remove)
}

type addReq struct {
	OpenLibraryKey   string   `json:"openLibraryKey"`
	Title            string   `json:"title"`
	Authors          []string `json:"authors"`
	FirstPublishYear int      `json:"firstPublishYear"`
	CoverID          *int64   `json:"cover_i"`
	CoverEditionKey  string   `json:"cover_edition_key"`
	CoverBase64      string   `json:"coverBase64"`
	CoverContentType string   `json:"coverContentType"`
	Review           *string  `json:"review"`
	Rating           *float64 `json:"rating"`
}

// add saves a book to the caller's library. When no cover payload is sent it
// tries to download one via the resolver chain; a failed download is logged
// and the entry is still saved.
func (h *Handler) add(c *gin.Context) {
	userID := middleware.CallerID(c)

	var req addReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	key := catalog.NormalizeWorkKey(strings.TrimSpace(req.OpenLibraryKey))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "openLibraryKey required"})
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title required"})
		return
	}
	if req.Review != nil && len(*req.Review) > maxReviewLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "review must be at most 2000 characters"})
		return
	}
	if req.Rating != nil && (*req.Rating < 0 || *req.Rating > 5) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 0 and 5"})
		return
	}

	var coverData []byte
	coverType := req.CoverContentType
	if req.CoverBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.CoverBase64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coverBase64"})
			return
		}
		coverData = data
		if coverType == "" {
			coverType = "image/jpeg"
		}
	} else if h.Covers != nil {
		if url := h.Covers.Resolve(c.Request.Context(), req.CoverID, req.CoverEditionKey, key); url != "" {
			data, ct, err := h.Covers.Download(c.Request.Context(), url)
			if err != nil {
				log.Printf("[library] cover download failed for %s: %v", key, err)
			} else {
				coverData = data
				coverType = ct
			}
		}
	}

	book := models.Book{
		UserID:           userID,
		OpenLibraryKey:   key,
		Title:            title,
		Authors:          req.Authors,
		FirstPublishYear: req.FirstPublishYear,
		CoverID:          req.CoverID,
		CoverData:        coverData,
		CoverContentType: coverType,
		Rating:           req.Rating,
	}
	if req.Review != nil {
		book.Review = *req.Review
	}

	saved, err := h.Repo.Upsert(c.Request.Context(), book)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	if saved == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch saved failed"})
		return
	}

	h.broadcast("library.upsert", saved)

	c.Header("Cache-Control", "private, no-store")
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.CallerID(c)

	q := ListQuery{
		Title:  strings.TrimSpace(c.Query("title")),
		Author: strings.TrimSpace(c.Query("author")),
		Page:   parseInt(c.Query("page"), 1),
		Limit:  parseInt(c.Query("limit"), 20),
	}
	if raw := c.Query("hasReview"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "hasReview must be a boolean"})
			return
		}
		q.HasReview = &v
	}

	items, total, err := h.Repo.List(c.Request.Context(), userID, q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.Header("Cache-Control", "private, no-store")
	c.JSON(http.StatusOK, gin.H{
		"page":  q.Page,
		"limit": q.Limit,
		"total": total,
		"items": items,
	})
}

func (h *Handler) getOne(c *gin.Context) {
	userID := middleware.CallerID(c)

	book, err := h.Repo.GetByID(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if book == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	c.Header("Cache-Control", "private, no-store")
	c.JSON(http.StatusOK, book)
}

type reviewReq struct {
	Review *string  `json:"review"`
	Rating *float64 `json:"rating"`
}

func (h *Handler) updateReview(c *gin.Context) {
	userID := middleware.CallerID(c)

	var req reviewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Review != nil && len(*req.Review) > maxReviewLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "review must be at most 2000 characters"})
		return
	}
	if req.Rating != nil && (*req.Rating < 0 || *req.Rating > 5) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 0 and 5"})
		return
	}

	book, err := h.Repo.UpdateReview(c.Request.Context(), userID, c.Param("id"), req.Review, req.Rating)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if book == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.broadcast("library.upsert", book)

	c.Header("Cache-Control", "private, no-store")
	c.JSON(http.StatusOK, book)
}

func (h *Handler) remove(c *gin.Context) {
	id := c.Param("id")

	ok, err := h.Repo.Remove(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if h.Hub != nil {
		h.Hub.BroadcastJSON(events.Event{
			Type:    "library.remove",
			UserID:  middleware.CallerID(c),
			EntryID: id,
			At:      time.Now().UTC(),
		})
	}

	c.Header("Cache-Control", "private, no-store")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) broadcast(eventType string, book *models.Book) {
	if h.Hub == nil {
		return
	}
	h.Hub.BroadcastJSON(events.Event{
		Type:    eventType,
		UserID:  book.UserID,
		WorkKey: book.OpenLibraryKey,
		EntryID: book.ID,
		At:      time.Now().UTC(),
	})
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
