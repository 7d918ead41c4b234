package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"minichat/internal/models"
)

// UserHandler serves the users collection.
type UserHandler struct {
	docs Documents
}

func NewUserHandler(docs Documents) *UserHandler {
	return &UserHandler{docs: docs}
}

// GetUser returns one profile.
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.docs.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// PutUser upserts the caller's own profile.
func (h *UserHandler) PutUser(c *gin.Context) {
	id := c.Param("id")
	if id != callerID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "can only write own profile"})
		return
	}

	var user models.User
	if err := c.ShouldBindJSON(&user); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user.ID = id

	if err := h.docs.SetUser(c.Request.Context(), user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store user"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// BatchUsers resolves many profiles at once. Unknown ids are skipped.
func (h *UserHandler) BatchUsers(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	users, err := h.docs.GetUsers(c.Request.Context(), req.IDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// ListUsers pages through users ordered by id.
func (h *UserHandler) ListUsers(c *gin.Context) {
	q := models.UserQuery{
		ExcludeID: c.Query("exclude"),
		After:     c.Query("after"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		q.Limit = limit
	}

	page, err := h.docs.ListUsers(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}
	if page.Users == nil {
		page.Users = []models.User{}
	}
	c.JSON(http.StatusOK, page)
}
