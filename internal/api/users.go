package api

import (
	"net/http"

	"onlinejudge/internal/apperror"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListUsers(c *gin.Context) {
	c.JSON(http.StatusOK, h.state.ListUsers())
}

// UpsertUser implements POST /users: {name} creates, {id,name} renames,
// per spec.md §6.
func (h *Handler) UpsertUser(c *gin.Context) {
	var req struct {
		ID   *uint64 `json:"id"`
		Name string  `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperror.InvalidArgumentf("malformed request body: %v", err))
		return
	}
	if req.Name == "" {
		writeError(c, apperror.InvalidArgumentf("name is required"))
		return
	}

	ctx := c.Request.Context()
	if req.ID == nil {
		u, err := h.state.CreateUser(ctx, req.Name)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
		return
	}

	u, err := h.state.RenameUser(ctx, *req.ID, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
