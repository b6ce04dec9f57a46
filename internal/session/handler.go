package session

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxValueBytes bounds the JSON body accepted by PUT /session/values/:key
const maxValueBytes = 1 << 20

// Handler exposes the bound Session over HTTP
type Handler struct {
	store  *Store
	logger *zap.Logger
}

// NewHandler creates a new session HTTP handler
func NewHandler(store *Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// Register mounts the session routes on r behind the session middleware
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/session", Middleware(h.store))
	g.GET("", h.GetSession)
	g.DELETE("", h.ClearSession)
	g.POST("/rotate", h.RotateSession)
	g.GET("/values/:key", h.GetValue)
	g.PUT("/values/:key", h.SetValue)
	g.DELETE("/values/:key", h.DeleteValue)
}

// SessionResponse is returned by GET /session
type SessionResponse struct {
	ID     string `json:"id"`
	Values Record `json:"values"`
}

// ValueResponse is returned by GET /session/values/:key
type ValueResponse struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// RotateResponse is returned by POST /session/rotate
type RotateResponse struct {
	ID   string `json:"id"`
	Kept bool   `json:"kept"`
}

// GetSession returns the session id and the whole record
func (h *Handler) GetSession(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	values, err := sess.Values()
	if err != nil {
		h.fail(c, "Failed to read session", err)
		return
	}
	id, err := sess.ID()
	if err != nil {
		h.fail(c, "Failed to resolve session id", err)
		return
	}

	c.JSON(http.StatusOK, SessionResponse{ID: id, Values: values})
}

// GetValue returns one value, or 404 when the key is absent
func (h *Handler) GetValue(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	key := c.Param("key")
	value, found, err := sess.Get(key)
	if err != nil {
		h.fail(c, "Failed to read session value", err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "key not found", "key": key})
		return
	}

	c.JSON(http.StatusOK, ValueResponse{Key: key, Value: value})
}

// SetValue stores the JSON request body under the key. A JSON null removes
// the key.
func (h *Handler) SetValue(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxValueBytes)
	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "value too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	var value any
	if err := decodeJSON(body, &value); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be a JSON value"})
		return
	}

	if err := sess.Set(c.Param("key"), value); err != nil {
		h.fail(c, "Failed to write session value", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteValue removes one key
func (h *Handler) DeleteValue(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	if err := sess.Delete(c.Param("key")); err != nil {
		h.fail(c, "Failed to delete session value", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ClearSession removes the whole record
func (h *Handler) ClearSession(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	if err := sess.Clear(); err != nil {
		h.fail(c, "Failed to clear session", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RotateSession issues a new id. With keep=true the record moves to the new
// id; otherwise the client starts over with an empty record.
func (h *Handler) RotateSession(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	keep := false
	if raw := c.Query("keep"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "keep must be a boolean"})
			return
		}
		keep = v
	}

	var (
		id  string
		err error
	)
	if keep {
		id, err = sess.Rotate()
	} else {
		id, err = sess.ChangeID()
	}
	if err != nil {
		h.fail(c, "Failed to rotate session id", err)
		return
	}

	c.JSON(http.StatusOK, RotateResponse{ID: id, Kept: keep})
}

func (h *Handler) session(c *gin.Context) (*Session, bool) {
	sess, ok := FromContext(c)
	if !ok {
		h.logger.Error("Session middleware not installed", zap.String("path", c.FullPath()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
		return nil, false
	}
	return sess, true
}

func (h *Handler) fail(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
