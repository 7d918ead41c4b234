package handlers

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"minichat/internal/observability"
	"minichat/internal/storage"
	"minichat/internal/telemetry"
)

// UploadHandler relays chat attachments into the media bucket.
type UploadHandler struct {
	docs    Documents
	bucket  storage.Bucket
	baseURL string
	maxSize int64
	audit   *telemetry.AuditEmitter
	now     func() time.Time
}

func NewUploadHandler(docs Documents, bucket storage.Bucket, baseURL string, maxSize int64, audit *telemetry.AuditEmitter) *UploadHandler {
	return &UploadHandler{
		docs:    docs,
		bucket:  bucket,
		baseURL: baseURL,
		maxSize: maxSize,
		audit:   audit,
		now:     time.Now,
	}
}

// Upload stores one image attached to a conversation the caller belongs to
// and returns its public URL.
func (h *UploadHandler) Upload(c *gin.Context) {
	chat, ok := loadMemberChat(c, h.docs)
	if !ok {
		observability.IncUpload("denied")
		return
	}

	// Leave room for the multipart envelope around the file.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxSize+64<<10)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.reject(c, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		h.reject(c, http.StatusBadRequest, "missing file")
		return
	}
	if header.Size > h.maxSize {
		h.reject(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	file, err := header.Open()
	if err != nil {
		h.reject(c, http.StatusBadRequest, "unreadable file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxSize+1))
	if err != nil {
		h.reject(c, http.StatusBadRequest, "unreadable file")
		return
	}
	if int64(len(data)) > h.maxSize {
		h.reject(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		h.reject(c, http.StatusUnsupportedMediaType, "only images can be uploaded")
		return
	}

	key := storage.ObjectKey(chat.ID, header.Filename, h.now())
	if err := h.bucket.Put(c.Request.Context(), key, bytes.NewReader(data)); err != nil {
		log.Printf("upload store failed chat_id=%s key=%s: %v", chat.ID, key, err)
		observability.IncUpload("error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
		return
	}

	observability.IncUpload("ok")
	h.audit.Emit(c.Request.Context(), "INFO", "upload", "stored "+key, callerID(c))
	c.JSON(http.StatusCreated, gin.H{
		"url":          storage.PublicURL(h.baseURL, key),
		"key":          key,
		"content_type": mt.String(),
	})
}

// Serve streams a stored object with a sniffed content type.
func (h *UploadHandler) Serve(c *gin.Context) {
	key, err := storage.CleanKey(c.Param("key"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key"})
		return
	}

	rc, err := h.bucket.Open(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open file"})
		return
	}
	defer rc.Close()

	br := bufio.NewReaderSize(rc, 3072)
	head, _ := br.Peek(3072)
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.DataFromReader(http.StatusOK, -1, mimetype.Detect(head).String(), br, nil)
}

func (h *UploadHandler) reject(c *gin.Context, status int, msg string) {
	observability.IncUpload("rejected")
	c.JSON(status, gin.H{"error": msg})
}
