package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"minichat/internal/mocks"
	"minichat/internal/models"
	"minichat/internal/storage"
)

// Smallest valid PNG: signature plus IHDR.
var pngHeader = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
}

func setupUploadRouter(t *testing.T, docs Documents, maxSize int64) (*gin.Engine, *storage.DiskBucket) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	bucket, err := storage.NewDiskBucket(t.TempDir())
	require.NoError(t, err)

	handler := NewUploadHandler(docs, bucket, "http://media.test", maxSize, nil)
	handler.now = func() time.Time { return time.UnixMilli(1700000000000) }

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "u1")
		c.Next()
	})
	r.POST("/uploads/:chat_id", handler.Upload)
	r.GET("/media/*key", handler.Serve)
	return r, bucket
}

func multipartBody(t *testing.T, filename string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestUploadStoresImageAndServesIt(t *testing.T) {
	docs := new(mocks.DocumentsMock)
	router, _ := setupUploadRouter(t, docs, 4<<20)
	docs.On("GetChat", mock.Anything, "dm_1").Return(models.Conversation{ID: "dm_1", Members: []string{"u1", "u2"}}, nil).Once()

	body, contentType := multipartBody(t, "cat photo.png", pngHeader)
	req := httptest.NewRequest(http.MethodPost, "/uploads/dm_1", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "http://media.test/media/chat-media/dm_1/1700000000000_cat_photo.png", resp["url"])
	assert.Equal(t, "image/png", resp["content_type"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/"+resp["key"], nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, pngHeader, rec.Body.Bytes())

	docs.AssertExpectations(t)
}

func TestUploadRejectsNonImage(t *testing.T) {
	docs := new(mocks.DocumentsMock)
	router, _ := setupUploadRouter(t, docs, 4<<20)
	docs.On("GetChat", mock.Anything, "dm_1").Return(models.Conversation{ID: "dm_1", Members: []string{"u1", "u2"}}, nil).Once()

	body, contentType := multipartBody(t, "notes.png", []byte("just some text pretending to be a png"))
	req := httptest.NewRequest(http.MethodPost, "/uploads/dm_1", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	docs := new(mocks.DocumentsMock)
	router, _ := setupUploadRouter(t, docs, 64)
	docs.On("GetChat", mock.Anything, "dm_1").Return(models.Conversation{ID: "dm_1", Members: []string{"u1", "u2"}}, nil).Once()

	content := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 100)...)
	body, contentType := multipartBody(t, "big.png", content)
	req := httptest.NewRequest(http.MethodPost, "/uploads/dm_1", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUploadRequiresMembership(t *testing.T) {
	docs := new(mocks.DocumentsMock)
	router, _ := setupUploadRouter(t, docs, 4<<20)
	docs.On("GetChat", mock.Anything, "dm_x").Return(models.Conversation{ID: "dm_x", Members: []string{"u2", "u3"}}, nil).Once()

	body, contentType := multipartBody(t, "cat.png", pngHeader)
	req := httptest.NewRequest(http.MethodPost, "/uploads/dm_x", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServeMissingAndInvalidKeys(t *testing.T) {
	router, _ := setupUploadRouter(t, new(mocks.DocumentsMock), 4<<20)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/chat-media/dm_1/none.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/media/x", nil)
	req.URL.Path = "/media/" + strings.Repeat("../", 2) + "etc"
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusOK, rec.Code)
}
