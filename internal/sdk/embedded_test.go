package sdk

import (
	"bytes"
	"context"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minichat/internal/app"
	"minichat/internal/models"
)

func TestEmbeddedUpload(t *testing.T) {
	dir := t.TempDir()
	e, err := NewEmbedded(dir, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = e.Uploads.Upload(ctx, "dm_1", "cat.png", bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, ErrNotSignedIn)

	form := app.NewAuthForm(e.Backend())
	form.Mode = app.ModeSignUp
	form.Name, form.Email, form.Password = "Alice", "alice@example.com", "secret1"
	identity, err := form.Submit(ctx)
	require.NoError(t, err)

	_, _, err = e.Store.CreateChatIfAbsent(ctx, models.Conversation{ID: "dm_1", Members: []string{identity.UID, "bob"}})
	require.NoError(t, err)
	_, _, err = e.Store.CreateChatIfAbsent(ctx, models.Conversation{ID: "dm_2", Members: []string{"carol", "bob"}})
	require.NoError(t, err)

	_, err = e.Uploads.Upload(ctx, "dm_2", "cat.png", bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, ErrNotMember)
	_, err = e.Uploads.Upload(ctx, "dm_1", "notes.txt", bytes.NewReader([]byte("hello")))
	assert.ErrorIs(t, err, ErrNotAnImage)
	_, err = e.Uploads.Upload(ctx, "dm_1", "huge.png", bytes.NewReader(append(append([]byte{}, pngHeader...), make([]byte, MaxUploadSize)...)))
	assert.ErrorIs(t, err, ErrUploadTooLarge)

	link, err := e.Uploads.Upload(ctx, "dm_1", "cat.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "file", u.Scheme)

	data, err := os.ReadFile(filepath.FromSlash(u.Path))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
}
