package sdk

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"minichat/internal/app"
	"minichat/internal/auth"
	"minichat/internal/docstore"
	"minichat/internal/repositories"
	"minichat/internal/storage"
)

// MaxUploadSize bounds embedded uploads the same way the server relay does.
const MaxUploadSize = 4 << 20

var (
	ErrUploadTooLarge = errors.New("file too large")
	ErrNotAnImage     = errors.New("only images can be uploaded")
	ErrNotMember      = errors.New("not a chat member")
)

// Embedded is an in-process backend over in-memory repositories. Media is
// written below a local directory and addressed with file URLs.
type Embedded struct {
	Identity *auth.Local
	Store    *docstore.Store
	Uploads  *BucketUploader
}

// NewEmbedded builds an embedded backend keeping media under mediaDir.
func NewEmbedded(mediaDir string, sso *auth.JWTManager) (*Embedded, error) {
	root, err := filepath.Abs(mediaDir)
	if err != nil {
		return nil, err
	}
	// PublicURL puts keys under /media/, so the bucket lives there too.
	bucket, err := storage.NewDiskBucket(filepath.Join(root, "media"))
	if err != nil {
		return nil, err
	}

	mem := repositories.NewMemory()
	store := docstore.New(mem, mem, mem, nil)
	identity := auth.NewLocal(auth.NewService(mem, auth.NewJWTManager("embedded", 24*time.Hour), sso))

	return &Embedded{
		Identity: identity,
		Store:    store,
		Uploads: &BucketUploader{
			Bucket:  bucket,
			BaseURL: "file://" + filepath.ToSlash(root),
			Member:  memberCheck(store, identity),
			Now:     time.Now,
		},
	}, nil
}

// Backend bundles the embedded capabilities for internal/app.
func (e *Embedded) Backend() app.Backend {
	return app.Backend{Identity: e.Identity, Docs: e.Store, Uploads: e.Uploads}
}

func memberCheck(store *docstore.Store, identity *auth.Local) func(context.Context, string) error {
	return func(ctx context.Context, chatID string) error {
		current := identity.Current()
		if current == nil {
			return ErrNotSignedIn
		}
		chat, err := store.GetChat(ctx, chatID)
		if err != nil {
			return err
		}
		if !chat.HasMember(current.UID) {
			return ErrNotMember
		}
		return nil
	}
}

// BucketUploader stores images directly in a bucket, applying the checks
// the server relay applies.
type BucketUploader struct {
	Bucket  storage.Bucket
	BaseURL string
	// Member, when set, must accept chatID for the upload to proceed.
	Member func(ctx context.Context, chatID string) error
	Now    func() time.Time
}

func (u *BucketUploader) Upload(ctx context.Context, chatID, filename string, body io.Reader) (string, error) {
	if u.Member != nil {
		if err := u.Member(ctx, chatID); err != nil {
			return "", err
		}
	}
	data, err := io.ReadAll(io.LimitReader(body, MaxUploadSize+1))
	if err != nil {
		return "", err
	}
	if len(data) > MaxUploadSize {
		return "", ErrUploadTooLarge
	}
	if !strings.HasPrefix(mimetype.Detect(data).String(), "image/") {
		return "", ErrNotAnImage
	}

	now := time.Now
	if u.Now != nil {
		now = u.Now
	}
	key := storage.ObjectKey(chatID, filename, now())
	if err := u.Bucket.Put(ctx, key, bytes.NewReader(data)); err != nil {
		return "", err
	}
	return storage.PublicURL(u.BaseURL, key), nil
}
