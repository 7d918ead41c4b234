package app

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"minichat/internal/auth"
	"minichat/internal/docstore"
	"minichat/internal/models"
	"minichat/internal/repositories"
)

type fixture struct {
	store    *docstore.Store
	identity *auth.Local
	docs     *countingDocs
	uploads  *fakeUploader
	sso      *auth.JWTManager
	backend  Backend
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := repositories.NewMemory()
	store := docstore.New(mem, mem, mem, nil)
	sso := auth.NewJWTManager("sso-secret", time.Minute)
	svc := auth.NewService(mem, auth.NewJWTManager("session-secret", time.Hour), sso)
	identity := auth.NewLocal(svc)
	docs := &countingDocs{Store: store}
	uploads := &fakeUploader{}
	return &fixture{
		store:    store,
		identity: identity,
		docs:     docs,
		uploads:  uploads,
		sso:      sso,
		backend:  Backend{Identity: identity, Docs: docs, Uploads: uploads},
	}
}

func (f *fixture) user(t *testing.T, id, name string) models.User {
	t.Helper()
	u := models.User{ID: id, Name: name, Avatar: PlaceholderAvatar(id), Email: id + "@example.com"}
	require.NoError(t, f.store.SetUser(context.Background(), u))
	return u
}

func (f *fixture) chat(t *testing.T, id string, updatedAt time.Time, members ...string) models.Conversation {
	t.Helper()
	c, _, err := f.store.CreateChatIfAbsent(context.Background(), models.Conversation{ID: id, Members: members, UpdatedAt: updatedAt})
	require.NoError(t, err)
	return c
}

// countingDocs records writes so tests can assert that none happened.
type countingDocs struct {
	*docstore.Store
	adds      atomic.Int32
	summaries atomic.Int32
	failSet   error
	// stallReads makes GetUser wait for the caller to give up.
	stallReads bool
}

func (d *countingDocs) GetUser(ctx context.Context, userID string) (models.User, error) {
	if d.stallReads {
		<-ctx.Done()
		return models.User{}, ctx.Err()
	}
	return d.Store.GetUser(ctx, userID)
}

func (d *countingDocs) AddMessage(ctx context.Context, chatID string, msg models.Message) (models.Message, error) {
	d.adds.Add(1)
	return d.Store.AddMessage(ctx, chatID, msg)
}

func (d *countingDocs) UpdateChatSummary(ctx context.Context, chatID string, last models.LastMessage, updatedAt time.Time) error {
	d.summaries.Add(1)
	return d.Store.UpdateChatSummary(ctx, chatID, last, updatedAt)
}

func (d *countingDocs) SetUser(ctx context.Context, user models.User) error {
	if d.failSet != nil {
		return d.failSet
	}
	return d.Store.SetUser(ctx, user)
}

type fakeUploader struct {
	url string
	err error
	got []byte
}

func (u *fakeUploader) Upload(_ context.Context, chatID, filename string, body io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	u.got = data
	if u.url != "" {
		return u.url, nil
	}
	return "http://localhost/media/chat-media/" + chatID + "/1_" + filename, nil
}

var errBoom = errors.New("boom")
