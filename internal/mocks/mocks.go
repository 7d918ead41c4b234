package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"minichat/internal/models"
	"minichat/internal/repositories"
)

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) CreateChatIfAbsent(ctx context.Context, chat models.Conversation) (models.Conversation, bool, error) {
	args := m.Called(ctx, chat)
	var stored models.Conversation
	if val := args.Get(0); val != nil {
		stored = val.(models.Conversation)
	}
	return stored, args.Bool(1), args.Error(2)
}

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID string) (models.Conversation, error) {
	args := m.Called(ctx, chatID)
	var chat models.Conversation
	if val := args.Get(0); val != nil {
		chat = val.(models.Conversation)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) ListChats(ctx context.Context, userID string) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	var list []models.Conversation
	if val := args.Get(0); val != nil {
		list = val.([]models.Conversation)
	}
	return list, args.Error(1)
}

func (m *ChatRepositoryMock) UpdateSummary(ctx context.Context, chatID string, last models.LastMessage, updatedAt time.Time) (models.Conversation, error) {
	args := m.Called(ctx, chatID, last, updatedAt)
	var chat models.Conversation
	if val := args.Get(0); val != nil {
		chat = val.(models.Conversation)
	}
	return chat, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	args := m.Called(ctx, msg)
	var stored models.Message
	if val := args.Get(0); val != nil {
		stored = val.(models.Message)
	}
	return stored, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	args := m.Called(ctx, chatID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) UpsertUser(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID string) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) BulkUsers(ctx context.Context, ids []string) ([]models.User, error) {
	args := m.Called(ctx, ids)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) ListUsers(ctx context.Context, q models.UserQuery) ([]models.User, error) {
	args := m.Called(ctx, q)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

// DocumentsMock stands in for the document store behind the REST handlers.
type DocumentsMock struct {
	mock.Mock
}

func (m *DocumentsMock) GetUser(ctx context.Context, userID string) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *DocumentsMock) SetUser(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *DocumentsMock) GetUsers(ctx context.Context, ids []string) ([]models.User, error) {
	args := m.Called(ctx, ids)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *DocumentsMock) ListUsers(ctx context.Context, q models.UserQuery) (models.UserPage, error) {
	args := m.Called(ctx, q)
	var page models.UserPage
	if val := args.Get(0); val != nil {
		page = val.(models.UserPage)
	}
	return page, args.Error(1)
}

func (m *DocumentsMock) GetChat(ctx context.Context, chatID string) (models.Conversation, error) {
	args := m.Called(ctx, chatID)
	var chat models.Conversation
	if val := args.Get(0); val != nil {
		chat = val.(models.Conversation)
	}
	return chat, args.Error(1)
}

func (m *DocumentsMock) CreateChatIfAbsent(ctx context.Context, chat models.Conversation) (models.Conversation, bool, error) {
	args := m.Called(ctx, chat)
	var stored models.Conversation
	if val := args.Get(0); val != nil {
		stored = val.(models.Conversation)
	}
	return stored, args.Bool(1), args.Error(2)
}

func (m *DocumentsMock) UpdateChatSummary(ctx context.Context, chatID string, last models.LastMessage, updatedAt time.Time) error {
	args := m.Called(ctx, chatID, last, updatedAt)
	return args.Error(0)
}

func (m *DocumentsMock) AddMessage(ctx context.Context, chatID string, msg models.Message) (models.Message, error) {
	args := m.Called(ctx, chatID, msg)
	var stored models.Message
	if val := args.Get(0); val != nil {
		stored = val.(models.Message)
	}
	return stored, args.Error(1)
}

func (m *DocumentsMock) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	args := m.Called(ctx, chatID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

// AuthenticatorMock stands in for the identity provider service.
type AuthenticatorMock struct {
	mock.Mock
}

func (m *AuthenticatorMock) CreateAccount(ctx context.Context, email, password string) (models.Identity, error) {
	args := m.Called(ctx, email, password)
	var identity models.Identity
	if val := args.Get(0); val != nil {
		identity = val.(models.Identity)
	}
	return identity, args.Error(1)
}

func (m *AuthenticatorMock) SignIn(ctx context.Context, email, password string) (models.Identity, error) {
	args := m.Called(ctx, email, password)
	var identity models.Identity
	if val := args.Get(0); val != nil {
		identity = val.(models.Identity)
	}
	return identity, args.Error(1)
}

func (m *AuthenticatorMock) SignInWithProvider(ctx context.Context, providerToken string) (models.Identity, error) {
	args := m.Called(ctx, providerToken)
	var identity models.Identity
	if val := args.Get(0); val != nil {
		identity = val.(models.Identity)
	}
	return identity, args.Error(1)
}

var _ repositories.ChatRepository = (*ChatRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
