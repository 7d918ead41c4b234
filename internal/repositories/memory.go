package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"minichat/internal/models"
)

// Memory keeps every collection in process memory. It implements all
// repository interfaces and is used by the embedded client and by tests.
type Memory struct {
	mu       sync.RWMutex
	users    map[string]models.User
	accounts map[string]models.Account
	chats    map[string]models.Conversation
	messages map[string][]models.Message
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:    make(map[string]models.User),
		accounts: make(map[string]models.Account),
		chats:    make(map[string]models.Conversation),
		messages: make(map[string][]models.Message),
	}
}

var (
	_ UserRepository    = (*Memory)(nil)
	_ AccountRepository = (*Memory)(nil)
	_ ChatRepository    = (*Memory)(nil)
	_ MessageRepository = (*Memory)(nil)
)

func (m *Memory) UpsertUser(ctx context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *Memory) GetUser(ctx context.Context, userID string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[userID]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return user, nil
}

func (m *Memory) BulkUsers(ctx context.Context, ids []string) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := []models.User{}
	for _, id := range ids {
		if user, ok := m.users[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

func (m *Memory) ListUsers(ctx context.Context, q models.UserQuery) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := []models.User{}
	for id, user := range m.users {
		if id == q.ExcludeID || id <= q.After {
			continue
		}
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	if q.Limit > 0 && len(users) > q.Limit {
		users = users[:q.Limit]
	}
	return users, nil
}

func (m *Memory) CreateAccount(ctx context.Context, account models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[account.ID]; ok {
		return ErrEmailTaken
	}
	for _, existing := range m.accounts {
		if existing.Provider == account.Provider && strings.EqualFold(existing.Email, account.Email) {
			return ErrEmailTaken
		}
	}
	m.accounts[account.ID] = account
	return nil
}

func (m *Memory) GetAccount(ctx context.Context, id string) (models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[id]
	if !ok {
		return models.Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (m *Memory) GetAccountByEmail(ctx context.Context, provider, email string) (models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, account := range m.accounts {
		if account.Provider == provider && strings.EqualFold(account.Email, email) {
			return account, nil
		}
	}
	return models.Account{}, ErrAccountNotFound
}

func (m *Memory) CreateChatIfAbsent(ctx context.Context, chat models.Conversation) (models.Conversation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.chats[chat.ID]; ok {
		return copyChat(existing), false, nil
	}
	stored := copyChat(chat)
	m.chats[chat.ID] = stored
	return copyChat(stored), true, nil
}

func (m *Memory) GetChat(ctx context.Context, chatID string) (models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chat, ok := m.chats[chatID]
	if !ok {
		return models.Conversation{}, ErrChatNotFound
	}
	return copyChat(chat), nil
}

func (m *Memory) ListChats(ctx context.Context, userID string) ([]models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chats := []models.Conversation{}
	for _, chat := range m.chats {
		if chat.HasMember(userID) {
			chats = append(chats, copyChat(chat))
		}
	}
	return chats, nil
}

func (m *Memory) UpdateSummary(ctx context.Context, chatID string, last models.LastMessage, updatedAt time.Time) (models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[chatID]
	if !ok {
		return models.Conversation{}, ErrChatNotFound
	}
	chat.LastMessage = &last
	chat.UpdatedAt = updatedAt
	m.chats[chatID] = chat
	return copyChat(chat), nil
}

func (m *Memory) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.ChatID] = append(m.messages[msg.ChatID], msg)
	return msg, nil
}

func (m *Memory) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := append([]models.Message{}, m.messages[chatID]...)
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
	return msgs, nil
}

func copyChat(chat models.Conversation) models.Conversation {
	chat.Members = append([]string(nil), chat.Members...)
	if chat.LastMessage != nil {
		last := *chat.LastMessage
		chat.LastMessage = &last
	}
	return chat
}
