package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"minichat/internal/models"
)

// PickerPageSize is the number of users fetched per page.
const PickerPageSize = 30

// ErrSelfConversation is returned when starting a conversation with oneself.
var ErrSelfConversation = errors.New("cannot start a conversation with yourself")

// Picker lists the users a new conversation can be started with.
type Picker struct {
	backend Backend
	user    models.User

	mu      sync.Mutex
	users   []models.User
	next    string
	loaded  bool
	loading bool
}

func NewPicker(backend Backend, user models.User) *Picker {
	return &Picker{backend: backend, user: user}
}

// Users returns every user loaded so far, ordered by id.
func (p *Picker) Users() []models.User {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.User, len(p.users))
	copy(out, p.users)
	return out
}

// HasMore reports whether LoadMore can fetch another page.
func (p *Picker) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.loaded || p.next != ""
}

// LoadMore fetches the next page of users, excluding the current user.
func (p *Picker) LoadMore(ctx context.Context) error {
	p.mu.Lock()
	if p.loading || (p.loaded && p.next == "") {
		p.mu.Unlock()
		return nil
	}
	p.loading = true
	after := p.next
	p.mu.Unlock()

	page, err := p.backend.Docs.ListUsers(ctx, models.UserQuery{
		ExcludeID: p.user.ID,
		After:     after,
		Limit:     PickerPageSize,
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = false
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	p.users = append(p.users, page.Users...)
	p.next = page.Next
	p.loaded = true
	return nil
}

// Start returns the one-to-one conversation with target, creating it if it
// does not exist yet. Concurrent starts for the same pair resolve to the same
// conversation.
func (p *Picker) Start(ctx context.Context, targetID string) (models.Conversation, error) {
	if targetID == "" || targetID == p.user.ID {
		return models.Conversation{}, ErrSelfConversation
	}
	members := []string{p.user.ID, targetID}
	sort.Strings(members)

	chat, _, err := p.backend.Docs.CreateChatIfAbsent(ctx, models.Conversation{
		ID:        models.ConversationID(p.user.ID, targetID),
		Members:   members,
		UpdatedAt: p.backend.now(),
	})
	if err != nil {
		return models.Conversation{}, fmt.Errorf("start conversation: %w", err)
	}
	return chat, nil
}
