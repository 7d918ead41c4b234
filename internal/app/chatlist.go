package app

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"minichat/internal/live"
	"minichat/internal/models"
)

// UnknownName is shown for a participant whose profile could not be resolved.
const UnknownName = "Unknown User"

// ChatRow is one rendered line of the chat list.
type ChatRow struct {
	ChatID    string
	Title     string
	Avatar    string
	Preview   string
	UpdatedAt time.Time
	IsGroup   bool
	Online    bool
	Resolved  bool
}

// ChatListState is the chat list as rendered: rows filtered by Query.
type ChatListState struct {
	Rows    []ChatRow
	Total   int
	Query   string
	Loading bool
}

// ChatList keeps the signed-in user's conversations ordered by recency.
type ChatList struct {
	backend Backend
	userID  string

	sub    *live.Subscription[[]models.Conversation]
	state  *live.Value[ChatListState]
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	convs   []models.Conversation
	users   map[string]models.User
	missing map[string]bool
	query   string
	loaded  bool
}

// NewChatList subscribes to the conversations of userID. Call Close to
// release the subscription.
func NewChatList(ctx context.Context, backend Backend, userID string) *ChatList {
	ctx, cancel := context.WithCancel(ctx)
	l := &ChatList{
		backend: backend,
		userID:  userID,
		state:   live.NewValue(ChatListState{Loading: true}),
		cancel:  cancel,
		done:    make(chan struct{}),
		users:   map[string]models.User{},
		missing: map[string]bool{},
	}
	l.sub = backend.Docs.WatchChats(ctx, userID)
	go l.run(ctx)
	return l
}

func (l *ChatList) State() ChatListState {
	return l.state.Get()
}

func (l *ChatList) Watch(ctx context.Context) *live.Subscription[ChatListState] {
	return l.state.Watch(ctx)
}

// Conversation returns the listed conversation with id.
func (l *ChatList) Conversation(id string) (models.Conversation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.convs {
		if c.ID == id {
			return c, true
		}
	}
	return models.Conversation{}, false
}

// SetQuery filters rows by a case-insensitive substring of their title.
func (l *ChatList) SetQuery(q string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.query = q
	l.publish()
}

// Close releases the conversation subscription and waits for the update
// loop to stop.
func (l *ChatList) Close() {
	l.cancel()
	l.sub.Close()
	<-l.done
}

func (l *ChatList) run(ctx context.Context) {
	defer close(l.done)
	for convs := range l.sub.C {
		sortConversations(convs)
		l.resolve(ctx, convs)

		l.mu.Lock()
		l.convs = convs
		l.loaded = true
		l.publish()
		l.mu.Unlock()
	}
	if err := l.sub.Err(); err != nil {
		log.Printf("chat list: subscription failed user_id=%s: %v", l.userID, err)
		l.mu.Lock()
		l.loaded = true
		l.publish()
		l.mu.Unlock()
	}
}

// resolve batch-fetches every participant not already cached or known missing.
func (l *ChatList) resolve(ctx context.Context, convs []models.Conversation) {
	l.mu.Lock()
	var ids []string
	seen := map[string]bool{}
	for _, c := range convs {
		if c.IsGroup {
			continue
		}
		other, ok := c.OtherMember(l.userID)
		if !ok || seen[other] {
			continue
		}
		seen[other] = true
		if _, cached := l.users[other]; !cached && !l.missing[other] {
			ids = append(ids, other)
		}
	}
	l.mu.Unlock()
	if len(ids) == 0 {
		return
	}

	users, err := l.backend.Docs.GetUsers(ctx, ids)
	if err != nil {
		log.Printf("chat list: resolve participants failed count=%d: %v", len(ids), err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, u := range users {
		l.users[u.ID] = u
	}
	for _, id := range ids {
		if _, ok := l.users[id]; !ok {
			l.missing[id] = true
		}
	}
}

// publish rebuilds the visible state. Callers hold l.mu.
func (l *ChatList) publish() {
	query := strings.ToLower(strings.TrimSpace(l.query))
	rows := make([]ChatRow, 0, len(l.convs))
	for _, c := range l.convs {
		row := l.row(c)
		if query != "" && !strings.Contains(strings.ToLower(row.Title), query) {
			continue
		}
		rows = append(rows, row)
	}
	l.state.Set(ChatListState{
		Rows:    rows,
		Total:   len(l.convs),
		Query:   l.query,
		Loading: !l.loaded,
	})
}

func (l *ChatList) row(c models.Conversation) ChatRow {
	row := ChatRow{ChatID: c.ID, UpdatedAt: c.UpdatedAt, IsGroup: c.IsGroup}
	if c.LastMessage != nil {
		row.Preview = c.LastMessage.Text
	}
	if c.IsGroup {
		row.Title = c.GroupName
		row.Avatar = c.GroupAvatar
		row.Resolved = true
		return row
	}
	row.Title = UnknownName
	if other, ok := c.OtherMember(l.userID); ok {
		if u, ok := l.users[other]; ok {
			row.Title = u.Name
			row.Avatar = u.Avatar
			row.Online = u.Online
			row.Resolved = true
		}
	}
	return row
}

// sortConversations orders by UpdatedAt, newest first. A zero UpdatedAt sorts
// last; ties fall back to the id so the order is stable across snapshots.
func sortConversations(convs []models.Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		a, b := convs[i].UpdatedAt, convs[j].UpdatedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return convs[i].ID < convs[j].ID
	})
}
