package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"minichat/internal/live"
	"minichat/internal/models"
)

// MediaPlaceholder replaces the summary text of a media-only message.
const MediaPlaceholder = "📷 Image"

// ErrEmptyMessage is returned by Send when there is neither text nor media.
var ErrEmptyMessage = errors.New("message is empty")

// SummaryText is the conversation preview for msg.
func SummaryText(msg models.Message) string {
	if msg.MediaURL != "" && strings.TrimSpace(msg.Text) == "" {
		return MediaPlaceholder
	}
	return msg.Text
}

// ChatState is the open conversation as rendered.
type ChatState struct {
	Partner  *models.User
	Messages []models.Message
	// ScrollTo is the index of the newest message, -1 when there are none.
	ScrollTo int
	Loading  bool
}

// Chat is the view-model of one open conversation.
type Chat struct {
	backend Backend
	chat    models.Conversation
	user    models.User

	sub    *live.Subscription[[]models.Message]
	state  *live.Value[ChatState]
	cancel context.CancelFunc
	done   chan struct{}
}

// OpenChat subscribes to the messages of chat and resolves the partner of a
// one-to-one conversation in the background. It does not block on the
// backend. Call Close when leaving the screen.
func OpenChat(ctx context.Context, backend Backend, user models.User, chat models.Conversation) *Chat {
	ctx, cancel := context.WithCancel(ctx)
	c := &Chat{
		backend: backend,
		chat:    chat,
		user:    user,
		state:   live.NewValue(ChatState{ScrollTo: -1, Loading: true}),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	c.sub = backend.Docs.WatchMessages(ctx, chat.ID)
	go c.run(ctx)
	return c
}

func (c *Chat) Conversation() models.Conversation { return c.chat }

func (c *Chat) State() ChatState {
	return c.state.Get()
}

func (c *Chat) Watch(ctx context.Context) *live.Subscription[ChatState] {
	return c.state.Watch(ctx)
}

// Title is the partner name, or the group name for group conversations.
func (c *Chat) Title() string {
	if c.chat.IsGroup {
		return c.chat.GroupName
	}
	if partner := c.state.Get().Partner; partner != nil {
		return partner.Name
	}
	return UnknownName
}

// Send appends a message and then refreshes the conversation summary. The two
// writes are independent; a failed summary write leaves the message in place.
func (c *Chat) Send(ctx context.Context, text, mediaURL string) (models.Message, error) {
	text = strings.TrimSpace(text)
	mediaURL = strings.TrimSpace(mediaURL)
	if text == "" && mediaURL == "" {
		return models.Message{}, ErrEmptyMessage
	}

	msg, err := c.backend.Docs.AddMessage(ctx, c.chat.ID, models.Message{
		ChatID:   c.chat.ID,
		Text:     text,
		MediaURL: mediaURL,
		SenderID: c.user.ID,
	})
	if err != nil {
		return models.Message{}, fmt.Errorf("send message: %w", err)
	}

	last := models.LastMessage{Text: SummaryText(msg), CreatedAt: msg.CreatedAt, SenderID: msg.SenderID}
	if err := c.backend.Docs.UpdateChatSummary(ctx, c.chat.ID, last, msg.CreatedAt); err != nil {
		return msg, fmt.Errorf("update chat summary: %w", err)
	}
	return msg, nil
}

// Close releases the message subscription and waits for the update loop to stop.
func (c *Chat) Close() {
	c.cancel()
	c.sub.Close()
	<-c.done
}

func (c *Chat) run(ctx context.Context) {
	defer close(c.done)
	partner := c.resolvePartner(ctx)
	if partner != nil {
		st := c.state.Get()
		st.Partner = partner
		c.state.Set(st)
	}
	for msgs := range c.sub.C {
		c.state.Set(ChatState{
			Partner:  partner,
			Messages: msgs,
			ScrollTo: len(msgs) - 1,
		})
	}
	if err := c.sub.Err(); err != nil {
		log.Printf("chat: message subscription failed chat_id=%s: %v", c.chat.ID, err)
		st := c.state.Get()
		st.Loading = false
		c.state.Set(st)
	}
}

func (c *Chat) resolvePartner(ctx context.Context) *models.User {
	if c.chat.IsGroup {
		return nil
	}
	other, ok := c.chat.OtherMember(c.user.ID)
	if !ok {
		return nil
	}
	partner, err := c.backend.Docs.GetUser(ctx, other)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("chat: resolve partner failed chat_id=%s user_id=%s: %v", c.chat.ID, other, err)
		}
		return nil
	}
	return &partner
}
