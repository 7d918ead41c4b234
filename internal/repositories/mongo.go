package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"minichat/internal/db"
	"minichat/internal/models"
)

// MongoStore implements the repositories on top of MongoDB collections.
type MongoStore struct {
	users    *mongo.Collection
	accounts *mongo.Collection
	chats    *mongo.Collection
	messages *mongo.Collection
}

// NewMongoStore wires the collections of client.
func NewMongoStore(client *db.MongoClient) *MongoStore {
	return &MongoStore{
		users:    client.UsersCollection(),
		accounts: client.AccountsCollection(),
		chats:    client.ChatsCollection(),
		messages: client.MessagesCollection(),
	}
}

var (
	_ UserRepository    = (*MongoStore)(nil)
	_ AccountRepository = (*MongoStore)(nil)
	_ ChatRepository    = (*MongoStore)(nil)
	_ MessageRepository = (*MongoStore)(nil)
)

func (s *MongoStore) UpsertUser(ctx context.Context, user models.User) error {
	_, err := s.users.ReplaceOne(ctx, bson.M{"_id": user.ID}, user, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoStore) GetUser(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

func (s *MongoStore) BulkUsers(ctx context.Context, ids []string) ([]models.User, error) {
	users := []models.User{}
	if len(ids) == 0 {
		return users, nil
	}
	cursor, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *MongoStore) ListUsers(ctx context.Context, q models.UserQuery) ([]models.User, error) {
	filter := bson.M{"_id": bson.M{"$ne": q.ExcludeID, "$gt": q.After}}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(int64(q.Limit))
	cursor, err := s.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *MongoStore) CreateAccount(ctx context.Context, account models.Account) error {
	_, err := s.accounts.InsertOne(ctx, account)
	if mongo.IsDuplicateKeyError(err) {
		return ErrEmailTaken
	}
	return err
}

func (s *MongoStore) GetAccount(ctx context.Context, id string) (models.Account, error) {
	var account models.Account
	err := s.accounts.FindOne(ctx, bson.M{"_id": id}).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Account{}, ErrAccountNotFound
	}
	return account, err
}

func (s *MongoStore) GetAccountByEmail(ctx context.Context, provider, email string) (models.Account, error) {
	var account models.Account
	err := s.accounts.FindOne(ctx, bson.M{"provider": provider, "email": email}).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Account{}, ErrAccountNotFound
	}
	return account, err
}

// CreateChatIfAbsent relies on $setOnInsert so that concurrent creators of the
// same id converge on one document.
func (s *MongoStore) CreateChatIfAbsent(ctx context.Context, chat models.Conversation) (models.Conversation, bool, error) {
	res, err := s.chats.UpdateOne(ctx,
		bson.M{"_id": chat.ID},
		bson.M{"$setOnInsert": bson.M{
			"members":      chat.Members,
			"updated_at":   chat.UpdatedAt,
			"is_group":     chat.IsGroup,
			"group_name":   chat.GroupName,
			"group_avatar": chat.GroupAvatar,
		}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return models.Conversation{}, false, err
	}
	stored, err := s.GetChat(ctx, chat.ID)
	if err != nil {
		return models.Conversation{}, false, err
	}
	return stored, res != nil && res.UpsertedCount > 0, nil
}

func (s *MongoStore) GetChat(ctx context.Context, chatID string) (models.Conversation, error) {
	var chat models.Conversation
	err := s.chats.FindOne(ctx, bson.M{"_id": chatID}).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Conversation{}, ErrChatNotFound
	}
	return chat, err
}

func (s *MongoStore) ListChats(ctx context.Context, userID string) ([]models.Conversation, error) {
	cursor, err := s.chats.Find(ctx, bson.M{"members": userID})
	if err != nil {
		return nil, err
	}
	chats := []models.Conversation{}
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

func (s *MongoStore) UpdateSummary(ctx context.Context, chatID string, last models.LastMessage, updatedAt time.Time) (models.Conversation, error) {
	var chat models.Conversation
	err := s.chats.FindOneAndUpdate(ctx,
		bson.M{"_id": chatID},
		bson.M{"$set": bson.M{"last_message": last, "updated_at": updatedAt}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Conversation{}, ErrChatNotFound
	}
	return chat, err
}

func (s *MongoStore) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	if _, err := s.messages.InsertOne(ctx, msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

func (s *MongoStore) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.messages.Find(ctx, bson.M{"chat_id": chatID}, opts)
	if err != nil {
		return nil, err
	}
	msgs := []models.Message{}
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}
