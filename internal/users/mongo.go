package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const emailIndexName = "email_unique"

// userDocument はコレクションに保存されるドキュメントの形です。
type userDocument struct {
	ID        string    `bson:"_id"`
	Fullname  string    `bson:"fullname"`
	Email     string    `bson:"email"`
	Password  string    `bson:"password"`
	CreatedAt time.Time `bson:"createdAt"`
}

// MongoStore は MongoDB のコレクションにユーザーを保存します。
type MongoStore struct {
	coll *mongo.Collection
}

// ConnectMongo は MongoDB に接続し、プライマリへの疎通を確認します。
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// NewMongoStore は MongoStore を作成します。
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

// EnsureIndexes は email の一意インデックスを作成します（存在する場合は何もしません）。
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName(emailIndexName),
	})
	if err != nil {
		return &PersistenceError{Op: "ensure indexes", Err: err}
	}
	return nil
}

// FindByEmail はメールアドレスでユーザーを検索します。
func (s *MongoStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	var doc userDocument
	err := s.coll.FindOne(ctx, bson.D{{Key: "email", Value: NormalizeEmail(email)}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "find", Err: err}
	}
	return doc.toUser(), nil
}

// Create はユーザーを挿入します。重複は一意インデックスのエラーでのみ判定します。
func (s *MongoStore) Create(ctx context.Context, user *User) (*User, error) {
	if user == nil {
		return nil, fmt.Errorf("user is nil")
	}
	doc := userDocument{
		ID:        user.ID,
		Fullname:  user.Fullname,
		Email:     NormalizeEmail(user.Email),
		Password:  user.PasswordHash,
		CreatedAt: user.CreatedAt,
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, &PersistenceError{Op: "create", Err: err}
	}
	return doc.toUser(), nil
}

func (d userDocument) toUser() *User {
	return &User{
		ID:           d.ID,
		Fullname:     d.Fullname,
		Email:        d.Email,
		PasswordHash: d.Password,
		CreatedAt:    d.CreatedAt,
	}
}
