package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"blog-backend/internal/apperr"
	"blog-backend/model"
)

type MongoCommentStore struct {
	coll *mongo.Collection
}

func NewMongoCommentStore(db *mongo.Database) *MongoCommentStore {
	return &MongoCommentStore{coll: db.Collection("comments")}
}

func (s *MongoCommentStore) Insert(ctx context.Context, c *model.Comment) error {
	if _, err := s.coll.InsertOne(ctx, c); err != nil {
		return apperr.FromMongo(err)
	}
	return nil
}

func (s *MongoCommentStore) FindByID(ctx context.Context, id bson.ObjectID) (*model.Comment, error) {
	var c model.Comment
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.New(apperr.NotFound, "comment not found")
	}
	if err != nil {
		return nil, apperr.FromMongo(err)
	}
	return &c, nil
}

func (s *MongoCommentStore) UpdateText(ctx context.Context, id bson.ObjectID, text string) (*model.Comment, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"text": text, "updated_at": time.Now().UTC()}}
	var c model.Comment
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.New(apperr.NotFound, "comment not found")
	}
	if err != nil {
		return nil, apperr.FromMongo(err)
	}
	return &c, nil
}

func (s *MongoCommentStore) Delete(ctx context.Context, id bson.ObjectID) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, apperr.FromMongo(err)
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoCommentStore) DeleteByPost(ctx context.Context, postID bson.ObjectID) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"post_id": postID})
	if err != nil {
		return 0, apperr.FromMongo(err)
	}
	return res.DeletedCount, nil
}

func (s *MongoCommentStore) CountByPost(ctx context.Context, postID bson.ObjectID) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"post_id": postID})
	if err != nil {
		return 0, apperr.FromMongo(err)
	}
	return n, nil
}

func (s *MongoCommentStore) ListByPost(ctx context.Context, postID bson.ObjectID, page, limit int64) ([]model.Comment, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cur, err := s.coll.Find(ctx, bson.M{"post_id": postID}, opts)
	if err != nil {
		return nil, 0, apperr.FromMongo(err)
	}
	defer cur.Close(ctx)

	var comments []model.Comment
	if err := cur.All(ctx, &comments); err != nil {
		return nil, 0, apperr.FromMongo(err)
	}

	total, err := s.coll.CountDocuments(ctx, bson.M{"post_id": postID})
	if err != nil {
		return nil, 0, apperr.FromMongo(err)
	}
	return comments, total, nil
}

func (s *MongoCommentStore) NewestByPost(ctx context.Context, postID bson.ObjectID, limit int64) ([]model.Comment, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cur, err := s.coll.Find(ctx, bson.M{"post_id": postID}, opts)
	if err != nil {
		return nil, apperr.FromMongo(err)
	}
	defer cur.Close(ctx)

	var comments []model.Comment
	if err := cur.All(ctx, &comments); err != nil {
		return nil, apperr.FromMongo(err)
	}
	return comments, nil
}

func (s *MongoCommentStore) DetachChildren(ctx context.Context, parentID bson.ObjectID) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"parent_id": parentID},
		bson.M{"$unset": bson.M{"parent_id": ""}},
	)
	if err != nil {
		return 0, apperr.FromMongo(err)
	}
	return res.ModifiedCount, nil
}
