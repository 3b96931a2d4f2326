package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"blog-backend/dto"
	"blog-backend/internal/apperr"
	"blog-backend/model"
)

// MongoStatsStore runs the read-only aggregation projections over published
// posts. It never writes.
type MongoStatsStore struct {
	posts *mongo.Collection
}

func NewMongoStatsStore(db *mongo.Database) *MongoStatsStore {
	return &MongoStatsStore{posts: db.Collection("posts")}
}

func (s *MongoStatsStore) TopPosts(ctx context.Context, limit int64) ([]dto.TopPost, error) {
	if limit < 1 || limit > 100 {
		limit = 10
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": model.StatusPublished}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "author_id",
			"foreignField": "_id",
			"as":           "author",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$author", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$project", Value: bson.M{
			"title": 1, "excerpt": 1, "tags": 1, "category": 1,
			"likes": 1, "comments_count": 1, "created_at": 1,
			"author._id": 1, "author.username": 1,
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "likes", Value: -1},
			{Key: "comments_count", Value: -1},
			{Key: "created_at", Value: -1},
		}}},
		{{Key: "$limit", Value: limit}},
	}
	var out []dto.TopPost
	if err := s.aggregate(ctx, pipeline, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStatsStore) PopularTags(ctx context.Context, limit int64) ([]dto.TagCount, error) {
	if limit < 1 || limit > 200 {
		limit = 20
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"status": model.StatusPublished,
			"tags":   bson.M{"$exists": true, "$ne": bson.A{}},
		}}},
		{{Key: "$unwind", Value: "$tags"}},
		{{Key: "$group", Value: bson.M{"_id": "$tags", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$project", Value: bson.M{"tag": "$_id", "count": 1, "_id": 0}}},
	}
	var out []dto.TagCount
	if err := s.aggregate(ctx, pipeline, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStatsStore) PostsByAuthor(ctx context.Context, limit int64) ([]dto.AuthorCount, error) {
	if limit < 1 || limit > 500 {
		limit = 50
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": model.StatusPublished}}},
		{{Key: "$group", Value: bson.M{"_id": "$author_id", "count": bson.M{"$sum": 1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "author",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$author", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$project", Value: bson.M{
			"author": bson.M{"_id": "$author._id", "username": "$author.username"},
			"count":  1,
			"_id":    0,
		}}},
	}
	var out []dto.AuthorCount
	if err := s.aggregate(ctx, pipeline, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStatsStore) CommentAverages(ctx context.Context) (dto.CommentAverages, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": model.StatusPublished}}},
		{{Key: "$group", Value: bson.M{
			"_id":            nil,
			"total_posts":    bson.M{"$sum": 1},
			"total_comments": bson.M{"$sum": "$comments_count"},
			"avg_comments":   bson.M{"$avg": "$comments_count"},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":            0,
			"total_posts":    1,
			"total_comments": 1,
			"avg_comments":   bson.M{"$round": bson.A{"$avg_comments", 2}},
		}}},
	}
	var rows []dto.CommentAverages
	if err := s.aggregate(ctx, pipeline, &rows); err != nil {
		return dto.CommentAverages{}, err
	}
	if len(rows) == 0 {
		return dto.CommentAverages{}, nil
	}
	return rows[0], nil
}

// MonthlyPosts returns a zero-filled 12-slot histogram of published posts
// for the year.
func (s *MongoStatsStore) MonthlyPosts(ctx context.Context, year int) ([]dto.MonthCount, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"status":     model.StatusPublished,
			"created_at": bson.M{"$gte": start, "$lt": end},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$month": "$created_at"},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
		{{Key: "$project", Value: bson.M{"month": "$_id", "count": 1, "_id": 0}}},
	}
	var rows []dto.MonthCount
	if err := s.aggregate(ctx, pipeline, &rows); err != nil {
		return nil, err
	}

	byMonth := make(map[int]int64, len(rows))
	for _, r := range rows {
		byMonth[r.Month] = r.Count
	}
	out := make([]dto.MonthCount, 12)
	for m := 1; m <= 12; m++ {
		out[m-1] = dto.MonthCount{Month: m, Count: byMonth[m]}
	}
	return out, nil
}

func (s *MongoStatsStore) aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	cur, err := s.posts.Aggregate(ctx, pipeline)
	if err != nil {
		return apperr.FromMongo(err)
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, out); err != nil {
		return apperr.FromMongo(err)
	}
	return nil
}
