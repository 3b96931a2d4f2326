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

type MongoPostStore struct {
	coll *mongo.Collection
}

func NewMongoPostStore(db *mongo.Database) *MongoPostStore {
	return &MongoPostStore{coll: db.Collection("posts")}
}

func (s *MongoPostStore) Insert(ctx context.Context, p *model.Post) error {
	if _, err := s.coll.InsertOne(ctx, p); err != nil {
		return apperr.FromMongo(err)
	}
	return nil
}

func (s *MongoPostStore) FindByID(ctx context.Context, id bson.ObjectID) (*model.Post, error) {
	var p model.Post
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.New(apperr.NotFound, "post not found")
	}
	if err != nil {
		return nil, apperr.FromMongo(err)
	}
	p.Clamp()
	return &p, nil
}

func (s *MongoPostStore) FindBySlug(ctx context.Context, slug string) (*model.Post, error) {
	var p model.Post
	err := s.coll.FindOne(ctx, bson.M{"slug": slug}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.New(apperr.NotFound, "post not found")
	}
	if err != nil {
		return nil, apperr.FromMongo(err)
	}
	p.Clamp()
	return &p, nil
}

func (s *MongoPostStore) List(ctx context.Context, f PostFilter) ([]model.Post, int64, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.AuthorID != nil {
		filter["author_id"] = *f.AuthorID
	}
	if f.Tag != "" {
		filter["tags"] = f.Tag
	}
	if f.Query != "" {
		filter["$text"] = bson.M{"$search": f.Query}
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit < 1 {
		limit = 10
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, apperr.FromMongo(err)
	}
	defer cur.Close(ctx)

	var posts []model.Post
	if err := cur.All(ctx, &posts); err != nil {
		return nil, 0, apperr.FromMongo(err)
	}
	for i := range posts {
		posts[i].Clamp()
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, apperr.FromMongo(err)
	}
	return posts, total, nil
}

func (s *MongoPostStore) ListIDs(ctx context.Context) ([]bson.ObjectID, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, apperr.FromMongo(err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		ID bson.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, apperr.FromMongo(err)
	}
	ids := make([]bson.ObjectID, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids, nil
}

func (s *MongoPostStore) Update(ctx context.Context, id bson.ObjectID, u PostUpdate) (*model.Post, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if u.Title != nil {
		set["title"] = *u.Title
	}
	if u.Content != nil {
		set["content"] = *u.Content
		set["excerpt"] = model.TextPrefix(*u.Content)
	}
	if u.Tags != nil {
		set["tags"] = *u.Tags
	}
	if u.Category != nil {
		set["category"] = *u.Category
	}
	if u.Status != nil {
		set["status"] = *u.Status
	}
	return s.findOneAndSet(ctx, id, set)
}

func (s *MongoPostStore) Archive(ctx context.Context, id bson.ObjectID) (*model.Post, error) {
	return s.findOneAndSet(ctx, id, bson.M{
		"status":     model.StatusArchived,
		"updated_at": time.Now().UTC(),
	})
}

func (s *MongoPostStore) findOneAndSet(ctx context.Context, id bson.ObjectID, set bson.M) (*model.Post, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p model.Post
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.New(apperr.NotFound, "post not found")
	}
	if err != nil {
		return nil, apperr.FromMongo(err)
	}
	p.Clamp()
	return &p, nil
}

func (s *MongoPostStore) Delete(ctx context.Context, id bson.ObjectID) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, apperr.FromMongo(err)
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoPostStore) AddTag(ctx context.Context, id bson.ObjectID, tag string) (*model.Post, error) {
	return s.findOneAndApply(ctx, id, bson.M{"$addToSet": bson.M{"tags": tag}})
}

func (s *MongoPostStore) RemoveTag(ctx context.Context, id bson.ObjectID, tag string) (*model.Post, error) {
	return s.findOneAndApply(ctx, id, bson.M{"$pull": bson.M{"tags": tag}})
}

func (s *MongoPostStore) findOneAndApply(ctx context.Context, id bson.ObjectID, update bson.M) (*model.Post, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p model.Post
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.New(apperr.NotFound, "post not found")
	}
	if err != nil {
		return nil, apperr.FromMongo(err)
	}
	p.Clamp()
	return &p, nil
}

// IncCommentsCount adjusts comments_count by delta. Decrements run as a
// pipeline update so the stored value floors at zero atomically.
func (s *MongoPostStore) IncCommentsCount(ctx context.Context, id bson.ObjectID, delta int64) error {
	var update any
	if delta >= 0 {
		update = bson.M{"$inc": bson.M{"comments_count": delta}}
	} else {
		update = mongo.Pipeline{
			{{Key: "$set", Value: bson.M{
				"comments_count": bson.M{"$max": bson.A{
					int64(0),
					bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$comments_count", 0}}, delta}},
				}},
			}}},
		}
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return apperr.FromMongo(err)
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.NotFound, "post not found")
	}
	return nil
}

// PushPreview prepends the entry and truncates to the newest PreviewLimit in
// one operator, so the cache can never exceed its bound.
func (s *MongoPostStore) PushPreview(ctx context.Context, id bson.ObjectID, e model.PreviewEntry) error {
	update := bson.M{"$push": bson.M{"comments_preview": bson.M{
		"$each":     bson.A{e},
		"$position": 0,
		"$slice":    model.PreviewLimit,
	}}}
	if _, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		return apperr.FromMongo(err)
	}
	return nil
}

func (s *MongoPostStore) PullPreview(ctx context.Context, postID, commentID bson.ObjectID) error {
	update := bson.M{"$pull": bson.M{"comments_preview": bson.M{"comment_id": commentID}}}
	if _, err := s.coll.UpdateOne(ctx, bson.M{"_id": postID}, update); err != nil {
		return apperr.FromMongo(err)
	}
	return nil
}

func (s *MongoPostStore) SetPreviewText(ctx context.Context, postID, commentID bson.ObjectID, prefix string) error {
	update := bson.M{"$set": bson.M{"comments_preview.$[e].text_prefix": prefix}}
	opts := options.UpdateOne().SetArrayFilters([]any{bson.M{"e.comment_id": commentID}})
	if _, err := s.coll.UpdateOne(ctx, bson.M{"_id": postID}, update, opts); err != nil {
		return apperr.FromMongo(err)
	}
	return nil
}

func (s *MongoPostStore) SetCommentsState(ctx context.Context, id bson.ObjectID, count int64, preview []model.PreviewEntry) error {
	if count < 0 {
		count = 0
	}
	if preview == nil {
		preview = []model.PreviewEntry{}
	}
	if len(preview) > model.PreviewLimit {
		preview = preview[:model.PreviewLimit]
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"comments_count":   count,
		"comments_preview": preview,
	}})
	if err != nil {
		return apperr.FromMongo(err)
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.NotFound, "post not found")
	}
	return nil
}

// Unlike applies only when the user is currently a member of liked_by, which
// keeps concurrent toggles by different users from losing updates.
func (s *MongoPostStore) Unlike(ctx context.Context, postID, userID bson.ObjectID) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": postID, "liked_by": userID},
		bson.M{"$pull": bson.M{"liked_by": userID}, "$inc": bson.M{"likes": -1}},
	)
	if err != nil {
		return false, apperr.FromMongo(err)
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoPostStore) LikeOnce(ctx context.Context, postID, userID bson.ObjectID) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": postID, "liked_by": bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{"liked_by": userID}, "$inc": bson.M{"likes": 1}},
	)
	if err != nil {
		return false, apperr.FromMongo(err)
	}
	return res.MatchedCount > 0, nil
}
