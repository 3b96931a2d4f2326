package inmemory

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"

	"blog-backend/internal/repository"
	"blog-backend/model"
)

// Store carries posts, comments and users in one struct so transactions can
// snapshot them together; the per-entity contracts are exposed as views.

func (s *Store) Posts() repository.PostStore { return s }

func (s *Store) Comments() repository.CommentStore { return commentView{s} }

func (s *Store) Users() repository.UserStore { return userView{s} }

type commentView struct{ s *Store }

func (v commentView) Insert(ctx context.Context, c *model.Comment) error {
	return v.s.InsertComment(ctx, c)
}

func (v commentView) FindByID(ctx context.Context, id bson.ObjectID) (*model.Comment, error) {
	return v.s.FindCommentByID(ctx, id)
}

func (v commentView) UpdateText(ctx context.Context, id bson.ObjectID, text string) (*model.Comment, error) {
	return v.s.UpdateCommentText(ctx, id, text)
}

func (v commentView) Delete(ctx context.Context, id bson.ObjectID) (bool, error) {
	return v.s.DeleteComment(ctx, id)
}

func (v commentView) DeleteByPost(ctx context.Context, postID bson.ObjectID) (int64, error) {
	return v.s.DeleteCommentsByPost(ctx, postID)
}

func (v commentView) CountByPost(ctx context.Context, postID bson.ObjectID) (int64, error) {
	return v.s.CountCommentsByPost(ctx, postID)
}

func (v commentView) ListByPost(ctx context.Context, postID bson.ObjectID, page, limit int64) ([]model.Comment, int64, error) {
	return v.s.ListCommentsByPost(ctx, postID, page, limit)
}

func (v commentView) NewestByPost(ctx context.Context, postID bson.ObjectID, limit int64) ([]model.Comment, error) {
	return v.s.NewestCommentsByPost(ctx, postID, limit)
}

func (v commentView) DetachChildren(ctx context.Context, parentID bson.ObjectID) (int64, error) {
	return v.s.DetachCommentChildren(ctx, parentID)
}

type userView struct{ s *Store }

func (v userView) Insert(ctx context.Context, u *model.User) error {
	return v.s.InsertUser(ctx, u)
}

func (v userView) FindByID(ctx context.Context, id bson.ObjectID) (*model.User, error) {
	return v.s.FindUserByID(ctx, id)
}

func (v userView) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return v.s.FindUserByEmail(ctx, email)
}

func (v userView) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	return v.s.ExistsByUsernameOrEmail(ctx, username, email)
}

func (v userView) UsernamesByIDs(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]string, error) {
	return v.s.UsernamesByIDs(ctx, ids)
}
