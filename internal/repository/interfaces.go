// Package repository defines the persistence contracts the services depend
// on and their MongoDB implementations. All mutation of the denormalized
// post fields (likes, liked_by, comments_count, comments_preview) goes
// through these stores as single atomic operators, never as read-modify-write
// in application code.
package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"

	"blog-backend/dto"
	"blog-backend/model"
)

// PostFilter narrows a post listing.
type PostFilter struct {
	Status   string
	AuthorID *bson.ObjectID
	Tag      string
	Query    string // text search
	Page     int64
	Limit    int64
}

// PostUpdate carries the owner-editable fields; nil means leave unchanged.
type PostUpdate struct {
	Title    *string
	Content  *string
	Tags     *[]string
	Category *string
	Status   *string
}

type PostStore interface {
	Insert(ctx context.Context, p *model.Post) error
	FindByID(ctx context.Context, id bson.ObjectID) (*model.Post, error)
	FindBySlug(ctx context.Context, slug string) (*model.Post, error)
	List(ctx context.Context, f PostFilter) ([]model.Post, int64, error)
	ListIDs(ctx context.Context) ([]bson.ObjectID, error)
	Update(ctx context.Context, id bson.ObjectID, u PostUpdate) (*model.Post, error)
	Archive(ctx context.Context, id bson.ObjectID) (*model.Post, error)
	Delete(ctx context.Context, id bson.ObjectID) (bool, error)
	AddTag(ctx context.Context, id bson.ObjectID, tag string) (*model.Post, error)
	RemoveTag(ctx context.Context, id bson.ObjectID, tag string) (*model.Post, error)

	// IncCommentsCount adjusts the denormalized count by delta. Negative
	// deltas floor the stored value at zero.
	IncCommentsCount(ctx context.Context, id bson.ObjectID, delta int64) error
	// PushPreview prepends an entry to the preview cache and truncates it to
	// model.PreviewLimit in one atomic operator.
	PushPreview(ctx context.Context, id bson.ObjectID, e model.PreviewEntry) error
	PullPreview(ctx context.Context, postID, commentID bson.ObjectID) error
	SetPreviewText(ctx context.Context, postID, commentID bson.ObjectID, prefix string) error
	// SetCommentsState overwrites count and preview with reconciled values.
	SetCommentsState(ctx context.Context, id bson.ObjectID, count int64, preview []model.PreviewEntry) error

	// Unlike removes userID from liked_by and decrements likes, but only if
	// the membership currently holds. Reports whether it applied.
	Unlike(ctx context.Context, postID, userID bson.ObjectID) (bool, error)
	// LikeOnce adds userID to liked_by and increments likes, but only if the
	// user is not yet a member. Reports whether it applied.
	LikeOnce(ctx context.Context, postID, userID bson.ObjectID) (bool, error)
}

type CommentStore interface {
	Insert(ctx context.Context, c *model.Comment) error
	FindByID(ctx context.Context, id bson.ObjectID) (*model.Comment, error)
	UpdateText(ctx context.Context, id bson.ObjectID, text string) (*model.Comment, error)
	// Delete reports whether a row was removed; deleting an absent comment
	// is not an error at this layer.
	Delete(ctx context.Context, id bson.ObjectID) (bool, error)
	DeleteByPost(ctx context.Context, postID bson.ObjectID) (int64, error)
	CountByPost(ctx context.Context, postID bson.ObjectID) (int64, error)
	ListByPost(ctx context.Context, postID bson.ObjectID, page, limit int64) ([]model.Comment, int64, error)
	// NewestByPost returns up to limit comments, newest first.
	NewestByPost(ctx context.Context, postID bson.ObjectID, limit int64) ([]model.Comment, error)
	// DetachChildren clears parent_id on direct replies of parentID.
	DetachChildren(ctx context.Context, parentID bson.ObjectID) (int64, error)
}

type UserStore interface {
	Insert(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id bson.ObjectID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	UsernamesByIDs(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]string, error)
}

type StatsStore interface {
	TopPosts(ctx context.Context, limit int64) ([]dto.TopPost, error)
	PopularTags(ctx context.Context, limit int64) ([]dto.TagCount, error)
	PostsByAuthor(ctx context.Context, limit int64) ([]dto.AuthorCount, error)
	CommentAverages(ctx context.Context) (dto.CommentAverages, error)
	MonthlyPosts(ctx context.Context, year int) ([]dto.MonthCount, error)
}

// TxnRunner groups store operations into one all-or-nothing unit when the
// deployment supports it. Run returns a TransientStore error when the unit
// aborted for environment reasons, which routes callers onto their fallback
// sequence.
type TxnRunner interface {
	Supported() bool
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}
