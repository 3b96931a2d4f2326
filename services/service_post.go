package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"

	"blog-backend/dto"
	"blog-backend/internal/apperr"
	"blog-backend/internal/repository"
	"blog-backend/model"
)

// Comments joined into a post detail view, newest first.
const detailCommentLimit = 50

type PostService struct {
	posts    repository.PostStore
	comments repository.CommentStore
	users    repository.UserStore
	threads  *CommentService
	log      *slog.Logger
}

func NewPostService(
	posts repository.PostStore,
	comments repository.CommentStore,
	users repository.UserStore,
	threads *CommentService,
	log *slog.Logger,
) *PostService {
	return &PostService{posts: posts, comments: comments, users: users, threads: threads, log: log}
}

// Create inserts a new post. The slug carries a time-derived suffix; when it
// collides, one retry with a random suffix runs before surfacing Conflict.
func (s *PostService) Create(ctx context.Context, caller model.Caller, req dto.CreatePostReq) (*model.Post, error) {
	if len(strings.TrimSpace(req.Title)) < 3 {
		return nil, apperr.New(apperr.InvalidInput, "title must be at least 3 characters")
	}
	if len(strings.TrimSpace(req.Content)) < 10 {
		return nil, apperr.New(apperr.InvalidInput, "content must be at least 10 characters")
	}

	post := model.NewPost(caller.ID, req.Title, req.Content, req.Tags, req.Category, req.Status)
	err := s.posts.Insert(ctx, post)
	if apperr.Is(err, apperr.Conflict) {
		post.Slug = model.SlugWithSuffix(req.Title, uuid.NewString()[:5])
		err = s.posts.Insert(ctx, post)
	}
	if err != nil {
		return nil, err
	}
	return post, nil
}

// List applies draft visibility: only admins and an author asking for their
// own posts see anything beyond published.
func (s *PostService) List(ctx context.Context, caller *model.Caller, f repository.PostFilter) ([]model.Post, int64, error) {
	isAdmin := caller != nil && caller.IsAdmin()
	isOwner := caller != nil && f.AuthorID != nil && caller.ID == *f.AuthorID
	if !isAdmin && !isOwner {
		f.Status = model.StatusPublished
	}
	return s.posts.List(ctx, f)
}

// Get assembles the detail view: the post, its author and its newest
// comments threaded for display.
func (s *PostService) Get(ctx context.Context, caller *model.Caller, id bson.ObjectID) (*dto.PostDetail, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Status != model.StatusPublished {
		isOwner := caller != nil && caller.ID == post.AuthorID
		isAdmin := caller != nil && caller.IsAdmin()
		if !isOwner && !isAdmin {
			return nil, apperr.New(apperr.NotFound, "post not found")
		}
	}

	names, err := s.users.UsernamesByIDs(ctx, []bson.ObjectID{post.AuthorID})
	if err != nil {
		return nil, err
	}
	threads, err := s.threads.Threads(ctx, id, detailCommentLimit)
	if err != nil {
		return nil, err
	}
	return &dto.PostDetail{
		Post:     *post,
		Author:   dto.AuthorRef{ID: post.AuthorID, Username: names[post.AuthorID]},
		Comments: threads,
	}, nil
}

func (s *PostService) Update(ctx context.Context, caller model.Caller, id bson.ObjectID, req dto.UpdatePostReq) (*model.Post, error) {
	if err := s.requireOwner(ctx, caller, id); err != nil {
		return nil, err
	}
	if req.Status != nil {
		switch *req.Status {
		case model.StatusDraft, model.StatusPublished, model.StatusArchived:
		default:
			return nil, apperr.New(apperr.InvalidInput, "invalid status")
		}
	}
	return s.posts.Update(ctx, id, repository.PostUpdate{
		Title:    req.Title,
		Content:  req.Content,
		Tags:     req.Tags,
		Category: req.Category,
		Status:   req.Status,
	})
}

// Delete archives the post when soft, otherwise removes it and bulk-deletes
// its comments. The cascade is a store-level operation: the post is gone, so
// no count maintenance runs per comment.
func (s *PostService) Delete(ctx context.Context, caller model.Caller, id bson.ObjectID, soft bool) error {
	if err := s.requireOwner(ctx, caller, id); err != nil {
		return err
	}
	if soft {
		_, err := s.posts.Archive(ctx, id)
		return err
	}
	removed, err := s.posts.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.New(apperr.NotFound, "post not found")
	}
	n, err := s.comments.DeleteByPost(ctx, id)
	if err != nil {
		// The post is already gone; orphan comment rows are harmless but
		// worth a log line.
		s.log.Warn("comment cascade failed", "post_id", id.Hex(), "err", err)
		return nil
	}
	if n > 0 {
		s.log.Info("post deleted with comments", "post_id", id.Hex(), "comments", n)
	}
	return nil
}

func (s *PostService) AddTag(ctx context.Context, caller model.Caller, id bson.ObjectID, tag string) (*model.Post, error) {
	if strings.TrimSpace(tag) == "" {
		return nil, apperr.New(apperr.InvalidInput, "tag required")
	}
	if err := s.requireOwner(ctx, caller, id); err != nil {
		return nil, err
	}
	return s.posts.AddTag(ctx, id, tag)
}

func (s *PostService) RemoveTag(ctx context.Context, caller model.Caller, id bson.ObjectID, tag string) (*model.Post, error) {
	if strings.TrimSpace(tag) == "" {
		return nil, apperr.New(apperr.InvalidInput, "tag required")
	}
	if err := s.requireOwner(ctx, caller, id); err != nil {
		return nil, err
	}
	return s.posts.RemoveTag(ctx, id, tag)
}

func (s *PostService) requireOwner(ctx context.Context, caller model.Caller, id bson.ObjectID) error {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if post.AuthorID != caller.ID && !caller.IsAdmin() {
		return apperr.New(apperr.Forbidden, "not the post owner")
	}
	return nil
}
