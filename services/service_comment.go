package services

import (
	"context"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"blog-backend/configs"
	"blog-backend/dto"
	"blog-backend/internal/apperr"
	"blog-backend/internal/metrics"
	"blog-backend/internal/repository"
	"blog-backend/model"
)

// CommentService coordinates comment writes with the denormalized fields on
// the owning post (comments_count and the bounded comments_preview cache).
// Every mutation first attempts an atomic unit of work spanning both
// collections; when the deployment cannot provide one, it degrades to a
// best-effort sequence whose residue is repaired by reconciliation.
type CommentService struct {
	posts    repository.PostStore
	comments repository.CommentStore
	users    repository.UserStore
	txn      repository.TxnRunner

	adminCanEdit bool
	orphanPolicy string
	log          *slog.Logger
}

func NewCommentService(
	posts repository.PostStore,
	comments repository.CommentStore,
	users repository.UserStore,
	txn repository.TxnRunner,
	cfg *configs.Config,
	log *slog.Logger,
) *CommentService {
	return &CommentService{
		posts:        posts,
		comments:     comments,
		users:        users,
		txn:          txn,
		adminCanEdit: cfg.AdminCanEditComments,
		orphanPolicy: cfg.OrphanPolicy,
		log:          log,
	}
}

// Create inserts a comment and keeps the post's count and preview cache in
// step. On the fallback path the comment insert is the durable step; a
// failed post update leaves a stale count that Reconcile repairs.
func (s *CommentService) Create(ctx context.Context, postID bson.ObjectID, caller model.Caller, text string, parentID *bson.ObjectID) (*model.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.New(apperr.InvalidInput, "text required")
	}
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return nil, err
	}
	if parentID != nil {
		parent, err := s.comments.FindByID(ctx, *parentID)
		if err != nil {
			if apperr.Is(err, apperr.NotFound) {
				return nil, apperr.New(apperr.NotFound, "parent comment not found")
			}
			return nil, err
		}
		if parent.PostID != postID {
			return nil, apperr.New(apperr.InvalidInput, "parent comment belongs to another post")
		}
	}

	comment := model.NewComment(postID, caller.ID, text, parentID)
	entry := comment.Preview(caller.Username)

	apply := func(ctx context.Context) error {
		if err := s.comments.Insert(ctx, comment); err != nil {
			return err
		}
		if err := s.posts.IncCommentsCount(ctx, postID, 1); err != nil {
			return err
		}
		return s.posts.PushPreview(ctx, postID, entry)
	}

	err := s.runTwoPhase(ctx, "create", apply, func(ctx context.Context) error {
		// Comment row first: it is the ground truth. The post update may
		// fail afterwards; that drift is accepted and bounded.
		if err := s.comments.Insert(ctx, comment); err != nil {
			return err
		}
		if err := s.posts.IncCommentsCount(ctx, postID, 1); err != nil {
			s.noteDrift("create", postID, err)
			return nil
		}
		if err := s.posts.PushPreview(ctx, postID, entry); err != nil {
			s.noteDrift("create", postID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	comment.AuthorName = caller.Username
	return comment, nil
}

// Update replaces the text. Only the author may edit, unless admin override
// is enabled. The cached preview prefix is refreshed best-effort: the cache
// is a read optimization, so its failure is logged, not surfaced.
func (s *CommentService) Update(ctx context.Context, commentID bson.ObjectID, caller model.Caller, text string) (*model.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.New(apperr.InvalidInput, "text required")
	}
	existing, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if existing.AuthorID != caller.ID && !(s.adminCanEdit && caller.IsAdmin()) {
		return nil, apperr.New(apperr.Forbidden, "not the comment author")
	}

	updated, err := s.comments.UpdateText(ctx, commentID, text)
	if err != nil {
		return nil, err
	}

	if err := s.posts.SetPreviewText(ctx, existing.PostID, commentID, model.TextPrefix(text)); err != nil {
		s.log.Warn("preview refresh failed",
			"post_id", existing.PostID.Hex(),
			"comment_id", commentID.Hex(),
			"err", err)
	}
	return updated, nil
}

// Delete removes a comment and decrements the post count (floored at zero).
// Authorized for the comment author, the post owner and admins. A concurrent
// delete of the same comment observes NotFound.
func (s *CommentService) Delete(ctx context.Context, commentID bson.ObjectID, caller model.Caller) error {
	comment, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		return err
	}
	post, err := s.posts.FindByID(ctx, comment.PostID)
	if err != nil {
		return err
	}

	isCommentAuthor := comment.AuthorID == caller.ID
	isPostOwner := post.AuthorID == caller.ID
	if !isCommentAuthor && !isPostOwner && !caller.IsAdmin() {
		return apperr.New(apperr.Forbidden, "not allowed to delete this comment")
	}

	removeRow := func(ctx context.Context) error {
		removed, err := s.comments.Delete(ctx, commentID)
		if err != nil {
			return err
		}
		if !removed {
			return apperr.New(apperr.NotFound, "comment not found")
		}
		return nil
	}

	err = s.runTwoPhase(ctx, "delete",
		func(ctx context.Context) error {
			if err := removeRow(ctx); err != nil {
				return err
			}
			if err := s.posts.IncCommentsCount(ctx, comment.PostID, -1); err != nil {
				return err
			}
			return s.posts.PullPreview(ctx, comment.PostID, commentID)
		},
		func(ctx context.Context) error {
			// Row removal first; a failed count update overcounts until
			// reconciliation.
			if err := removeRow(ctx); err != nil {
				return err
			}
			if err := s.posts.IncCommentsCount(ctx, comment.PostID, -1); err != nil {
				s.noteDrift("delete", comment.PostID, err)
				return nil
			}
			if err := s.posts.PullPreview(ctx, comment.PostID, commentID); err != nil {
				s.noteDrift("delete", comment.PostID, err)
			}
			return nil
		},
	)
	if err != nil {
		return err
	}

	if s.orphanPolicy == configs.OrphanPolicyDetach {
		if _, err := s.comments.DetachChildren(ctx, commentID); err != nil {
			s.log.Warn("detach children failed", "comment_id", commentID.Hex(), "err", err)
		}
	}
	return nil
}

// List returns a page of comments for a post, newest first, with author
// names resolved.
func (s *CommentService) List(ctx context.Context, postID bson.ObjectID, page, limit int64) ([]model.Comment, int64, error) {
	comments, total, err := s.comments.ListByPost(ctx, postID, page, limit)
	if err != nil {
		return nil, 0, err
	}
	if err := s.resolveAuthors(ctx, comments); err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// Threads returns the newest comments of a post arranged as reply trees.
func (s *CommentService) Threads(ctx context.Context, postID bson.ObjectID, limit int64) ([]*dto.CommentThread, error) {
	comments, err := s.comments.NewestByPost(ctx, postID, limit)
	if err != nil {
		return nil, err
	}
	if err := s.resolveAuthors(ctx, comments); err != nil {
		return nil, err
	}
	return BuildThreads(comments), nil
}

func (s *CommentService) resolveAuthors(ctx context.Context, comments []model.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	ids := make([]bson.ObjectID, 0, len(comments))
	seen := make(map[bson.ObjectID]struct{}, len(comments))
	for _, c := range comments {
		if _, ok := seen[c.AuthorID]; !ok {
			seen[c.AuthorID] = struct{}{}
			ids = append(ids, c.AuthorID)
		}
	}
	names, err := s.users.UsernamesByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for i := range comments {
		comments[i].AuthorName = names[comments[i].AuthorID]
	}
	return nil
}

// runTwoPhase is the two-strategy executor: the transactional unit first,
// then, on a TransientStore classification only, the fallback sequence. Any
// other error propagates unchanged.
func (s *CommentService) runTwoPhase(ctx context.Context, op string, txnFn, fallbackFn func(ctx context.Context) error) error {
	if s.txn.Supported() {
		err := s.txn.Run(ctx, txnFn)
		if err == nil {
			return nil
		}
		if !apperr.IsTransient(err) {
			return err
		}
		s.log.Warn("transactional path unavailable, using fallback", "op", op, "err", err)
	}
	metrics.FallbackTotal.WithLabelValues(op).Inc()
	return fallbackFn(ctx)
}

func (s *CommentService) noteDrift(op string, postID bson.ObjectID, err error) {
	metrics.DriftTotal.Inc()
	s.log.Warn("post counters stale after fallback step",
		"op", op,
		"post_id", postID.Hex(),
		"err", err)
}
