package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/v2/bson"

	"blog-backend/internal/metrics"
	"blog-backend/internal/repository"
	"blog-backend/model"
)

// ReconcileService is the self-healing side of the consistency subsystem:
// it recomputes a post's comments_count from the comment rows and rebuilds
// the preview cache from the newest rows. Drift is expected input here, never
// an error.
type ReconcileService struct {
	posts    repository.PostStore
	comments repository.CommentStore
	users    repository.UserStore
	log      *slog.Logger
}

func NewReconcileService(
	posts repository.PostStore,
	comments repository.CommentStore,
	users repository.UserStore,
	log *slog.Logger,
) *ReconcileService {
	return &ReconcileService{posts: posts, comments: comments, users: users, log: log}
}

// Reconcile overwrites the stored count with the exact row count and returns
// it. NotFound when the post no longer exists.
func (s *ReconcileService) Reconcile(ctx context.Context, postID bson.ObjectID) (int64, error) {
	metrics.ReconcileRunsTotal.Inc()

	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return 0, err
	}

	count, err := s.comments.CountByPost(ctx, postID)
	if err != nil {
		return 0, err
	}

	preview, err := s.rebuildPreview(ctx, postID)
	if err != nil {
		return 0, err
	}

	if err := s.posts.SetCommentsState(ctx, postID, count, preview); err != nil {
		return 0, err
	}

	if post.CommentsCount != count {
		metrics.ReconcileRepairedTotal.Inc()
		s.log.Info("comment count repaired",
			"post_id", postID.Hex(),
			"stored", post.CommentsCount,
			"actual", count)
	}
	return count, nil
}

func (s *ReconcileService) rebuildPreview(ctx context.Context, postID bson.ObjectID) ([]model.PreviewEntry, error) {
	newest, err := s.comments.NewestByPost(ctx, postID, model.PreviewLimit)
	if err != nil {
		return nil, err
	}
	ids := make([]bson.ObjectID, 0, len(newest))
	for _, c := range newest {
		ids = append(ids, c.AuthorID)
	}
	names, err := s.users.UsernamesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	preview := make([]model.PreviewEntry, 0, len(newest))
	for _, c := range newest {
		preview = append(preview, c.Preview(names[c.AuthorID]))
	}
	return preview, nil
}

// Sweep reconciles every post. Used by the scheduler; errors on individual
// posts are logged and do not stop the sweep.
func (s *ReconcileService) Sweep(ctx context.Context) {
	ids, err := s.posts.ListIDs(ctx)
	if err != nil {
		s.log.Error("reconcile sweep: list posts", "err", err)
		return
	}
	for _, id := range ids {
		if _, err := s.Reconcile(ctx, id); err != nil {
			s.log.Warn("reconcile sweep: post skipped", "post_id", id.Hex(), "err", err)
		}
	}
}

// Schedule starts the periodic sweep. Returns a stop function. A blank
// schedule disables the scheduler.
func (s *ReconcileService) Schedule(spec string) (stop func(), err error) {
	if spec == "" {
		return func() {}, nil
	}
	c := cron.New()
	_, err = c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		s.Sweep(ctx)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	s.log.Info("reconcile sweep scheduled", "spec", spec)
	return func() { <-c.Stop().Done() }, nil
}
