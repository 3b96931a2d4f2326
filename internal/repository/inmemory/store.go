// Package inmemory is a map-backed implementation of the repository
// contracts for tests. It supports injected failures and a
// transactions-unsupported mode so the coordinator's fallback protocol can be
// exercised without a real deployment.
package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"blog-backend/internal/apperr"
	"blog-backend/internal/repository"
	"blog-backend/model"
)

// Failure points recognized by FailNext.
const (
	OpCommentInsert  = "comment.insert"
	OpCommentDelete  = "comment.delete"
	OpPostInc        = "post.inc"
	OpPostPush       = "post.push_preview"
	OpPostPull       = "post.pull_preview"
	OpPostSetPreview = "post.set_preview_text"
)

type Store struct {
	mu       sync.RWMutex
	posts    map[bson.ObjectID]*model.Post
	comments map[bson.ObjectID]*model.Comment
	users    map[bson.ObjectID]*model.User

	// TxnSupported mirrors a deployment capability; false makes Run report
	// TransientStore immediately.
	TxnSupported bool

	failures map[string]error
}

func New() *Store {
	return &Store{
		posts:        make(map[bson.ObjectID]*model.Post),
		comments:     make(map[bson.ObjectID]*model.Comment),
		users:        make(map[bson.ObjectID]*model.User),
		TxnSupported: true,
		failures:     make(map[string]error),
	}
}

// FailNext arms a one-shot failure for the named operation.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *Store) takeFailure(op string) error {
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return err
	}
	return nil
}

// === TxnRunner ===

func (s *Store) Supported() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.TxnSupported
}

// Run snapshots state, executes fn and rolls back on error, mimicking an
// all-or-nothing unit of work.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.Supported() {
		return apperr.New(apperr.TransientStore, "transactions unsupported")
	}
	snap := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshotState struct {
	posts    map[bson.ObjectID]*model.Post
	comments map[bson.ObjectID]*model.Comment
}

func (s *Store) snapshot() snapshotState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := snapshotState{
		posts:    make(map[bson.ObjectID]*model.Post, len(s.posts)),
		comments: make(map[bson.ObjectID]*model.Comment, len(s.comments)),
	}
	for id, p := range s.posts {
		cp := *p
		cp.Tags = append([]string(nil), p.Tags...)
		cp.LikedBy = append([]bson.ObjectID(nil), p.LikedBy...)
		cp.CommentsPreview = append([]model.PreviewEntry(nil), p.CommentsPreview...)
		snap.posts[id] = &cp
	}
	for id, c := range s.comments {
		cp := *c
		snap.comments[id] = &cp
	}
	return snap
}

func (s *Store) restore(snap snapshotState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = snap.posts
	s.comments = snap.comments
}

// === PostStore ===

func (s *Store) Insert(ctx context.Context, p *model.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.posts {
		if other.Slug == p.Slug {
			return apperr.New(apperr.Conflict, "duplicate key")
		}
	}
	cp := *p
	s.posts[p.ID] = &cp
	return nil
}

func (s *Store) FindByID(ctx context.Context, id bson.ObjectID) (*model.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "post not found")
	}
	cp := *p
	cp.Clamp()
	return &cp, nil
}

func (s *Store) FindBySlug(ctx context.Context, slug string) (*model.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.posts {
		if p.Slug == slug {
			cp := *p
			cp.Clamp()
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "post not found")
}

func (s *Store) List(ctx context.Context, f repository.PostFilter) ([]model.Post, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []model.Post
	for _, p := range s.posts {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.AuthorID != nil && p.AuthorID != *f.AuthorID {
			continue
		}
		if f.Tag != "" && !contains(p.Tags, f.Tag) {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(p.Title+" "+p.Content), strings.ToLower(f.Query)) {
			continue
		}
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	start := (page - 1) * limit
	if start >= total {
		return []model.Post{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (s *Store) ListIDs(ctx context.Context) ([]bson.ObjectID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]bson.ObjectID, 0, len(s.posts))
	for id := range s.posts {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) Update(ctx context.Context, id bson.ObjectID, u repository.PostUpdate) (*model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "post not found")
	}
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Content != nil {
		p.Content = *u.Content
		p.Excerpt = model.TextPrefix(*u.Content)
	}
	if u.Tags != nil {
		p.Tags = *u.Tags
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	return &cp, nil
}

func (s *Store) Archive(ctx context.Context, id bson.ObjectID) (*model.Post, error) {
	st := model.StatusArchived
	return s.Update(ctx, id, repository.PostUpdate{Status: &st})
}

func (s *Store) Delete(ctx context.Context, id bson.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return false, nil
	}
	delete(s.posts, id)
	return true, nil
}

func (s *Store) AddTag(ctx context.Context, id bson.ObjectID, tag string) (*model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "post not found")
	}
	if !contains(p.Tags, tag) {
		p.Tags = append(p.Tags, tag)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) RemoveTag(ctx context.Context, id bson.ObjectID, tag string) (*model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "post not found")
	}
	out := p.Tags[:0]
	for _, t := range p.Tags {
		if t != tag {
			out = append(out, t)
		}
	}
	p.Tags = out
	cp := *p
	return &cp, nil
}

func (s *Store) IncCommentsCount(ctx context.Context, id bson.ObjectID, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(OpPostInc); err != nil {
		return err
	}
	p, ok := s.posts[id]
	if !ok {
		return apperr.New(apperr.NotFound, "post not found")
	}
	p.CommentsCount += delta
	if p.CommentsCount < 0 {
		p.CommentsCount = 0
	}
	return nil
}

func (s *Store) PushPreview(ctx context.Context, id bson.ObjectID, e model.PreviewEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(OpPostPush); err != nil {
		return err
	}
	p, ok := s.posts[id]
	if !ok {
		return nil
	}
	p.CommentsPreview = append([]model.PreviewEntry{e}, p.CommentsPreview...)
	if len(p.CommentsPreview) > model.PreviewLimit {
		p.CommentsPreview = p.CommentsPreview[:model.PreviewLimit]
	}
	return nil
}

func (s *Store) PullPreview(ctx context.Context, postID, commentID bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(OpPostPull); err != nil {
		return err
	}
	p, ok := s.posts[postID]
	if !ok {
		return nil
	}
	out := p.CommentsPreview[:0]
	for _, e := range p.CommentsPreview {
		if e.CommentID != commentID {
			out = append(out, e)
		}
	}
	p.CommentsPreview = out
	return nil
}

func (s *Store) SetPreviewText(ctx context.Context, postID, commentID bson.ObjectID, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(OpPostSetPreview); err != nil {
		return err
	}
	p, ok := s.posts[postID]
	if !ok {
		return nil
	}
	for i := range p.CommentsPreview {
		if p.CommentsPreview[i].CommentID == commentID {
			p.CommentsPreview[i].TextPrefix = prefix
		}
	}
	return nil
}

func (s *Store) SetCommentsState(ctx context.Context, id bson.ObjectID, count int64, preview []model.PreviewEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return apperr.New(apperr.NotFound, "post not found")
	}
	if count < 0 {
		count = 0
	}
	if len(preview) > model.PreviewLimit {
		preview = preview[:model.PreviewLimit]
	}
	p.CommentsCount = count
	p.CommentsPreview = append([]model.PreviewEntry(nil), preview...)
	return nil
}

func (s *Store) Unlike(ctx context.Context, postID, userID bson.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok || !p.LikedByUser(userID) {
		return false, nil
	}
	out := p.LikedBy[:0]
	for _, id := range p.LikedBy {
		if id != userID {
			out = append(out, id)
		}
	}
	p.LikedBy = out
	p.Likes--
	if p.Likes < 0 {
		p.Likes = 0
	}
	return true, nil
}

func (s *Store) LikeOnce(ctx context.Context, postID, userID bson.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok || p.LikedByUser(userID) {
		return false, nil
	}
	p.LikedBy = append(p.LikedBy, userID)
	p.Likes++
	return true, nil
}

// === CommentStore ===

func (s *Store) InsertComment(ctx context.Context, c *model.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(OpCommentInsert); err != nil {
		return err
	}
	if _, dup := s.comments[c.ID]; dup {
		return apperr.New(apperr.Conflict, "duplicate key")
	}
	cp := *c
	s.comments[c.ID] = &cp
	return nil
}

func (s *Store) FindCommentByID(ctx context.Context, id bson.ObjectID) (*model.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.comments[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "comment not found")
	}
	cp := *c
	return &cp, nil
}

func (s *Store) UpdateCommentText(ctx context.Context, id bson.ObjectID, text string) (*model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "comment not found")
	}
	c.Text = text
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	return &cp, nil
}

func (s *Store) DeleteComment(ctx context.Context, id bson.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(OpCommentDelete); err != nil {
		return false, err
	}
	if _, ok := s.comments[id]; !ok {
		return false, nil
	}
	delete(s.comments, id)
	return true, nil
}

func (s *Store) DeleteCommentsByPost(ctx context.Context, postID bson.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, c := range s.comments {
		if c.PostID == postID {
			delete(s.comments, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) CountCommentsByPost(ctx context.Context, postID bson.ObjectID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, c := range s.comments {
		if c.PostID == postID {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListCommentsByPost(ctx context.Context, postID bson.ObjectID, page, limit int64) ([]model.Comment, int64, error) {
	all, err := s.NewestCommentsByPost(ctx, postID, int64(1<<31))
	if err != nil {
		return nil, 0, err
	}
	total := int64(len(all))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= total {
		return []model.Comment{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (s *Store) NewestCommentsByPost(ctx context.Context, postID bson.ObjectID, limit int64) ([]model.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []model.Comment
	for _, c := range s.comments {
		if c.PostID == postID {
			all = append(all, *c)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.Hex() > all[j].ID.Hex()
	})
	if int64(len(all)) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *Store) DetachCommentChildren(ctx context.Context, parentID bson.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, c := range s.comments {
		if c.ParentID != nil && *c.ParentID == parentID {
			c.ParentID = nil
			n++
		}
	}
	return n, nil
}

// === UserStore ===

func (s *Store) InsertUser(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.users {
		if other.Username == u.Username || other.Email == u.Email {
			return apperr.New(apperr.Conflict, "duplicate key")
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Store) FindUserByID(ctx context.Context, id bson.ObjectID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	cp := *u
	return &cp, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "user not found")
}

func (s *Store) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) UsernamesByIDs(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[bson.ObjectID]string, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out[id] = u.Username
		}
	}
	return out, nil
}

func contains(ss []string, want string) bool {
	for _, s := range ss {
		if s == want {
			return true
		}
	}
	return false
}
