package model

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"

	// PreviewLimit bounds the denormalized recent-comments cache on a post.
	PreviewLimit = 5
	// PreviewTextLen bounds the cached comment text prefix.
	PreviewTextLen = 200

	slugMaxLen = 120
)

type Post struct {
	ID            bson.ObjectID   `json:"id"            bson:"_id,omitempty"`
	AuthorID      bson.ObjectID   `json:"authorId"      bson:"author_id"`
	Title         string          `json:"title"         bson:"title"`
	Slug          string          `json:"slug"          bson:"slug"`
	Content       string          `json:"content"       bson:"content"`
	Excerpt       string          `json:"excerpt"       bson:"excerpt"`
	Tags          []string        `json:"tags"          bson:"tags"`
	Category      string          `json:"category"      bson:"category,omitempty"`
	Status        string          `json:"status"        bson:"status"`
	Likes         int64           `json:"likes"         bson:"likes"`
	LikedBy       []bson.ObjectID `json:"likedBy"       bson:"liked_by"`
	CommentsCount int64           `json:"commentsCount" bson:"comments_count"`
	// CommentsPreview holds at most PreviewLimit entries, newest first.
	CommentsPreview []PreviewEntry `json:"commentsPreview" bson:"comments_preview"`
	CreatedAt       time.Time      `json:"createdAt"     bson:"created_at"`
	UpdatedAt       time.Time      `json:"updatedAt"     bson:"updated_at"`
}

// PreviewEntry is a denormalized summary of a recent comment, embedded on the
// post so list views render without a join.
type PreviewEntry struct {
	CommentID  bson.ObjectID `json:"commentId"  bson:"comment_id"`
	AuthorID   bson.ObjectID `json:"authorId"   bson:"author_id"`
	AuthorName string        `json:"authorName" bson:"author_name"`
	TextPrefix string        `json:"textPrefix" bson:"text_prefix"`
	CreatedAt  time.Time     `json:"createdAt"  bson:"created_at"`
}

// NewPost builds a post with its invariants established: status defaulted to
// draft, excerpt derived from content, counters zeroed, slug computed once.
func NewPost(authorID bson.ObjectID, title, content string, tags []string, category, status string) *Post {
	if status != StatusPublished && status != StatusArchived {
		status = StatusDraft
	}
	now := time.Now().UTC()
	return &Post{
		ID:              bson.NewObjectID(),
		AuthorID:        authorID,
		Title:           strings.TrimSpace(title),
		Slug:            MakeSlug(title, now),
		Content:         content,
		Excerpt:         TextPrefix(content),
		Tags:            normalizeTags(tags),
		Category:        category,
		Status:          status,
		LikedBy:         []bson.ObjectID{},
		CommentsPreview: []PreviewEntry{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Clamp repairs out-of-range denormalized fields on a record read back from
// storage: negative counters go to zero, an oversized preview is truncated.
func (p *Post) Clamp() {
	if p.Likes < 0 {
		p.Likes = 0
	}
	if p.CommentsCount < 0 {
		p.CommentsCount = 0
	}
	if len(p.CommentsPreview) > PreviewLimit {
		p.CommentsPreview = p.CommentsPreview[:PreviewLimit]
	}
}

func (p *Post) LikedByUser(userID bson.ObjectID) bool {
	for _, id := range p.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// MakeSlug derives the human-readable identifier from the title plus a
// disambiguating suffix. Computed once at creation, never recomputed.
func MakeSlug(title string, now time.Time) string {
	suffix := itoa(now.UnixMilli())
	if len(suffix) > 5 {
		suffix = suffix[len(suffix)-5:]
	}
	return slugify(title) + "-" + suffix
}

// SlugWithSuffix rebuilds a slug with an explicit suffix, used when the
// time-derived one collides.
func SlugWithSuffix(title, suffix string) string {
	return slugify(title) + "-" + suffix
}

func slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	var b strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case r == ' ' || r == '-' || r == '_' || r == '\t':
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if len(out) > slugMaxLen {
		out = out[:slugMaxLen]
	}
	if out == "" {
		out = "post"
	}
	return out
}

func itoa(n int64) string {
	if n <= 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// TextPrefix returns at most PreviewTextLen bytes of text, cut on a rune
// boundary.
func TextPrefix(text string) string {
	if len(text) <= PreviewTextLen {
		return text
	}
	cut := PreviewTextLen
	for cut > 0 && text[cut]&0xC0 == 0x80 {
		cut--
	}
	return text[:cut]
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
