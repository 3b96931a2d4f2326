package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestMakeSlug(t *testing.T) {
	now := time.UnixMilli(1700000012345).UTC()
	slug := MakeSlug("Hello, World! Go & MongoDB", now)
	assert.Equal(t, "hello-world-go-mongodb-12345", slug)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Simple Title":        "simple-title",
		"  trim   spaces  ":   "trim-spaces",
		"under_score-dash":    "under-score-dash",
		"¡Ünïcode! stripped":  "ncode-stripped",
		"":                    "post",
		"!!!":                 "post",
		"Already-Slugged-123": "already-slugged-123",
	}
	for in, want := range cases {
		assert.Equal(t, want, slugify(in), "input %q", in)
	}
}

func TestSlugifyCapsLength(t *testing.T) {
	long := strings.Repeat("word ", 100)
	got := slugify(long)
	assert.LessOrEqual(t, len(got), 120)
}

func TestTextPrefix(t *testing.T) {
	short := "short text"
	assert.Equal(t, short, TextPrefix(short))

	long := strings.Repeat("a", PreviewTextLen+1)
	assert.Len(t, TextPrefix(long), PreviewTextLen)

	// The cut must not split a multi-byte rune.
	runes := strings.Repeat("é", PreviewTextLen) // 2 bytes each
	got := TextPrefix(runes)
	assert.LessOrEqual(t, len(got), PreviewTextLen)
	assert.True(t, strings.HasSuffix(got, "é"))
}

func TestNewPostDefaults(t *testing.T) {
	p := NewPost(bson.NewObjectID(), "  A Title  ", "body text", []string{"go", "", "go", " db "}, "tech", "bogus")
	assert.Equal(t, "A Title", p.Title)
	assert.Equal(t, StatusDraft, p.Status, "unknown status defaults to draft")
	assert.Equal(t, []string{"go", "db"}, p.Tags)
	assert.Equal(t, "body text", p.Excerpt)
	assert.NotNil(t, p.LikedBy)
	assert.NotNil(t, p.CommentsPreview)
	assert.False(t, p.ID.IsZero())
}

func TestClamp(t *testing.T) {
	p := &Post{
		Likes:         -3,
		CommentsCount: -1,
	}
	for i := 0; i < PreviewLimit+2; i++ {
		p.CommentsPreview = append(p.CommentsPreview, PreviewEntry{CommentID: bson.NewObjectID()})
	}

	p.Clamp()
	assert.Equal(t, int64(0), p.Likes)
	assert.Equal(t, int64(0), p.CommentsCount)
	assert.Len(t, p.CommentsPreview, PreviewLimit)
}

func TestCommentPreviewEntry(t *testing.T) {
	postID := bson.NewObjectID()
	authorID := bson.NewObjectID()
	c := NewComment(postID, authorID, strings.Repeat("x", PreviewTextLen+40), nil)
	require.False(t, c.ID.IsZero())

	e := c.Preview("alice")
	assert.Equal(t, c.ID, e.CommentID)
	assert.Equal(t, authorID, e.AuthorID)
	assert.Equal(t, "alice", e.AuthorName)
	assert.Len(t, e.TextPrefix, PreviewTextLen)
	assert.Equal(t, c.CreatedAt, e.CreatedAt)
}

func TestLikedByUser(t *testing.T) {
	u := bson.NewObjectID()
	p := &Post{LikedBy: []bson.ObjectID{bson.NewObjectID(), u}}
	assert.True(t, p.LikedByUser(u))
	assert.False(t, p.LikedByUser(bson.NewObjectID()))
}
