package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Comment struct {
	ID        bson.ObjectID  `json:"id"                 bson:"_id,omitempty"`
	PostID    bson.ObjectID  `json:"postId"             bson:"post_id"`
	AuthorID  bson.ObjectID  `json:"authorId"           bson:"author_id"`
	ParentID  *bson.ObjectID `json:"parentId,omitempty" bson:"parent_id,omitempty"`
	Text      string         `json:"text"               bson:"text"`
	CreatedAt time.Time      `json:"createdAt"          bson:"created_at"`
	UpdatedAt time.Time      `json:"updatedAt"          bson:"updated_at"`

	// AuthorName is resolved for display, never stored on the comment row.
	AuthorName string `json:"authorName,omitempty" bson:"-"`
}

func NewComment(postID, authorID bson.ObjectID, text string, parentID *bson.ObjectID) *Comment {
	now := time.Now().UTC()
	return &Comment{
		ID:        bson.NewObjectID(),
		PostID:    postID,
		AuthorID:  authorID,
		ParentID:  parentID,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Preview derives the bounded summary of this comment that gets embedded on
// the owning post.
func (c *Comment) Preview(authorName string) PreviewEntry {
	return PreviewEntry{
		CommentID:  c.ID,
		AuthorID:   c.AuthorID,
		AuthorName: authorName,
		TextPrefix: TextPrefix(c.Text),
		CreatedAt:  c.CreatedAt,
	}
}
