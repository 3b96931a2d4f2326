package dto

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type TopPost struct {
	ID            bson.ObjectID `json:"id"            bson:"_id"`
	Title         string        `json:"title"         bson:"title"`
	Excerpt       string        `json:"excerpt"       bson:"excerpt"`
	Tags          []string      `json:"tags"          bson:"tags"`
	Category      string        `json:"category"      bson:"category"`
	Likes         int64         `json:"likes"         bson:"likes"`
	CommentsCount int64         `json:"commentsCount" bson:"comments_count"`
	CreatedAt     time.Time     `json:"createdAt"     bson:"created_at"`
	Author        AuthorRef     `json:"author"        bson:"author"`
}

type TagCount struct {
	Tag   string `json:"tag"   bson:"tag"`
	Count int64  `json:"count" bson:"count"`
}

type AuthorCount struct {
	Author AuthorRef `json:"author" bson:"author"`
	Count  int64     `json:"count"  bson:"count"`
}

type CommentAverages struct {
	TotalPosts    int64   `json:"totalPosts"    bson:"total_posts"`
	TotalComments int64   `json:"totalComments" bson:"total_comments"`
	AvgComments   float64 `json:"avgComments"   bson:"avg_comments"`
}

type MonthCount struct {
	Month int   `json:"month" bson:"month"`
	Count int64 `json:"count" bson:"count"`
}

type MonthlyPostsResp struct {
	Year int          `json:"year"`
	Data []MonthCount `json:"data"`
}
