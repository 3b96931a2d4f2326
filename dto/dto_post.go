package dto

import (
	"go.mongodb.org/mongo-driver/v2/bson"

	"blog-backend/model"
)

type CreatePostReq struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	Category string   `json:"category"`
	Status   string   `json:"status"`
}

type UpdatePostReq struct {
	Title    *string   `json:"title"`
	Content  *string   `json:"content"`
	Tags     *[]string `json:"tags"`
	Category *string   `json:"category"`
	Status   *string   `json:"status"`
}

type TagReq struct {
	Tag string `json:"tag"`
}

type PageMeta struct {
	Total int64 `json:"total"`
	Page  int64 `json:"page"`
	Limit int64 `json:"limit"`
}

type ListPostsResp struct {
	Data []model.Post `json:"data"`
	Meta PageMeta     `json:"meta"`
}

// PostDetail is a post joined with its author and a threaded view of its
// newest comments.
type PostDetail struct {
	Post     model.Post       `json:"post"`
	Author   AuthorRef        `json:"author"`
	Comments []*CommentThread `json:"comments"`
}

type AuthorRef struct {
	ID       bson.ObjectID `json:"id"       bson:"_id"`
	Username string        `json:"username" bson:"username"`
}

type LikeResp struct {
	Liked bool  `json:"liked"`
	Likes int64 `json:"likes"`
}
