package dto

import "blog-backend/model"

type CreateCommentReq struct {
	Text     string `json:"text"`
	ParentID string `json:"parentId,omitempty"`
}

type UpdateCommentReq struct {
	Text string `json:"text"`
}

type ListCommentsResp struct {
	Data []model.Comment `json:"data"`
	Meta PageMeta        `json:"meta"`
}

// CommentThread is one comment with its direct replies resolved.
type CommentThread struct {
	Comment model.Comment    `json:"comment"`
	Replies []*CommentThread `json:"replies"`
}

type ReconcileResp struct {
	PostID string `json:"postId"`
	Count  int64  `json:"count"`
}
