package services

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"

	"blog-backend/dto"
	"blog-backend/internal/repository"
)

// LikeService toggles a user's like on a post. Both directions are single
// membership-conditional store operations, so concurrent toggles by
// different users never lose updates; concurrent toggles by the same user
// race with last-write-wins.
type LikeService struct {
	posts repository.PostStore
}

func NewLikeService(posts repository.PostStore) *LikeService {
	return &LikeService{posts: posts}
}

func (s *LikeService) Toggle(ctx context.Context, postID, userID bson.ObjectID) (dto.LikeResp, error) {
	// Unlike applies only while the membership holds; when it does not,
	// LikeOnce applies only while it still does not. If both miss, either
	// the post is gone or a same-user race flipped the state between the two
	// attempts; the re-read settles which.
	applied, err := s.posts.Unlike(ctx, postID, userID)
	if err != nil {
		return dto.LikeResp{}, err
	}
	liked := false
	if !applied {
		applied, err = s.posts.LikeOnce(ctx, postID, userID)
		if err != nil {
			return dto.LikeResp{}, err
		}
		liked = applied
	}

	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return dto.LikeResp{}, err
	}
	if !applied {
		liked = post.LikedByUser(userID)
	}
	return dto.LikeResp{Liked: liked, Likes: post.Likes}, nil
}
