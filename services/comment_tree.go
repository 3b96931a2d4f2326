package services

import (
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"

	"blog-backend/dto"
	"blog-backend/model"
)

// BuildThreads arranges a flat comment slice into reply trees. A comment
// whose parent is absent from the slice (deleted, or outside the page) is
// promoted to a root so orphaned threads stay reachable. Roots and replies
// are ordered newest first.
func BuildThreads(comments []model.Comment) []*dto.CommentThread {
	nodes := make(map[bson.ObjectID]*dto.CommentThread, len(comments))
	for _, c := range comments {
		nodes[c.ID] = &dto.CommentThread{Comment: c}
	}

	var roots []*dto.CommentThread
	for _, c := range comments {
		node := nodes[c.ID]
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	sortThreads(roots)
	return roots
}

// sortThreads orders every sibling group newest first, walking the forest
// with an explicit stack so arbitrarily deep reply chains cannot overflow.
func sortThreads(roots []*dto.CommentThread) {
	stack := [][]*dto.CommentThread{roots}
	for len(stack) > 0 {
		group := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Comment.CreatedAt.After(group[j].Comment.CreatedAt)
		})
		for _, node := range group {
			if len(node.Replies) > 0 {
				stack = append(stack, node.Replies)
			}
		}
	}
}

// FlattenThreads produces the depth-first display order of a thread forest,
// again with an explicit stack instead of recursion.
func FlattenThreads(roots []*dto.CommentThread) []model.Comment {
	var out []model.Comment
	stack := make([]*dto.CommentThread, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, node.Comment)
		for i := len(node.Replies) - 1; i >= 0; i-- {
			stack = append(stack, node.Replies[i])
		}
	}
	return out
}
