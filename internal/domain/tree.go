package domain

// ReviewTree is a review with its replies resolved into child nodes.
type ReviewTree struct {
	Review
	Replies []*ReviewTree `json:"replies"`
}

// BuildReviewTrees assembles threaded trees from a flat set of reviews.
// Top-level reviews become roots in the order given; each node's children
// follow the parent's ReplyIDs order. Reply ids that are missing from the
// flat set are skipped. The visible predicate prunes nodes; pruning a
// node prunes its whole subtree.
func BuildReviewTrees(reviews []*Review, visible func(*Review) bool) []*ReviewTree {
	byID := make(map[string]*Review, len(reviews))
	for _, r := range reviews {
		byID[r.ID] = r
	}

	var build func(r *Review) *ReviewTree
	build = func(r *Review) *ReviewTree {
		node := &ReviewTree{Review: *r, Replies: []*ReviewTree{}}
		for _, id := range r.ReplyIDs {
			child, ok := byID[id]
			if !ok {
				continue
			}
			if visible != nil && !visible(child) {
				continue
			}
			node.Replies = append(node.Replies, build(child))
		}
		return node
	}

	trees := make([]*ReviewTree, 0, len(reviews))
	for _, r := range reviews {
		if !r.IsTopLevel() {
			continue
		}
		if visible != nil && !visible(r) {
			continue
		}
		trees = append(trees, build(r))
	}
	return trees
}
