package domain

import "time"

// Review status constants.
const (
	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
	ReviewStatusRejected = "rejected"
)

// Rating bounds for top-level reviews.
const (
	MinRating = 1
	MaxRating = 5
)

// Review represents a course review or a reply to one. Top-level reviews
// carry a star rating; replies never do. ReplyIDs preserves the order in
// which replies were attached to this review.
type Review struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	Rating    *int      `json:"rating,omitempty"`
	Status    string    `json:"status"`
	ParentID  *string   `json:"parent_id,omitempty"`
	ReplyIDs  []string  `json:"reply_ids,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsReply reports whether the review is a reply to another review.
func (r *Review) IsReply() bool {
	return r.ParentID != nil && *r.ParentID != ""
}

// IsTopLevel reports whether the review sits at the root of a thread.
func (r *Review) IsTopLevel() bool {
	return !r.IsReply()
}

// ValidStatuses returns all valid review statuses.
func ValidStatuses() []string {
	return []string{
		ReviewStatusPending,
		ReviewStatusApproved,
		ReviewStatusRejected,
	}
}

// IsValidStatus checks if a status string is valid.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// AllowedTransitions defines which moderation transitions are valid.
// Once a review leaves pending it can only move between approved and
// rejected; nothing ever returns to pending.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		ReviewStatusPending:  {ReviewStatusApproved, ReviewStatusRejected},
		ReviewStatusApproved: {ReviewStatusRejected},
		ReviewStatusRejected: {ReviewStatusApproved},
	}
}

// CanTransitionTo checks if the review can transition to the target status.
func (r *Review) CanTransitionTo(target string) bool {
	allowed, ok := AllowedTransitions()[r.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// IsValidRating checks if a star rating falls within the accepted range.
func IsValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}
