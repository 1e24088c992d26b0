package models

import "time"

// VoteChoice is a member's position on an investment recommendation.
type VoteChoice string

const (
	VoteApprove VoteChoice = "approve"
	VoteReject  VoteChoice = "reject"
)

// RecommendationVote stores one vote per (room, recommendation, user).
// Re-voting overwrites the previous choice; it never creates a second row.
type RecommendationVote struct {
	Base
	RoomID           string     `gorm:"type:uuid;not null;uniqueIndex:idx_vote_triple" json:"room_id"`
	RecommendationID string     `gorm:"not null;uniqueIndex:idx_vote_triple" json:"recommendation_id"`
	UserID           string     `gorm:"type:uuid;not null;uniqueIndex:idx_vote_triple" json:"user_id"`
	Vote             VoteChoice `gorm:"not null" json:"vote"`
}

// StopVote records a member's request to stop a running asset line.
// One row per (room, recommendation, user); casting again is a no-op.
type StopVote struct {
	Base
	RoomID           string    `gorm:"type:uuid;not null;uniqueIndex:idx_stop_triple" json:"room_id"`
	RecommendationID string    `gorm:"not null;uniqueIndex:idx_stop_triple" json:"recommendation_id"`
	UserID           string    `gorm:"type:uuid;not null;uniqueIndex:idx_stop_triple" json:"user_id"`
	VotedAt          time.Time `json:"voted_at"`
}
