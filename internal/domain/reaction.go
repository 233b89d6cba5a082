package domain

// PostKind selects the backend endpoint a reaction targets.
// The toggle behaves identically for all three kinds.
type PostKind string

const (
	PostKindCargo     PostKind = "cargo-posts"
	PostKindTransport PostKind = "transport-ads"
	PostKindReview    PostKind = "reviews"
)

// ReactionState is the optimistic like state tracked per post,
// independent of the authoritative reaction list from the backend
type ReactionState struct {
	IsLikedByCurrentUser bool `json:"is_liked_by_current_user"`
	Count                int  `json:"count"`
}
