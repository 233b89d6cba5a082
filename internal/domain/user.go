package domain

import "github.com/google/uuid"

// Profile is the human-readable identity of another user, resolved from
// the profile collaborator before an inbound call offer is surfaced
type Profile struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CompanyName string    `json:"company_name,omitempty"`
}
