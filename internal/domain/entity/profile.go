package entity

import "time"

type Profile struct {
	ID        string    `json:"id" firestore:"id"`
	Username  string    `json:"username" firestore:"username"`
	LastSeen  time.Time `json:"last_seen" firestore:"lastSeen"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// IsOnline reports whether the profile heartbeat falls inside window ending at now.
func (p *Profile) IsOnline(now time.Time, window time.Duration) bool {
	return p.LastSeen.After(now.Add(-window))
}
