package models

import "time"

// UserFieldLastSeen is the persisted name of User.LastSeen.
const UserFieldLastSeen = "last_seen"

// User is the record kept for every owner that has started a lecture.
type User struct {
	OwnerID   string    `json:"owner_id" bson:"owner_id" firestore:"owner_id"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" firestore:"created_at"`
	LastSeen  time.Time `json:"last_seen" bson:"last_seen" firestore:"last_seen"`
}
