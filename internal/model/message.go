package model

import "time"

// Message is a published text snippet.
//
// The ID is not generated at publish time — it is a pre-generated identifier
// consumed from the free-slot pool and bound to the text exactly once. After
// publication the message is immutable and retrievable indefinitely at
// /pastbin/message/{id}.
type Message struct {
	ID        string    `json:"id"        bson:"id"`
	Username  string    `json:"username"  bson:"username"`
	Text      string    `json:"text"      bson:"text"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// Slot is one entry in the free identifier pool: an identifier that has been
// generated ahead of demand but not yet bound to a message.
type Slot struct {
	FreeHash  string    `bson:"free_hash"`
	CreatedAt time.Time `bson:"created_at"`
}
