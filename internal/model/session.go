package model

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Ts      int64  `json:"ts"`
}

// ConversationChunk is a bounded, non-overlapping slice of one session's
// transcript, sized to fit a single extraction call. Not persisted.
type ConversationChunk struct {
	SessionID  string
	ChunkIndex int
	Messages   []Message
}

type Session struct {
	ID           string `json:"id" db:"id"`
	LastSeq      int64  `json:"last_seq" db:"last_seq"`
	ExtractedSeq int64  `json:"extracted_seq" db:"extracted_seq"`
	Mtime        int64  `json:"mtime" db:"mtime"`
}
