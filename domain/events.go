package domain

// ChangeEvent announces a persisted board change to other services.
type ChangeEvent struct {
	Session   string     `json:"session"`
	Kind      ChangeKind `json:"kind"`
	TaskID    string     `json:"taskId,omitempty"`
	Timestamp int64      `json:"timestamp"`
}
