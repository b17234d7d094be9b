package models

// These structs define the nested transport envelopes delivered to the
// batch ingestion function. The queue batches opaque messages; each
// message body carries a notification envelope; the notification's
// message field carries the storage event with the actual
// document-change records. Each layer is decoded independently so a
// malformed envelope can be attributed to the right level.

// BatchEvent is the outermost payload of one invocation: a batch of
// queue messages, each with an opaque JSON body.
type BatchEvent struct {
	Messages []QueueMessage `json:"messages"`
}

// QueueMessage is one transport message in a batch.
type QueueMessage struct {
	MessageID string `json:"messageId"`
	Body      string `json:"body"`
}

// Notification is the envelope found inside a queue message body. Its
// Message field is itself an encoded StorageEvent.
type Notification struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

// StorageEvent is the innermost envelope: a list of document-change
// records emitted by the object store.
type StorageEvent struct {
	Records []StorageRecord `json:"records"`
}

// StorageRecord describes one uploaded object. Object is
// percent-encoded for transport and must be decoded before use.
type StorageRecord struct {
	Bucket    string `json:"bucket"`
	Object    string `json:"object"`
	EventTime string `json:"eventTime"`
}
