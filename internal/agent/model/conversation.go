package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

type TranscriptRepository interface {
	// AppendMessages archives messages at the end of the session transcript
	AppendMessages(ctx context.Context, sessionID string, messages []*schema.Message) error

	// LoadTranscript retrieves the archived transcript for a session
	LoadTranscript(ctx context.Context, sessionID string) (*TranscriptHistory, error)

	// ClearTranscript removes the archived transcript for a session
	ClearTranscript(ctx context.Context, sessionID string) error

	// GetMessageCount returns the number of archived messages in the session
	GetMessageCount(ctx context.Context, sessionID string) (int, error)
}

// TranscriptHistory represents an archived transcript with its session id.
type TranscriptHistory struct {
	SessionID string
	Messages  []*schema.Message
}
