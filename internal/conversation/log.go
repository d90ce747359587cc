package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RichardoC/support-widget/internal/models"
	"github.com/RichardoC/support-widget/internal/support"
)

const (
	Greeting      = "Hi! Tell me what issue you’re facing and I’ll guide you step-by-step."
	FailurePrefix = "❌ Could not reach support service.\n"
)

// Recorder receives every entry appended to a Log.
type Recorder interface {
	SaveMessage(msg *models.Message) error
}

// Log is the append-only conversation shown to the user.
type Log struct {
	mu       sync.RWMutex
	entries  []models.Message
	recorder Recorder
	greeting string
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Log)

func WithRecorder(r Recorder) Option {
	return func(l *Log) {
		l.recorder = r
	}
}

// WithGreeting opens the log with an assistant line. The greeting is not
// passed to the recorder.
func WithGreeting(text string) Option {
	return func(l *Log) {
		l.greeting = text
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Log) {
		l.logger = logger
	}
}

func NewLog(opts ...Option) *Log {
	l := &Log{
		entries: make([]models.Message, 0, 16),
		logger:  zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.greeting != "" {
		l.entries = append(l.entries, l.newMessage(models.RoleAssistant, l.greeting, false))
	}
	return l
}

func (l *Log) AppendUser(text string) models.Message {
	return l.append(models.RoleUser, text, false)
}

func (l *Log) AppendAssistant(text string) models.Message {
	return l.append(models.RoleAssistant, text, false)
}

// AppendOutcome records the assistant side of an exchange. Skipped outcomes
// add nothing and report false.
func (l *Log) AppendOutcome(out support.Outcome) (models.Message, bool) {
	switch o := out.(type) {
	case support.Reply:
		return l.append(models.RoleAssistant, o.Text, false), true
	case support.Failure:
		return l.append(models.RoleAssistant, FailureText(o), true), true
	default:
		return models.Message{}, false
	}
}

// FailureText is what the user sees for a failed exchange.
func FailureText(f support.Failure) string {
	return FailurePrefix + f.Message
}

func (l *Log) Entries() []models.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	copied := make([]models.Message, len(l.entries))
	copy(copied, l.entries)
	return copied
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *Log) newMessage(role, text string, failed bool) models.Message {
	return models.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   text,
		Failed:    failed,
		CreatedAt: l.now(),
	}
}

func (l *Log) append(role, text string, failed bool) models.Message {
	msg := l.newMessage(role, text, failed)

	l.mu.Lock()
	l.entries = append(l.entries, msg)
	l.mu.Unlock()

	if l.recorder != nil {
		rec := msg
		if err := l.recorder.SaveMessage(&rec); err != nil {
			l.logger.Warn("failed to record conversation entry",
				zap.String("id", msg.ID),
				zap.String("role", msg.Role),
				zap.Error(err))
		}
	}
	return msg
}
