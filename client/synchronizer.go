package client

import (
	"context"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/anjiri1684/agency_messaging/logger"
	"github.com/anjiri1684/agency_messaging/metrics"
	"github.com/anjiri1684/agency_messaging/models"
	"github.com/robfig/cron/v3"
)

const DefaultPollInterval = 3 * time.Second

// Fetcher is the part of the API the synchronizer needs. *API satisfies it.
type Fetcher interface {
	GetMessages(ctx context.Context, otherUserID string, page int) ([]models.Message, error)
	MarkAsRead(ctx context.Context, conversationID string) error
}

// Listener is told about every poll that observed new messages.
type Listener interface {
	MessagesChanged(conversationID string, messages []models.Message)
}

type ListenerFunc func(conversationID string, messages []models.Message)

func (f ListenerFunc) MessagesChanged(conversationID string, messages []models.Message) {
	f(conversationID, messages)
}

// Synchronizer keeps the open conversation fresh by polling. At most one
// session is live at a time; opening another cancels the previous one.
type Synchronizer struct {
	fetcher  Fetcher
	listener Listener
	interval time.Duration
	logger   *log.Logger

	openMu sync.Mutex
	mu     sync.Mutex
	active *Session
}

func NewSynchronizer(fetcher Fetcher, listener Listener, interval time.Duration) *Synchronizer {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Synchronizer{
		fetcher:  fetcher,
		listener: listener,
		interval: interval,
		logger:   logger.New("[sync] "),
	}
}

// Open switches the synchronizer to a conversation. The initial fetch is
// blocking and its error is returned to the caller. Later polls are silent.
func (s *Synchronizer) Open(ctx context.Context, conversationID, otherUserID string) (*Session, []models.Message, error) {
	s.openMu.Lock()
	defer s.openMu.Unlock()

	s.mu.Lock()
	prev := s.active
	s.active = nil
	s.mu.Unlock()
	if prev != nil {
		prev.Cancel()
	}

	messages, err := s.fetcher.GetMessages(ctx, otherUserID, 0)
	if err != nil {
		return nil, nil, err
	}
	messages = ordered(messages)

	if err := s.fetcher.MarkAsRead(ctx, conversationID); err != nil {
		s.logger.Printf("⚠️ mark as read for conversation %s failed: %v", conversationID, err)
	}

	session := newSession(s, conversationID, otherUserID, messages)
	s.mu.Lock()
	s.active = session
	s.mu.Unlock()
	session.start()
	return session, messages, nil
}

// Active returns the live session, if any.
func (s *Synchronizer) Active() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Close cancels the live session.
func (s *Synchronizer) Close() {
	if session := s.Active(); session != nil {
		session.Cancel()
	}
}

func (s *Synchronizer) isActive(session *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active == session
}

func (s *Synchronizer) release(session *Session) {
	s.mu.Lock()
	if s.active == session {
		s.active = nil
	}
	s.mu.Unlock()
}

// Session is the handle for one open conversation.
type Session struct {
	owner          *Synchronizer
	conversationID string
	otherUserID    string
	cron           *cron.Cron
	ctx            context.Context
	cancel         context.CancelFunc

	mu            sync.Mutex
	cancelled     bool
	messages      []models.Message
	previousCount int
}

func newSession(s *Synchronizer, conversationID, otherUserID string, messages []models.Message) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	cronLogger := cron.PrintfLogger(s.logger)
	return &Session{
		owner:          s,
		conversationID: conversationID,
		otherUserID:    otherUserID,
		cron:           cron.New(cron.WithLogger(cronLogger), cron.WithChain(cron.SkipIfStillRunning(cronLogger))),
		ctx:            ctx,
		cancel:         cancel,
		messages:       messages,
		previousCount:  len(messages),
	}
}

func (s *Session) start() {
	s.cron.Schedule(cron.Every(s.owner.interval), cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.owner.interval)
		defer cancel()
		s.Poll(ctx)
	}))
	s.cron.Start()
}

func (s *Session) ConversationID() string { return s.conversationID }

// Messages returns the last good snapshot, oldest first.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

func (s *Session) PreviousCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previousCount
}

func (s *Session) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Cancel stops polling and aborts any in-flight fetch. It is safe to call
// more than once and from a listener callback.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	s.mu.Unlock()

	s.cancel()
	s.cron.Stop()
	s.owner.release(s)
}

// Poll runs one silent refresh. Failures are logged and leave the last good
// snapshot in place. A poll for a session that is no longer live does nothing.
func (s *Session) Poll(ctx context.Context) {
	if !s.live() {
		metrics.Polls.WithLabelValues(metrics.PollSkipped).Inc()
		return
	}

	messages, err := s.owner.fetcher.GetMessages(ctx, s.otherUserID, 0)
	if err != nil {
		if !s.live() {
			metrics.Polls.WithLabelValues(metrics.PollSkipped).Inc()
			return
		}
		metrics.Polls.WithLabelValues(metrics.PollFailed).Inc()
		s.owner.logger.Printf("⚠️ poll for conversation %s failed: %v", s.conversationID, err)
		return
	}
	messages = ordered(messages)

	if !s.owner.isActive(s) {
		metrics.Polls.WithLabelValues(metrics.PollSkipped).Inc()
		return
	}
	s.mu.Lock()
	if s.cancelled || len(messages) < s.previousCount {
		// cancelled meanwhile, or a stale response overtaken by a newer one
		s.mu.Unlock()
		metrics.Polls.WithLabelValues(metrics.PollSkipped).Inc()
		return
	}
	grew := len(messages) > s.previousCount
	s.previousCount = len(messages)
	s.messages = messages
	s.mu.Unlock()

	if !grew {
		metrics.Polls.WithLabelValues(metrics.PollUnchanged).Inc()
		return
	}
	metrics.Polls.WithLabelValues(metrics.PollGrew).Inc()
	if s.owner.listener != nil {
		s.owner.listener.MessagesChanged(s.conversationID, slices.Clone(messages))
	}
	if err := s.owner.fetcher.MarkAsRead(ctx, s.conversationID); err != nil && s.live() {
		s.owner.logger.Printf("⚠️ mark as read for conversation %s failed: %v", s.conversationID, err)
	}
}

func (s *Session) live() bool {
	return !s.Cancelled() && s.owner.isActive(s)
}

// ordered sorts a copy of messages by creation time, keeping the server order
// for equal timestamps.
func ordered(messages []models.Message) []models.Message {
	out := slices.Clone(messages)
	if out == nil {
		out = []models.Message{}
	}
	slices.SortStableFunc(out, func(a, b models.Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}
