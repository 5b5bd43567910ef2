package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PuniCore/Puni/internal/adapter"
	"github.com/PuniCore/Puni/internal/segment"
	"go.uber.org/zap"
)

// ErrReplySend is returned when a reply could not be delivered within its
// retry budget.
var ErrReplySend = errors.New("reply send failed")

// Kind is the top-level event category.
type Kind string

const (
	KindMessage Kind = "message"
	KindNotice  Kind = "notice"
	KindRequest Kind = "request"
)

// Contact aliases the adapter contact so handlers only import this package.
type Contact = adapter.Contact

// Sender identifies who triggered the event.
type Sender struct {
	UserID string
	Nick   string
	Role   Role
}

// Options carries everything needed to construct an Event.
type Options struct {
	Kind     Kind
	SubKind  string
	EventID  string
	Raw      any
	Time     time.Time
	Contact  Contact
	Sender   Sender
	IsMaster bool
	IsAdmin  bool

	// Message fields, empty for notices and requests.
	MessageID string
	Elements  []segment.Element

	Bot adapter.Adapter
	Log *zap.Logger
	// OnSend observes every send attempt made by Reply. retrying is set
	// when a failed attempt will be retried.
	OnSend func(err error, retrying bool)
}

// ReplyOptions tunes a single Reply call.
type ReplyOptions struct {
	// At prepends a mention of the sender outside private scenes.
	At bool
	// Quote prepends a reference to the originating message.
	Quote bool
	// RecallAfter recalls the sent message after the delay when positive.
	RecallAfter time.Duration
	// RetryCount is the number of extra attempts after a failed send.
	RetryCount int
}

type replyFunc func(ctx context.Context, elems []segment.Element, opts ReplyOptions) (adapter.SendResult, error)

// Event is one normalized inbound occurrence. Identity fields are fixed at
// construction; only the Store is meant to be mutated by handlers.
type Event struct {
	selfID    string
	kind      Kind
	subKind   string
	eventID   string
	raw       any
	time      time.Time
	contact   Contact
	sender    Sender
	isMaster  bool
	isAdmin   bool
	messageID string
	elements  []segment.Element
	text      string

	bot    adapter.Adapter
	log    *zap.Logger
	store  *Store
	reply  replyFunc
	onSend func(err error, retrying bool)
}

// New constructs an Event and binds its reply operation.
func New(opts Options) *Event {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Time.IsZero() {
		opts.Time = time.Now()
	}
	if opts.Kind == "" {
		opts.Kind = KindMessage
	}
	e := &Event{
		kind:      opts.Kind,
		subKind:   opts.SubKind,
		eventID:   opts.EventID,
		raw:       opts.Raw,
		time:      opts.Time,
		contact:   opts.Contact,
		sender:    opts.Sender,
		isMaster:  opts.IsMaster,
		isAdmin:   opts.IsAdmin,
		messageID: opts.MessageID,
		elements:  opts.Elements,
		text:      segment.PlainText(opts.Elements),
		bot:       opts.Bot,
		log:       log,
		store:     newStore(),
		onSend:    opts.OnSend,
	}
	if opts.Bot != nil {
		e.selfID = opts.Bot.Info().SelfID
	}
	e.reply = e.bindReply()
	return e
}

func (e *Event) SelfID() string { return e.selfID }
func (e *Event) Kind() Kind { return e.kind }
func (e *Event) SubKind() string { return e.subKind }
func (e *Event) EventID() string { return e.eventID }
func (e *Event) Raw() any { return e.raw }
func (e *Event) Time() time.Time { return e.time }
func (e *Event) Contact() Contact { return e.contact }
func (e *Event) Sender() Sender { return e.sender }
func (e *Event) UserID() string { return e.sender.UserID }
func (e *Event) IsMaster() bool { return e.isMaster }
func (e *Event) IsAdmin() bool { return e.isAdmin }
func (e *Event) MessageID() string { return e.messageID }
func (e *Event) Elements() []segment.Element { return e.elements }
func (e *Event) Text() string { return e.text }
func (e *Event) Bot() adapter.Adapter { return e.bot }
func (e *Event) Store() *Store { return e.store }

// IsPrivate reports whether the event came from a friend chat.
func (e *Event) IsPrivate() bool { return e.contact.Scene == adapter.SceneFriend }

// IsFriend is an alias of IsPrivate.
func (e *Event) IsFriend() bool { return e.IsPrivate() }

func (e *Event) IsGroup() bool { return e.contact.Scene == adapter.SceneGroup }
func (e *Event) IsGuild() bool { return e.contact.Scene == adapter.SceneGuild }
func (e *Event) IsGroupTemp() bool { return e.contact.Scene == adapter.SceneGroupTemp }
func (e *Event) IsGuildDirect() bool { return e.contact.Scene == adapter.SceneGuildDirect }

// Reply sends elems back to the event's contact.
func (e *Event) Reply(ctx context.Context, elems []segment.Element, opts ReplyOptions) (adapter.SendResult, error) {
	return e.reply(ctx, elems, opts)
}

// ReplyText is a shorthand for replying with a single text element.
func (e *Event) ReplyText(ctx context.Context, text string) (adapter.SendResult, error) {
	return e.reply(ctx, []segment.Element{segment.Text(text)}, ReplyOptions{})
}

func (e *Event) bindReply() replyFunc {
	var reply replyFunc
	reply = func(ctx context.Context, elems []segment.Element, opts ReplyOptions) (adapter.SendResult, error) {
		if e.bot == nil {
			return adapter.SendResult{}, fmt.Errorf("%w: no adapter bound", ErrReplySend)
		}

		message := make([]segment.Element, 0, len(elems)+2)
		if opts.Quote && e.messageID != "" {
			message = append(message, segment.Quote(e.messageID))
		}
		if opts.At && !e.IsPrivate() {
			message = append(message, segment.At(e.sender.UserID))
		}
		message = append(message, elems...)

		result, err := e.bot.Send(ctx, e.contact, message)
		if e.onSend != nil {
			e.onSend(err, err != nil && opts.RetryCount > 0)
		}
		if err != nil {
			if opts.RetryCount > 0 {
				e.log.Debug("reply failed, retrying",
					zap.Int("remaining", opts.RetryCount),
					zap.Error(err))
				next := opts
				next.RetryCount--
				return reply(ctx, elems, next)
			}
			return adapter.SendResult{}, fmt.Errorf("%w: %w", ErrReplySend, err)
		}

		if opts.RecallAfter > 0 && result.MessageID != "" {
			bot, contact, id := e.bot, e.contact, result.MessageID
			log := e.log
			time.AfterFunc(opts.RecallAfter, func() {
				if err := bot.Recall(context.Background(), contact, id); err != nil {
					log.Debug("auto recall failed", zap.String("message_id", id), zap.Error(err))
				}
			})
		}
		return result, nil
	}
	return reply
}

// Store is a scratch key/value space shared by the handlers of one event.
type Store struct {
	mu   sync.RWMutex
	data map[string]any
}

func newStore() *Store {
	return &Store{data: make(map[string]any)}
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores value under key.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
}

// Delete removes key.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
}
