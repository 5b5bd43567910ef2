package adapter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/PuniCore/Puni/internal/segment"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConsoleMessage is one line read by the console adapter.
type ConsoleMessage struct {
	MessageID string
	UserID    string
	Text      string
	Time      time.Time
}

// Console is an adapter backed by a line-oriented reader and writer. Every
// input line is a friend message from UserID.
type Console struct {
	info   Info
	userID string
	in     io.Reader
	out    io.Writer
	log    *zap.Logger

	mu   sync.Mutex
	sent map[string]string
}

// NewConsole creates a console adapter.
func NewConsole(selfID, userID string, in io.Reader, out io.Writer, log *zap.Logger) *Console {
	if log == nil {
		log = zap.NewNop()
	}
	return &Console{
		info: Info{
			Name:     "console",
			Version:  "1.0.0",
			Protocol: ProtocolConsole,
			SelfID:   selfID,
		},
		userID: userID,
		in:     in,
		out:    out,
		log:    log.Named("console"),
		sent:   make(map[string]string),
	}
}

// Info implements Adapter.
func (c *Console) Info() Info { return c.info }

// UserID returns the id every console message is attributed to.
func (c *Console) UserID() string { return c.userID }

// Send implements Adapter by printing the rendered elements.
func (c *Console) Send(ctx context.Context, contact Contact, elems []segment.Element) (SendResult, error) {
	if err := ctx.Err(); err != nil {
		return SendResult{}, err
	}
	raw := segment.Raw(elems)
	id := uuid.NewString()

	c.mu.Lock()
	defer c.mu.Unlock()
	scene := "private"
	if contact.Scene == SceneGroup {
		scene = "group"
	}
	if _, err := fmt.Fprintf(c.out, "Send %s %s: %s\n", scene, contact.Peer, strings.ReplaceAll(raw, "\n", "\\n")); err != nil {
		return SendResult{}, fmt.Errorf("writing console output: %w", err)
	}
	c.sent[id] = raw
	return SendResult{MessageID: id, Time: time.Now(), Raw: raw}, nil
}

// Recall implements Adapter.
func (c *Console) Recall(ctx context.Context, contact Contact, messageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sent[messageID]; !ok {
		return fmt.Errorf("message %s not found", messageID)
	}
	delete(c.sent, messageID)
	fmt.Fprintf(c.out, "Recall %s %s\n", contact.Peer, messageID)
	return nil
}

// Run reads lines until ctx is cancelled or the reader is exhausted and
// hands each non-empty line to fn. Errors from fn are logged.
func (c *Console) Run(ctx context.Context, fn func(context.Context, ConsoleMessage) error) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					if err != nil {
						return fmt.Errorf("reading console input: %w", err)
					}
				default:
				}
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			msg := ConsoleMessage{
				MessageID: uuid.NewString(),
				UserID:    c.userID,
				Text:      line,
				Time:      time.Now(),
			}
			if err := fn(ctx, msg); err != nil {
				c.log.Warn("handling console message failed", zap.String("text", line), zap.Error(err))
			}
		}
	}
}
