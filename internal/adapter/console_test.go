package adapter

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PuniCore/Puni/internal/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestConsole_SendAndRecall(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole("bot", "alice", strings.NewReader(""), &out, zaptest.NewLogger(t))

	contact := Contact{Scene: SceneFriend, Peer: "alice"}
	res, err := c.Send(context.Background(), contact, []segment.Element{segment.Text("hi\nthere")})
	require.NoError(t, err)
	assert.NotEmpty(t, res.MessageID)
	assert.Equal(t, "Send private alice: hi\\nthere\n", out.String())

	require.NoError(t, c.Recall(context.Background(), contact, res.MessageID))
	assert.Error(t, c.Recall(context.Background(), contact, res.MessageID))
}

func TestConsole_SendCancelled(t *testing.T) {
	c := NewConsole("bot", "alice", strings.NewReader(""), &bytes.Buffer{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Send(ctx, Contact{Scene: SceneGroup, Peer: "g"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConsole_Run(t *testing.T) {
	in := strings.NewReader("hello\n\n  #ping  \nbad\n")
	c := NewConsole("bot", "alice", in, &bytes.Buffer{}, zaptest.NewLogger(t))

	var got []string
	err := c.Run(context.Background(), func(_ context.Context, m ConsoleMessage) error {
		assert.Equal(t, "alice", m.UserID)
		got = append(got, m.Text)
		if m.Text == "bad" {
			return errors.New("handler failed")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "#ping", "bad"}, got)
}

func TestConsole_Info(t *testing.T) {
	c := NewConsole("bot", "alice", strings.NewReader(""), &bytes.Buffer{}, nil)
	assert.Equal(t, ProtocolConsole, c.Info().Protocol)
	assert.Equal(t, "bot", c.Info().SelfID)
	assert.Equal(t, "alice", c.UserID())
}
