package adapter

import (
	"context"
	"time"

	"github.com/PuniCore/Puni/internal/segment"
)

// Scene is the conversational context of an occurrence.
type Scene string

const (
	SceneFriend      Scene = "friend"
	SceneGroup       Scene = "group"
	SceneGuild       Scene = "guild"
	SceneGuildDirect Scene = "direct"
	SceneGroupTemp   Scene = "groupTemp"
)

// Contact identifies where an event came from and where a reply goes.
type Contact struct {
	Scene Scene
	// Peer is the friend, group or guild id.
	Peer string
	// SubPeer is the channel id for guild scenes, or the group id for
	// group-temporary sessions.
	SubPeer string
	Name    string
}

// Protocol names the wire protocol an adapter speaks.
type Protocol string

const (
	ProtocolConsole Protocol = "console"
	ProtocolOther   Protocol = "other"
)

// Info is the identity of an adapter instance.
type Info struct {
	Name     string
	Version  string
	Protocol Protocol
	SelfID   string
}

// SendResult describes a delivered message.
type SendResult struct {
	MessageID string
	Time      time.Time
	Raw       any
}

// Adapter sends and recalls messages on one bot account.
type Adapter interface {
	Info() Info
	Send(ctx context.Context, contact Contact, elems []segment.Element) (SendResult, error)
	Recall(ctx context.Context, contact Contact, messageID string) error
}
