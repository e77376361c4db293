package entity

// ChannelState describes the lifecycle of a realtime channel. There is no
// delivery guarantee across reconnects; anything the remote side sent while
// the channel was not Open is recoverable only through history sync.
type ChannelState int

const (
	ChannelConnecting ChannelState = iota
	ChannelOpen
	ChannelClosed
)

func (s ChannelState) String() string {
	switch s {
	case ChannelConnecting:
		return "connecting"
	case ChannelOpen:
		return "open"
	case ChannelClosed:
		return "closed"
	}
	return "unknown"
}
