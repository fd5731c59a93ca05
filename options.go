// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ioprpc

import "time"

// Event is delivered to a Channel's OnEvent callback (spec §3, §4.9).
type Event int

const (
	EventConnected Event = iota
	EventDisconnected
	EventActive // first activity after a soft-watch idle period
	EventIdle   // no activity for the soft-watch period
)

func (e Event) String() string {
	switch e {
	case EventConnected:
		return "CONNECTED"
	case EventDisconnected:
		return "DISCONNECTED"
	case EventActive:
		return "ACTIVE"
	case EventIdle:
		return "IDLE"
	default:
		return "UNKNOWN"
	}
}

// CredsFunc inspects newly-captured peer credentials and may reject the
// connection by returning an error (spec §4.9).
type CredsFunc func(ch *Channel, creds PeerCreds) error

// ChannelOptions configures a Channel, following the teacher's functional
// options pattern.
type ChannelOptions struct {
	Codec Codec

	// Priority is the default outgoing lane (spec §4.4's 2-bit priority
	// field) applied to a message that didn't call SetPriority itself
	// (i.e. whose Priority is still its zero value) when sent on this
	// channel.
	Priority uint8

	// AutoReconnect enables automatic reconnection with backoff after an
	// unexpected disconnect (spec §4.9). Defaults to true, as in the
	// original (ic_init sets auto_reconn=true).
	AutoReconnect bool
	RetryDelay    time.Duration

	// Trusted channels skip peer-credential checks (spec §3B supplement).
	Trusted bool

	// NoAutoDelete is recorded on the channel, but no code path reads it:
	// a spawned channel is always retired (unregistered from its Runtime)
	// when it disconnects, whether or not this is set.
	NoAutoDelete bool

	// SoftWatch and HardWatch configure the inactivity timers (spec §4.9).
	// Zero disables the respective timer.
	SoftWatch time.Duration
	HardWatch time.Duration

	OnEvent func(ch *Channel, evt Event)
	OnCreds CredsFunc
}

var defaultChannelOptions = ChannelOptions{
	Codec:         PassthroughCodec,
	AutoReconnect: true,
	RetryDelay:    1000 * time.Millisecond,
}

type ChannelOption func(*ChannelOptions)

func WithCodec(c Codec) ChannelOption { return func(o *ChannelOptions) { o.Codec = c } }

func WithChannelPriority(p uint8) ChannelOption {
	return func(o *ChannelOptions) { o.Priority = p & 0x3 }
}

func WithAutoReconnect(enabled bool) ChannelOption {
	return func(o *ChannelOptions) { o.AutoReconnect = enabled }
}

func WithRetryDelay(d time.Duration) ChannelOption {
	return func(o *ChannelOptions) { o.RetryDelay = d }
}

func WithTrusted() ChannelOption { return func(o *ChannelOptions) { o.Trusted = true } }

func WithNoAutoDelete() ChannelOption { return func(o *ChannelOptions) { o.NoAutoDelete = true } }

func WithOnEvent(fn func(ch *Channel, evt Event)) ChannelOption {
	return func(o *ChannelOptions) { o.OnEvent = fn }
}

func WithOnCreds(fn CredsFunc) ChannelOption {
	return func(o *ChannelOptions) { o.OnCreds = fn }
}

// WithWatchActivity enables the soft/hard inactivity timers (spec §4.9).
func WithWatchActivity(soft, hard time.Duration) ChannelOption {
	return func(o *ChannelOptions) { o.SoftWatch, o.HardWatch = soft, hard }
}

// PeerCreds mirrors wire.PeerCredentials without leaking the internal
// package through the public API.
type PeerCreds struct {
	UID int
	GID int
	PID int
}
