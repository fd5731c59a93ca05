// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ioprpc

import (
	"net"
	"time"

	"github.com/iop-rpc/ioprpc/internal/wire"
)

// Connect dials network/address and returns a ready Channel. If the dial
// fails and AutoReconnect is enabled (the default, spec §4.9), Connect
// still returns a usable Channel that begins retrying in the background
// instead of failing outright — mirroring ic_connect's "always returns a
// handle, errors surface through on_event" contract.
func Connect(rt *Runtime, disp *Dispatcher, network, address string, opts ...ChannelOption) (*Channel, error) {
	o := defaultChannelOptions
	for _, fn := range opts {
		fn(&o)
	}
	ch := newChannel(rt, disp, o)
	ch.network, ch.address = network, address

	conn, err := net.Dial(network, address)
	if err != nil {
		if !o.AutoReconnect {
			rt.unregister(ch.id)
			return nil, err
		}
		go ch.reconnectLoop()
		return ch, nil
	}
	if err := ch.adopt(conn); err != nil {
		rt.unregister(ch.id)
		return nil, err
	}
	return ch, nil
}

// Spawn adopts an already-accepted connection (from net.Listener.Accept)
// as a new Channel. Spawned channels never auto-reconnect: there is
// nothing to redial (spec §3B supplement's is_spawned/no_autodel
// distinction — a spawned channel's default is to delete itself once
// disconnected, tracked here by the caller simply dropping the reference
// once OnEvent reports EventDisconnected, unless NoAutoDelete is set).
func Spawn(rt *Runtime, disp *Dispatcher, conn net.Conn, opts ...ChannelOption) (*Channel, error) {
	o := defaultChannelOptions
	o.AutoReconnect = false
	for _, fn := range opts {
		fn(&o)
	}
	o.AutoReconnect = false // a spawned channel's network/address are unset; nothing to redial regardless
	ch := newChannel(rt, disp, o)
	if err := ch.adopt(conn); err != nil {
		rt.unregister(ch.id)
		return nil, err
	}
	return ch, nil
}

// adopt wires conn into ch as its live transport: classifies stream vs
// packet mode, captures peer credentials on a unix socket unless trusted,
// and starts the reader/writer goroutines and activity watch.
func (ch *Channel) adopt(conn net.Conn) error {
	kind := transportStream
	switch conn.LocalAddr().Network() {
	case "unixpacket", "udp", "udp4", "udp6":
		kind = transportPacket
	}

	var unixConn *net.UnixConn
	if uc, ok := conn.(*net.UnixConn); ok {
		unixConn = uc
	}

	if unixConn != nil && !ch.trusted {
		creds, cerr := wire.GetPeerCredentials(unixConn)
		if cerr == nil {
			pc := PeerCreds{UID: creds.UID, GID: creds.GID, PID: creds.PID}
			if ch.opts.OnCreds != nil {
				if rerr := ch.opts.OnCreds(ch, pc); rerr != nil {
					_ = conn.Close()
					return ErrCredentialsRejected
				}
			}
			ch.mu.Lock()
			ch.creds, ch.hasCreds = pc, true
			ch.mu.Unlock()
		}
	}

	wireMode := wire.StreamMode
	if kind == transportPacket {
		wireMode = wire.PacketMode
	}

	wireOpts := []wire.Option{wire.WithMode(wireMode)}
	if unixConn != nil {
		// A unix-domain socket never crosses a host boundary, so ch.reader
		// and ch.writer are given native byte order. Frames on a unix
		// socket do not pass through them, though: readLoop uses
		// wire.ReadFrameFDs, and the write pipeline uses wire.WriteFrameFDs
		// or writeStreamBatch, all of which encode the header little-endian.
		wireOpts = append(wireOpts, wire.WithNativeByteOrder())
	}

	ch.mu.Lock()
	ch.kind = kind
	ch.conn = conn
	ch.unixConn = unixConn
	ch.reader = wire.NewReader(conn, wireOpts...)
	ch.writer = wire.NewWriter(conn, wireOpts...)
	ch.connected = true
	ch.closing = false
	ch.queuable = true
	ch.mu.Unlock()

	ch.wg.Add(2)
	go ch.readLoop()
	go ch.writeLoop()
	ch.activity.start(ch, ch.opts.SoftWatch, ch.opts.HardWatch)
	ch.fireEvent(EventConnected)
	return nil
}

// Reconnect forces an immediate dial attempt rather than waiting for the
// next backoff tick. It only applies to a socketed, dialed channel (spec
// §4.9); a local channel or one adopted via Spawn has no address to redial.
func (ch *Channel) Reconnect() error {
	if ch.kind == transportLocal || ch.address == "" {
		return errNotDialable("Reconnect")
	}
	if ch.Connected() {
		return nil
	}
	conn, err := net.Dial(ch.network, ch.address)
	if err != nil {
		return err
	}
	return ch.adopt(conn)
}

// reconnectLoop retries Connect's dial with the configured delay until it
// succeeds or the channel is retired for good (spec §4.9).
func (ch *Channel) reconnectLoop() {
	for {
		ch.mu.Lock()
		retired := !ch.queuable
		ch.mu.Unlock()
		if retired {
			return
		}
		time.Sleep(ch.opts.RetryDelay)

		conn, err := net.Dial(ch.network, ch.address)
		if err != nil {
			continue
		}
		if err := ch.adopt(conn); err != nil {
			continue
		}
		return
	}
}
