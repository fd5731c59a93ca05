// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ioprpc

import "errors"

var (
	// ErrClosing is returned by Query/Send when the channel has already
	// begun a graceful BYE shutdown (spec §3 invariant iv, §4.5 "closing").
	ErrClosing = errors.New("ioprpc: channel is closing")

	// ErrNotReady is returned when a channel cannot accept new outgoing
	// work: not connected, not local, or queuable=false (spec §3 ic_is_ready).
	ErrNotReady = errors.New("ioprpc: channel is not ready")

	// ErrSlotsExhausted is returned synchronously from Query when the
	// 24-bit slot space is fully occupied (spec §4.3, §8 boundary case).
	ErrSlotsExhausted = errors.New("ioprpc: slot table exhausted")

	// ErrChannelGone means a slot identifier's channel id no longer
	// resolves in the registry (recycled or wiped). ReplyErr and ReplyTo
	// return it; the automatic proxy-reply relay drops such a reply.
	ErrChannelGone = errors.New("ioprpc: channel no longer exists")

	// ErrUnknownSlot means a reply arrived for a slot not present in the
	// slot table (already answered, canceled, or timed out).
	ErrUnknownSlot = errors.New("ioprpc: no such slot")

	// ErrHeaderRejected is returned by splitFrameBody when a HasHdr frame's
	// body is too short for its header-length prefix. The read pipeline
	// answers such a query, and delivers such a reply, as StatusInvalid;
	// the channel stays up.
	ErrHeaderRejected = errors.New("ioprpc: frame header rejected")

	// ErrStreamFDDisallowed: HAS_FD on a stream transport is rejected per
	// spec §6 ("for stream sockets, FD passing is disallowed").
	ErrStreamFDDisallowed = errors.New("ioprpc: file descriptors not allowed on stream transport")

	// ErrForwardConsumed is returned by Forward when the reply it targets
	// has already been consumed (decoded and handed to its callback).
	ErrForwardConsumed = errors.New("ioprpc: reply already consumed, cannot forward")

	// ErrForwardHTTPOrigin is returned by Forward when the origin slot is
	// HTTP-foreign: the HTTP front end is out of scope for this package
	// (spec §1 Non-goals), so there is no channel to relay the frame to.
	ErrForwardHTTPOrigin = errors.New("ioprpc: cannot forward to an HTTP-origin slot")

	// ErrLocalChannel is returned (wrapped) by Reconnect on a channel with
	// no dial address: a local (in-process) channel or a spawned one.
	ErrLocalChannel = errors.New("ioprpc: operation not valid on a local channel")

	// ErrCredentialsRejected is returned by Spawn when the configured
	// credentials callback rejects the incoming peer (spec §4.9).
	ErrCredentialsRejected = errors.New("ioprpc: peer credentials rejected")

	// ErrCodecMismatch is returned by PassthroughCodec.Pack when handed a
	// value that isn't already []byte.
	ErrCodecMismatch = errors.New("ioprpc: passthrough codec requires []byte")
)
