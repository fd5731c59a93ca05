// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ioprpc

import (
	"context"
	"testing"
	"time"
)

func TestLocalPairRoundTrip(t *testing.T) {
	rt := NewRuntime()
	serverDisp := NewDispatcher()
	clientDisp := NewDispatcher()

	const cmdEcho int32 = 1
	if err := serverDisp.RegisterHandler(cmdEcho, nil, func(ch *Channel, slot SlotID, payload []byte, hdr []byte) {
		_ = ch.Reply(slot, payload)
	}); err != nil {
		t.Fatalf("RegisterHandler: %v", err)
	}

	client, server := NewLocalPair(rt, clientDisp, serverDisp)
	if !client.IsLocal() || !server.IsLocal() {
		t.Fatalf("NewLocalPair channels must report IsLocal")
	}
	if !client.Connected() || !server.Connected() {
		t.Fatalf("NewLocalPair channels must start connected")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	status, payload, err := client.QuerySync(ctx, cmdEcho, []byte("hello"))
	if err != nil {
		t.Fatalf("QuerySync: %v", err)
	}
	if status != StatusOK {
		t.Fatalf("status = %v, want StatusOK", status)
	}
	if string(payload) != "hello" {
		t.Fatalf("payload = %q, want %q", payload, "hello")
	}
}

func TestLocalPairAsyncFireAndForget(t *testing.T) {
	rt := NewRuntime()
	serverDisp := NewDispatcher()
	clientDisp := NewDispatcher()

	received := make(chan []byte, 1)
	const cmdNotify int32 = 2
	if err := serverDisp.RegisterHandler(cmdNotify, nil, func(ch *Channel, slot SlotID, payload []byte, hdr []byte) {
		received <- payload
	}); err != nil {
		t.Fatalf("RegisterHandler: %v", err)
	}

	client, _ := NewLocalPair(rt, clientDisp, serverDisp)
	if _, err := client.Query(cmdNotify, []byte("fyi"), nil); err != nil {
		t.Fatalf("Query: %v", err)
	}

	select {
	case got := <-received:
		if string(got) != "fyi" {
			t.Fatalf("payload = %q, want %q", got, "fyi")
		}
	case <-time.After(time.Second):
		t.Fatalf("async notification never arrived")
	}
}

func TestLocalPairUnimplementedCommand(t *testing.T) {
	rt := NewRuntime()
	client, _ := NewLocalPair(rt, NewDispatcher(), NewDispatcher())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	status, _, err := client.QuerySync(ctx, 999, nil)
	if err != nil {
		t.Fatalf("QuerySync: %v", err)
	}
	if status != StatusUnimplemented {
		t.Fatalf("status = %v, want StatusUnimplemented", status)
	}
}

func TestLocalPairException(t *testing.T) {
	rt := NewRuntime()
	serverDisp := NewDispatcher()
	const cmdFail int32 = 3
	if err := serverDisp.RegisterHandler(cmdFail, nil, func(ch *Channel, slot SlotID, payload []byte, hdr []byte) {
		_ = ch.Throw(slot, []byte("boom"))
	}); err != nil {
		t.Fatalf("RegisterHandler: %v", err)
	}

	client, _ := NewLocalPair(rt, NewDispatcher(), serverDisp)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	status, payload, err := client.QuerySync(ctx, cmdFail, nil)
	if err != nil {
		t.Fatalf("QuerySync: %v", err)
	}
	if status != StatusExn {
		t.Fatalf("status = %v, want StatusExn", status)
	}
	if string(payload) != "boom" {
		t.Fatalf("payload = %q, want %q", payload, "boom")
	}
}

func TestLocalPairQueryTimeout(t *testing.T) {
	rt := NewRuntime()
	serverDisp := NewDispatcher()
	const cmdHang int32 = 4
	if err := serverDisp.RegisterHandler(cmdHang, nil, func(ch *Channel, slot SlotID, payload []byte, hdr []byte) {
		// never replies
	}); err != nil {
		t.Fatalf("RegisterHandler: %v", err)
	}

	client, _ := NewLocalPair(rt, NewDispatcher(), serverDisp)
	msg := NewMessage(cmdHang, nil, nil)
	done := make(chan Status, 1)
	msg.cb = func(m *Message, status Status, payload []byte, decodeErr error) {
		done <- status
	}
	msg.SetTimeout(10 * time.Millisecond)
	if err := client.Send(msg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case status := <-done:
		if status != StatusTimedOut {
			t.Fatalf("status = %v, want StatusTimedOut", status)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout never fired")
	}
}

func TestLocalPairForcePackCopiesPayload(t *testing.T) {
	rt := NewRuntime()
	serverDisp := NewDispatcher()
	var gotPtr *byte
	const cmdCapture int32 = 6
	if err := serverDisp.RegisterHandler(cmdCapture, nil, func(ch *Channel, slot SlotID, payload []byte, hdr []byte) {
		if len(payload) > 0 {
			gotPtr = &payload[0]
		}
	}); err != nil {
		t.Fatalf("RegisterHandler: %v", err)
	}

	client, _ := NewLocalPair(rt, NewDispatcher(), serverDisp)
	original := []byte("abc")
	msg := NewMessage(cmdCapture, original, nil)
	msg.Async = true
	msg.ForcePack = true
	if err := client.Send(msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotPtr == nil {
		t.Fatalf("handler never ran")
	}
	if gotPtr == &original[0] {
		t.Fatalf("ForcePack must deliver a copy, not the original backing array")
	}
}

func TestLocalPairDisconnectAbortsPeer(t *testing.T) {
	rt := NewRuntime()
	serverDisp := NewDispatcher()
	const cmdHang int32 = 5
	if err := serverDisp.RegisterHandler(cmdHang, nil, func(ch *Channel, slot SlotID, payload []byte, hdr []byte) {
		// never replies; the reply will arrive only via abort-on-disconnect
	}); err != nil {
		t.Fatalf("RegisterHandler: %v", err)
	}

	client, server := NewLocalPair(rt, NewDispatcher(), serverDisp)
	done := make(chan Status, 1)
	msg := NewMessage(cmdHang, nil, func(m *Message, status Status, payload []byte, decodeErr error) {
		done <- status
	})
	if err := client.Send(msg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	server.Disconnect()

	select {
	case status := <-done:
		if status != StatusAbort {
			t.Fatalf("status = %v, want StatusAbort", status)
		}
	case <-time.After(time.Second):
		t.Fatalf("in-flight message was never aborted")
	}
	if client.Connected() {
		t.Fatalf("client must be disconnected once its local peer disconnects")
	}
}
