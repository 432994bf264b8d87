// Copyright (c) 2024 Jerzy Dąbrowski
// Based on original work by Thomas Jager, 2009. All rights reserved.
//
// This project is a fork of the original go-ircevent library created by Thomas Jager.
// Redistribution and use in source and binary forms, with or without modification, are permitted provided
// that the following conditions are met:
//
//   - Redistributions of source code must retain the above copyright notice, this list of conditions,
//     and the following disclaimer.
//   - Redistributions in binary form must reproduce the above copyright notice, this list of conditions,
//     and the following disclaimer in the documentation and/or other materials provided with the distribution.
//   - Neither the name of the original authors nor the names of its contributors may be used to endorse
//     or promote products derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED "AS IS" WITHOUT WARRANTY OF ANY KIND, EXPRESS OR IMPLIED, INCLUDING BUT NOT
// LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE, AND NONINFRINGEMENT.
// IN NO EVENT SHALL THE COPYRIGHT HOLDERS OR CONTRIBUTORS BE LIABLE FOR ANY CLAIM, DAMAGES, OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT, OR OTHERWISE, ARISING FROM, OUT OF, OR IN CONNECTION WITH THE SOFTWARE
// OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
package irc

import (
	"sync"
	"sync/atomic"
)

// ChannelMessage is one broadcast delivered to a connection subscribed to
// a named channel.
type ChannelMessage struct {
	Channel string
	Raw     string
}

// chanSub is one connection's mailbox for a single joined channel: a
// bounded queue plus a lag counter, matching the "send or lag" semantics
// the broadcast fabric is specified to provide.
type chanSub struct {
	ch  chan ChannelMessage
	lag *int64
}

// ChannelHub is the in-process stand-in for the pub/sub fabric: server-wide
// broadcast and per-channel broadcast with bounded queues. A production
// deployment swaps this for a real message bus (NATS, Redis streams, …)
// behind the same Subscribe/Publish surface; the connection driver only
// ever sees receive-only channels, so the swap touches nothing else.
type ChannelHub struct {
	mutex    sync.Mutex
	channels map[string]map[int]*chanSub
	server   map[int]chan string
	nextID   int
}

// NewChannelHub returns an empty hub.
func NewChannelHub() *ChannelHub {
	return &ChannelHub{
		channels: make(map[string]map[int]*chanSub),
		server:   make(map[int]chan string),
	}
}

// SubscribeChannel registers the caller on a named channel topic, with a
// queue depth of bufSize, and returns a receive-only channel plus an
// unsubscribe func.
func (h *ChannelHub) SubscribeChannel(name string, bufSize int) (<-chan ChannelMessage, func()) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	id := h.nextID
	h.nextID++
	sub := &chanSub{ch: make(chan ChannelMessage, bufSize), lag: new(int64)}
	if h.channels[name] == nil {
		h.channels[name] = make(map[int]*chanSub)
	}
	h.channels[name][id] = sub

	unsub := func() {
		h.mutex.Lock()
		defer h.mutex.Unlock()
		if subs, ok := h.channels[name]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(h.channels, name)
			}
		}
	}
	return sub.ch, unsub
}

// SubscribeServer registers the caller on the server-wide broadcast topic.
func (h *ChannelHub) SubscribeServer(bufSize int) (<-chan string, func()) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan string, bufSize)
	h.server[id] = ch

	unsub := func() {
		h.mutex.Lock()
		defer h.mutex.Unlock()
		delete(h.server, id)
	}
	return ch, unsub
}

// PublishChannel fans raw out to every subscriber of name. A subscriber
// whose queue is full is skipped rather than blocked on: its lag counter
// increments instead of stalling every other subscriber.
func (h *ChannelHub) PublishChannel(name, raw string) {
	h.mutex.Lock()
	subs := make([]*chanSub, 0, len(h.channels[name]))
	for _, sub := range h.channels[name] {
		subs = append(subs, sub)
	}
	h.mutex.Unlock()

	msg := ChannelMessage{Channel: name, Raw: raw}
	for _, sub := range subs {
		select {
		case sub.ch <- msg:
		default:
			atomic.AddInt64(sub.lag, 1)
		}
	}
}

// PublishServer fans raw out to every server-wide subscriber without
// blocking: a subscriber whose queue is full is skipped. Server-wide
// subscriptions carry no lag counter, so a skipped delivery is not counted.
func (h *ChannelHub) PublishServer(raw string) {
	h.mutex.Lock()
	chans := make([]chan string, 0, len(h.server))
	for _, ch := range h.server {
		chans = append(chans, ch)
	}
	h.mutex.Unlock()

	for _, ch := range chans {
		select {
		case ch <- raw:
		default:
		}
	}
}
