// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

/*
Package websocket pushes newly created broadcasts to map viewers in real time.

Key Components:

  - Hub: registers clients and fans out new broadcasts
  - Client: one connection with a read and a write goroutine
  - Message: the {"type", "data"} frame used in both directions

Each client has a viewport (a bounding box, possibly crossing the
antimeridian). A broadcast is delivered only to clients whose viewport
contains its point; a client without a viewport receives everything.

Frames from the browser:

	{"type":"viewport","data":{"bbox":"37,38,-123,-122"}}
	{"type":"viewport","data":{}}        // whole map
	{"type":"ping"}

Frames to the browser:

	{"type":"broadcast","data":{"id":"...","content":"...","latitude":..., ...}}
	{"type":"pong","data":null}
	{"type":"error","data":{"error":"Latitude must be between -90 and 90"}}

Lifecycle:

 1. The API upgrades the request and calls NewClient with the initial bbox
 2. The client is sent on Hub.Register and Start launches its pumps
 3. readPump exits on any read error and unregisters the client
 4. The hub closes the send channel; writePump sends a close frame

A client whose send buffer fills up is dropped rather than slowing the hub.
RunWithContext is meant to run under the supervisor tree; on cancellation
it closes every client and returns.

Timeouts: pings every 54s, a connection without a pong for 60s is closed,
and each write must finish within 10s.
*/
package websocket
