// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

// Package services adapts the server's long-lived components to
// suture.Service so they can be added to the supervisor tree.
//
//   - HTTPServerService: binds its address, then Serve/Shutdown
//   - WebSocketHubService: Hub.RunWithContext
//   - SchedulerService: Start/Stop schedulers (counter maintenance)
//
// Every Serve returns ctx.Err() on a clean stop, which suture treats as a
// normal termination.
package services
