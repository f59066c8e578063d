// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

/*
Package supervisor runs the long-lived parts of the server under a
thejerf/suture v4 tree.

	broadcastmap (root)
	├── background-layer
	│   ├── websocket-hub
	│   └── counter-maintenance
	└── api-layer
	    └── http-server

Services that return an error are restarted with backoff. Canceling the
context passed to Serve stops every service, waiting up to ShutdownTimeout
for each. Supervisor events are logged through sutureslog into the zerolog
bridge from package logging.

Adapters from the components' own lifecycles to suture.Service live in the
services subpackage.
*/
package supervisor
