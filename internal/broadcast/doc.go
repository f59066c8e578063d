// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

/*
Package broadcast implements the post and read pipelines behind the map.

Create runs, in order: optional captcha verification, input validation,
IP hashing, the store's atomic check-and-increment, the insert, and finally
a publish to the live feed. Every failure surfaces immediately; nothing is
retried. The counter increment is not rolled back when the insert fails.

List validates the bounding box and since parameters, plans the query with
package geo, and narrows antimeridian-crossing results in memory.

Both pipelines return typed errors (see errors.go) that the HTTP layer maps
to status codes.
*/
package broadcast
