// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

/*
Package events carries in-process domain events over a Watermill gochannel
pub/sub.

Producers (the feed, favorites and comments) publish through Bus.Publish,
which never fails the caller: marshal and publish errors are logged and
counted. Consumers are registered on a Watermill router that runs as a
supervised service. The only consumer today is ActivityRecorder, which
keeps a short per-user history of what happened.

Every message carries a UUID, the request correlation ID (when present)
and the publish time as metadata.
*/
package events
