// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

/*
Package services adapts components with their own lifecycle to the suture v4
Serve(ctx) contract.

HTTPServerService wraps an *http.Server: Serve starts ListenAndServe and, when
the supervisor cancels ctx, calls Shutdown with a bounded timeout so in-flight
requests (including a restore that is already applying) can finish.

The backup scheduler needs no wrapper; schedule.Runner implements
suture.Service directly.
*/
package services
