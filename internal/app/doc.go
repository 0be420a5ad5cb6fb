// Package app is the composition root for carradio.
//
// # Overview
//
// Start wires configuration, backend discovery, the gateway client, the
// shared state.Store and the push stream into a Session. RunTUI and RunShell
// hand a Session to one of the two front ends and block until it exits.
//
// # Startup
//
//  1. Load ~/.config/carradio/config.toml (defaults when missing)
//  2. Apply the log level (-v count first, then log_level)
//  3. Resolve the backend: --backend override, mDNS when discover is set,
//     otherwise backend_url
//  4. Build the gateway client for <backend>/<resource>/<action>
//  5. Start the push stream goroutine (StartPush)
//  6. Run the front end
//
// # Data Flow
//
//	┌──────────────┐   push.Message   ┌──────────────┐
//	│ push.Stream  │ ───────────────> │  front end   │
//	│ (goroutine)  │    channel       │  event loop  │
//	└──────┬───────┘                  └──────┬───────┘
//	       │ LinkUp/LinkDown                 │ gateway.Call
//	       v                                 v
//	┌──────────────┐  RecordCall      ┌──────────────┐
//	│ state.Store  │ <─────────────── │ gateway      │
//	└──────────────┘                  │ Client       │
//	                                  └──────────────┘
//
// The stream reconnects with exponential backoff until the context is
// cancelled, then closes the channel.
//
// # Error Handling
//
// Fatal errors (returned from Start):
//   - Config file present but unparseable
//   - Backend address or push URL that cannot be parsed
//
// Recoverable errors (logged, session continues):
//   - Discovery timeouts, which fall back to backend_url
//   - Push link failures, which retry in the background
//   - Failed backend calls, which surface as diagnostics in the front end
package app
