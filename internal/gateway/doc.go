// Package gateway provides the outbound call path from the overlay to the
// radio backend.
//
// # Overview
//
// Every user action (play, stop, volume release, save/delete favorite, close)
// becomes a named backend action posted as JSON:
//
//	POST http://<backend>/<resource>/<action>
//	Content-Type: application/json; charset=UTF-8
//
//	{"url":"https://stream.example/live","volume":0.5}
//
// The package is split into three files:
//
//   - client.go: HTTP client and response normalization
//   - requests.go: typed payloads, local validation, Call/Dispatch helpers
//   - errors.go: CallError, InputError and user-facing prompts
//
// # Response Normalization
//
// Invoke never turns a successful transport into a hard error:
//
//   - 2xx with a JSON object body: returned as-is
//   - 2xx with an empty or non-JSON body: {"ok": true, "response": "empty"}
//   - non-2xx: *CallError with Kind == KindBackend, the status code and, when
//     the body parses as JSON, the decoded error body
//   - dial/DNS/timeout failures: *CallError with Kind == KindTransport
//
// # Local Validation
//
// Payload types implement Validate. Invoke runs it before building a request,
// and for play, setVolume, saveFavorite and deleteFavorite it also reads the
// encoded payload back into the action's request type, so a plain map is held
// to the same rules. An empty stream URL or a favorite without a name is
// rejected as *InputError and the backend never sees it:
//
//	_, err := client.Invoke(ctx, gateway.ActionPlay, map[string]any{"url": "", "volume": 0.5})
//	var inputErr *gateway.InputError
//	errors.As(err, &inputErr) // true; inputErr.Prompt is shown to the user
//
// # Fire and Forget
//
// Outcomes are diagnostics only. Front ends wrap Dispatch in a goroutine or a
// tea.Cmd, log the outcome and move on; displayed state is only ever changed
// by inbound push messages (see package push).
package gateway
