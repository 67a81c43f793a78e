// Package authapi is the port to the remote authentication service. The
// engine only ever sees the [API] interface; [Client] is the HTTP
// implementation against the /auth/login and /auth/verify-session endpoints.
//
// # Error contract
//
// A request that reached the server and was refused returns [RejectedError]
// (the server owns the message). A request that never reached the server
// returns a transport error wrapped in [ErrTransport]; callers must not
// count those as failed attempts.
//
// # What this package must NOT do
//
//   - Track attempts, lockouts, or challenges (engine concerns).
//   - Persist anything.
package authapi
