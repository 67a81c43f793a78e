// Package clock is the time port for tabguard. Lockout windows, challenge
// validity, and session expiry all read the injected Clock so tests can move
// time without sleeping. The only scheduled resource is the countdown
// ticker; everything else is evaluated lazily on demand.
package clock
