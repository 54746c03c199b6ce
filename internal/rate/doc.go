// Package rate throttles failed logins with Redis fixed-window counters.
//
// Keys are <prefix>:al:<identifier> and, with IP throttling on,
// <prefix>:ali:<ip>. A failure increments each counter and starts its window
// if none is running. Logins are refused once any counter reaches
// MaxLoginAttempts; the window ends when the key expires or, for the
// identifier key only, after a successful login.
package rate
