// Package jwt encodes and decodes the signed, time-bounded claim sets used for
// access and refresh tokens. It performs no I/O and reads time only through the
// clock handed to NewManager.
package jwt
