// Package flows runs the steps of each Engine operation: login, refresh
// rotation, logout, access validation and account creation.
//
// Every flow takes a dependency struct of plain functions and returns a
// result holding a failure kind rather than a public error. The engine turns
// kinds into its sentinel errors, metrics and audit events, so this package
// never imports authcore and holds no state between calls. Flows must not log
// refresh tokens, fingerprints or passwords.
package flows
