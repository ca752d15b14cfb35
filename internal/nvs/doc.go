// Package nvs provides the non-volatile key-value backends used by the
// credential store.
//
// Values are addressed by (namespace, key). Two kinds are stored: single
// byte flags and byte strings. SQLite is the on-device backend; Memory backs
// tests and bench runs; Sealed encrypts string values of any backend at rest.
package nvs
