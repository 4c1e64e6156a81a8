// Package sanitizer cleans guest contact data and identifier lists before
// they are validated or sent to a remote service. Every function is
// idempotent and returns an empty value for input it cannot use.
package sanitizer
