// Package backend defines the contract shared by execution backends (the
// local process executor and the remote provider client), the typed error
// taxonomy they report failures with, and a registry of named backends.
package backend
