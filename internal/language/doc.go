// Package language holds the static table of supported languages and the
// execution profile attached to each: how to compile it, how to run it, and
// how long each phase may take.
package language
