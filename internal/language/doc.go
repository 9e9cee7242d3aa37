// Package language maps user-supplied language hints to canonical ISO 639-1
// codes and English display names.
//
// The speech configuration accepts free-form hints ("en", "eng", "English",
// "en-US"). Recognized forms are canonicalized so queue records and prompt
// text stay consistent; unrecognized hints pass through untouched because
// the hosted speech service understands more languages than this table
// lists.
package language
