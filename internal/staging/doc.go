// Package staging maintains the per-item work directories kept under the
// configured staging root.
//
// The transcribing stage writes raw transcript payloads and probe metadata
// into one directory per queue item. Directories outlive their items when
// entries are cleared or removed, so the CLI exposes cleanup passes here:
// an orphan sweep that keeps every directory a live queue item still owns,
// and an age sweep that removes anything older than a cutoff.
package staging
