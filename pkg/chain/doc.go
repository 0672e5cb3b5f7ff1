// Package chain keeps the short digest chain of sensor readings.
package chain

// Every reading is reduced to a SHA-256 digest of its canonical payload.
// The two most recent digests are retained in a RingBuffer and travel with
// each message, so the peer can tell whether the message it receives
// continues the chain it accepted last time.
//
// A fresh chain is rooted at the digest of SeedPayload.
