// Package link implements the device side of the digest link protocol.
package link

// The link is a half-duplex, line oriented exchange over an unreliable
// peer-to-peer channel (e.g. a UART). The device sends one message line
//
//	A, B, UTC:<ts>,TEMP:<sign><t.ttt>degC,HUM:<h.hh>%, <hex digest>, <hex digest>
//
// and waits for the peer to reply with one of the acknowledgement tokens
// A,B,OK, A,B,FAIL or A,B,SYNC (case-insensitive). Silence for the whole
// await period counts as A,B,FAIL.
//
// There's no sequence number or checksum: the digests carried by each
// message let the peer detect gaps, and A,B,SYNC asks the device to start
// a new chain.
//
// Producer: device
// Consumer: peer
