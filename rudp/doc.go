// Package rudp implements a reliable UDP transport: sliding-window
// send/receive, NAK-driven retransmission, AIMD congestion control, and an
// archival tap that lets late joiners replay history instead of losing it
// to retransmit-buffer eviction.
package rudp
