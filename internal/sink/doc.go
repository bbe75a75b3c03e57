// Package sink receives the per-point results of a scan.
//
// A Record is produced for every requested result at every point, carrying
// the label, the value, the point ID and whether the point was valid.
// Invalid points carry the floor value for likelihood results and the
// invalidation reason.
//
// Three implementations are provided: Memory keeps records for inspection
// and tests, Log writes them to the context logger, and SocketIO streams
// them to a socket.io server as they are produced.
package sink
