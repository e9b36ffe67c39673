// Package connection maintains the Kalshi WebSocket feed used by the ticker
// tap.
//
// A Client wraps one gorilla/websocket connection with ping keepalive and
// stale detection. A Stream owns a Client, subscribes to its channels,
// forwards data messages, and reconnects with exponential backoff when the
// connection drops.
package connection
