// ABOUTME: Monitor wire protocol package
// ABOUTME: Defines protocol messages and the WebSocket client
// Package protocol implements the lisa-odas monitor protocol.
//
// A client opens a WebSocket on /ws and sends client/hello naming the
// codec and the source slots it wants to hear. The server answers with
// server/hello describing the stream, then sends stream/tags,
// tracking/ssl and tracking/sst as JSON and audio as binary chunks.
//
// Example:
//
//	client := protocol.NewClient(protocol.Config{ServerAddr: "localhost:8927", Name: "desk", Slots: []int{0}})
//	if err := client.Connect(); err != nil {
//		log.Fatal(err)
//	}
//	for chunk := range client.AudioChunks {
//		...
//	}
package protocol
