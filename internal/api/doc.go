// Package api implements the HTTP REST API and WebSocket server for jughead.
//
// This package provides:
//   - REST endpoints to list balls, bind addresses and send colours
//   - Command history and palette lookups
//   - A WebSocket hub relaying every registry event in real time, with
//     snapshot and send_color requests
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Status Codes
//
// POST /api/v1/balls/{id}/color waits for the dispatch result and maps it:
//
//	200  colour sent
//	400  invalid colour or ball id
//	409  no address bound
//	503  dispatcher shutting down
//	504  send timed out
//	502  any other transport failure
//
// Every error body carries the human-readable sentence in "message".
package api
