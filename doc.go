// Package sentra is a video management core for RTSP camera fleets.
//
// # Overview
//
// Sentra supervises RTSP cameras, publishes live HLS streams, records to
// disk with retention, and runs automatic number plate recognition over
// sampled frames. Camera metadata, recordings, plate reads and users live
// in CouchDB; state changes fan out over an in-process event bus to
// WebSocket clients and an optional MQTT uplink.
//
// The system consists of three main components:
//   - API Server: REST API and WebSocket event stream
//   - Supervisor fabric: one long-lived worker per camera owning its
//     ffmpeg pipelines, recording state and plate recognition
//   - Storage Layer: CouchDB-backed metadata store with JSON-LD
//
// # Architecture
//
//	┌─────────────────┐
//	│  API Server     │◄──── WebSocket / REST clients
//	│  (Echo REST)    │
//	└────────┬────────┘
//	         │ commands              events
//	┌────────▼────────┐       ┌─────────────────┐
//	│  Supervisors    │──────►│  Event Bus      │
//	│  (ffmpeg, ANPR) │       │  (fan-out)      │
//	└────────┬────────┘       └─────────────────┘
//	         │
//	┌────────▼────────┐
//	│  Storage Layer  │
//	│  (EVE/CouchDB)  │
//	└─────────────────┘
//
// # Technology Stack
//
//   - Go 1.25+
//   - Echo v4 (Web framework)
//   - CouchDB 3.3+ (Database)
//   - EVE library (CouchDB client)
//   - ffmpeg (Stream transcoding)
//   - Eclipse Paho (MQTT uplink)
//   - MinIO (Snapshot archive)
package sentra
