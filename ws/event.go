// Package ws runs the admin live activity feed over WebSocket.
//
// A Hub keeps every connected admin client. Services publish through the
// Broadcaster interface after a change is committed, and each Client's write
// pump forwards the encoded event to its socket:
//
//	service -> Broadcaster.BroadcastToAll -> Hub -> Client.send -> WritePump
package ws

// Event is one message on the feed.
//
// Seq increases by one for every outbound event so a dashboard can notice a
// gap and reload.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// Client -> server
const (
	OpHeartbeat = "heartbeat" // sent every 30s by the dashboard
)

// Server -> client
const (
	OpReady        = "ready"
	OpHeartbeatAck = "heartbeat_ack"
	OpPresence     = "presence_update" // an admin connected or left

	OpSectionUpdate = "section_update"
	OpSectionDelete = "section_delete"

	OpArtworkCreate  = "artwork_create"
	OpArtworkUpdate  = "artwork_update"
	OpArtworkDelete  = "artwork_delete"
	OpArtworkReorder = "artwork_reorder"

	OpOrderCreate = "order_create"
	OpOrderUpdate = "order_update"

	OpPressCreate = "press_create"
	OpPressUpdate = "press_update"
	OpPressDelete = "press_delete"

	OpContactCreate = "contact_create"

	OpUserUpdate = "user_update"
	OpUserDelete = "user_delete"
)

// ReadyData is the payload of the first event a client receives.
type ReadyData struct {
	UserID        string   `json:"user_id"`
	OnlineUserIDs []string `json:"online_user_ids"`
}

// PresenceData announces an admin going online or offline.
type PresenceData struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}

// DeletedData is the payload of every *_delete event.
type DeletedData struct {
	ID string `json:"id"`
}
