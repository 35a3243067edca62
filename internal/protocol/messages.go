package protocol

import "encoding/json"

// Message envelope for all WebSocket communications
type Message struct {
	RequestID  int             `json:"requestid"`
	Method     string          `json:"method"`
	Params     json.RawMessage `json:"params,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      *ErrorResponse  `json:"error,omitempty"`
	IsResponse bool            `json:"isresponse"`
}

// ErrorResponse provides standardized error structure
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ProfileInfo mirrors the session user profile on the wire
type ProfileInfo struct {
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	Image    string `json:"image,omitempty"`
}

// DirEntryInfo describes one entry of a directory listing
type DirEntryInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Size    uint64 `json:"size"`
}

// Client Request Messages

// ConnectRequest brings the session online. Name optionally overrides the
// configured profile name for this session.
type ConnectRequest struct {
	Name string `json:"name,omitempty"`
}

// JoinRequest joins a named channel. Writers optionally restricts who may
// append; empty means the configured default policy.
type JoinRequest struct {
	Channel string   `json:"channel"`
	Writers []string `json:"writers,omitempty"`
}

// LeaveRequest leaves a previously joined channel
type LeaveRequest struct {
	Channel string `json:"channel"`
}

// SendRequest appends a text post to a channel
type SendRequest struct {
	Channel string `json:"channel"`
	Content string `json:"content"`
}

// AddFileRequest shares content into a channel. Content carries base64
// bytes with Name as the filename; when Content is empty, Path names a
// file or directory on the daemon host to add instead. Meta is merged into
// the resulting post's metadata.
type AddFileRequest struct {
	Channel string            `json:"channel"`
	Path    string            `json:"path,omitempty"`
	Name    string            `json:"name,omitempty"`
	Content string            `json:"content,omitempty"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// GetContentRequest fetches previously shared content by address
type GetContentRequest struct {
	Address string `json:"address"`
}

// ListDirRequest lists a shared directory by address
type ListDirRequest struct {
	Address string `json:"address"`
}

// Response Messages

// EmptyResponse is used for operations that return "null or error"
type EmptyResponse struct{}

// ConnectResponse returns the session identity after connecting
type ConnectResponse struct {
	ID        string      `json:"id"`
	PublicKey string      `json:"publickey"`
	Profile   ProfileInfo `json:"profile"`
}

// StatusResponse reports the session state
type StatusResponse struct {
	Online   bool        `json:"online"`
	ID       string      `json:"id,omitempty"`
	Profile  ProfileInfo `json:"profile"`
	Channels []string    `json:"channels"`
}

// EntryResponse returns the log entry ID assigned to an appended post
type EntryResponse struct {
	Entry string `json:"entry"`
}

// ChannelsResponse returns the currently joined channel names
type ChannelsResponse struct {
	Channels []string `json:"channels"`
}

// GetContentResponse returns base64 encoded content bytes
type GetContentResponse struct {
	Content string `json:"content"`
}

// ListDirResponse returns a directory listing
type ListDirResponse struct {
	Entries []DirEntryInfo `json:"entries"`
}

// PeersResponse returns connected peers keyed by peer ID; the value is the
// peer's address, or empty when unknown
type PeersResponse struct {
	Peers map[string]string `json:"peers"`
}

// Server Notification Messages (sent from server to client)

// ConnectedNotification announces that the session came online
type ConnectedNotification struct {
	Profile ProfileInfo `json:"profile"`
}

// UserNotification announces a session-level user event
type UserNotification struct {
	Name string `json:"name"`
}

// ChannelNotification announces a channel join or leave
type ChannelNotification struct {
	Channel string `json:"channel"`
}

// PeersNotification announces a refreshed peer set
type PeersNotification struct {
	Peers []string `json:"peers"`
}
