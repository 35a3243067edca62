package protocol

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/phillmac/orbit-core/internal/orbit"
)

// Service interface for session operations (Dependency Inversion)
type Service interface {
	Connect(ctx context.Context, name string) (ConnectResponse, error)
	Disconnect(ctx context.Context) error
	Status() StatusResponse
	Join(ctx context.Context, channel string, writers []string) error
	Leave(ctx context.Context, channel string) error
	Channels() []string
	SendText(ctx context.Context, channel, content string) (string, error)
	AddBuffer(ctx context.Context, channel, name string, data []byte, meta map[string]string) (string, error)
	AddPath(ctx context.Context, channel, path string, meta map[string]string) (string, error)
	GetContent(ctx context.Context, address string) ([]byte, error)
	ListDirectory(ctx context.Context, address string) ([]DirEntryInfo, error)
	Peers(ctx context.Context) (map[string]string, error)
}

// Handler routes and processes protocol messages
type Handler struct {
	service   Service
	nextReqID int
	mu        sync.Mutex
}

// NewHandler creates a new protocol handler
func NewHandler(svc Service) *Handler {
	return &Handler{service: svc}
}

// HandleClientMessage processes messages from the client
func (h *Handler) HandleClientMessage(ctx context.Context, msg *Message) (*Message, error) {
	switch msg.Method {
	case "connect":
		return h.handleConnect(ctx, msg)
	case "disconnect":
		return h.handleDisconnect(ctx, msg)
	case "status":
		return h.handleStatus(msg)
	case "join":
		return h.handleJoin(ctx, msg)
	case "leave":
		return h.handleLeave(ctx, msg)
	case "channels":
		return h.handleChannels(msg)
	case "send":
		return h.handleSend(ctx, msg)
	case "addfile":
		return h.handleAddFile(ctx, msg)
	case "getcontent":
		return h.handleGetContent(ctx, msg)
	case "lsdir":
		return h.handleListDir(ctx, msg)
	case "peers":
		return h.handlePeers(ctx, msg)
	default:
		return h.errorResponse(msg.RequestID, 400, fmt.Sprintf("unknown method: %s", msg.Method))
	}
}

// Client request handlers

func (h *Handler) handleConnect(ctx context.Context, msg *Message) (*Message, error) {
	var req ConnectRequest
	if msg.Params != nil {
		if err := json.Unmarshal(msg.Params, &req); err != nil {
			return h.errorResponse(msg.RequestID, 400, "invalid params")
		}
	}

	resp, err := h.service.Connect(ctx, req.Name)
	if err != nil {
		return h.serviceError(msg.RequestID, err)
	}
	return h.resultResponse(msg.RequestID, resp)
}

func (h *Handler) handleDisconnect(ctx context.Context, msg *Message) (*Message, error) {
	if err := h.service.Disconnect(ctx); err != nil {
		return h.serviceError(msg.RequestID, err)
	}
	return h.emptyResponse(msg.RequestID)
}

func (h *Handler) handleStatus(msg *Message) (*Message, error) {
	return h.resultResponse(msg.RequestID, h.service.Status())
}

func (h *Handler) handleJoin(ctx context.Context, msg *Message) (*Message, error) {
	var req JoinRequest
	if err := json.Unmarshal(msg.Params, &req); err != nil {
		return h.errorResponse(msg.RequestID, 400, "invalid params")
	}

	if err := h.service.Join(ctx, req.Channel, req.Writers); err != nil {
		return h.serviceError(msg.RequestID, err)
	}
	return h.emptyResponse(msg.RequestID)
}

func (h *Handler) handleLeave(ctx context.Context, msg *Message) (*Message, error) {
	var req LeaveRequest
	if err := json.Unmarshal(msg.Params, &req); err != nil {
		return h.errorResponse(msg.RequestID, 400, "invalid params")
	}

	if err := h.service.Leave(ctx, req.Channel); err != nil {
		return h.serviceError(msg.RequestID, err)
	}
	return h.emptyResponse(msg.RequestID)
}

func (h *Handler) handleChannels(msg *Message) (*Message, error) {
	channels := h.service.Channels()
	if channels == nil {
		channels = []string{}
	}
	return h.resultResponse(msg.RequestID, ChannelsResponse{Channels: channels})
}

func (h *Handler) handleSend(ctx context.Context, msg *Message) (*Message, error) {
	var req SendRequest
	if err := json.Unmarshal(msg.Params, &req); err != nil {
		return h.errorResponse(msg.RequestID, 400, "invalid params")
	}

	entry, err := h.service.SendText(ctx, req.Channel, req.Content)
	if err != nil {
		return h.serviceError(msg.RequestID, err)
	}
	return h.resultResponse(msg.RequestID, EntryResponse{Entry: entry})
}

func (h *Handler) handleAddFile(ctx context.Context, msg *Message) (*Message, error) {
	var req AddFileRequest
	if err := json.Unmarshal(msg.Params, &req); err != nil {
		return h.errorResponse(msg.RequestID, 400, "invalid params")
	}

	var entry string
	var err error
	if req.Content != "" {
		var data []byte
		data, err = base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			return h.errorResponse(msg.RequestID, 400, "invalid base64 content")
		}
		entry, err = h.service.AddBuffer(ctx, req.Channel, req.Name, data, req.Meta)
	} else {
		entry, err = h.service.AddPath(ctx, req.Channel, req.Path, req.Meta)
	}
	if err != nil {
		return h.serviceError(msg.RequestID, err)
	}
	return h.resultResponse(msg.RequestID, EntryResponse{Entry: entry})
}

func (h *Handler) handleGetContent(ctx context.Context, msg *Message) (*Message, error) {
	var req GetContentRequest
	if err := json.Unmarshal(msg.Params, &req); err != nil {
		return h.errorResponse(msg.RequestID, 400, "invalid params")
	}

	content, err := h.service.GetContent(ctx, req.Address)
	if err != nil {
		return h.serviceError(msg.RequestID, err)
	}
	encoded := base64.StdEncoding.EncodeToString(content)
	return h.resultResponse(msg.RequestID, GetContentResponse{Content: encoded})
}

func (h *Handler) handleListDir(ctx context.Context, msg *Message) (*Message, error) {
	var req ListDirRequest
	if err := json.Unmarshal(msg.Params, &req); err != nil {
		return h.errorResponse(msg.RequestID, 400, "invalid params")
	}

	entries, err := h.service.ListDirectory(ctx, req.Address)
	if err != nil {
		return h.serviceError(msg.RequestID, err)
	}
	if entries == nil {
		entries = []DirEntryInfo{}
	}
	return h.resultResponse(msg.RequestID, ListDirResponse{Entries: entries})
}

func (h *Handler) handlePeers(ctx context.Context, msg *Message) (*Message, error) {
	peers, err := h.service.Peers(ctx)
	if err != nil {
		return h.serviceError(msg.RequestID, err)
	}
	if peers == nil {
		peers = map[string]string{}
	}
	return h.resultResponse(msg.RequestID, PeersResponse{Peers: peers})
}

// Server notification senders (to be called by the event pump)

func (h *Handler) NextRequestID() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextReqID
	h.nextReqID++
	return id
}

func (h *Handler) notification(method string, payload any) *Message {
	params, _ := json.Marshal(payload)
	return &Message{
		RequestID: h.NextRequestID(),
		Method:    method,
		Params:    params,
	}
}

func (h *Handler) CreateConnectedMessage(profile ProfileInfo) *Message {
	return h.notification("connected", ConnectedNotification{Profile: profile})
}

func (h *Handler) CreateDisconnectedMessage(name string) *Message {
	return h.notification("disconnected", UserNotification{Name: name})
}

func (h *Handler) CreateJoinedMessage(channel string) *Message {
	return h.notification("joined", ChannelNotification{Channel: channel})
}

func (h *Handler) CreateLeftMessage(channel string) *Message {
	return h.notification("left", ChannelNotification{Channel: channel})
}

func (h *Handler) CreatePeersMessage(peers []string) *Message {
	if peers == nil {
		peers = []string{}
	}
	return h.notification("peers", PeersNotification{Peers: peers})
}

// Response helpers

func (h *Handler) emptyResponse(requestID int) (*Message, error) {
	return &Message{
		RequestID:  requestID,
		IsResponse: true,
		Result:     json.RawMessage("null"),
	}, nil
}

func (h *Handler) resultResponse(requestID int, payload any) (*Message, error) {
	result, _ := json.Marshal(payload)
	return &Message{
		RequestID:  requestID,
		IsResponse: true,
		Result:     result,
	}, nil
}

func (h *Handler) errorResponse(requestID, code int, message string) (*Message, error) {
	return &Message{
		RequestID:  requestID,
		IsResponse: true,
		Error: &ErrorResponse{
			Code:    code,
			Message: message,
		},
	}, nil
}

// serviceError maps session errors onto wire error codes
func (h *Handler) serviceError(requestID int, err error) (*Message, error) {
	code := 500
	switch {
	case errors.Is(err, orbit.ErrInvalidArgument):
		code = 400
	case errors.Is(err, orbit.ErrAlreadyConnected),
		errors.Is(err, orbit.ErrAlreadyConnecting),
		errors.Is(err, orbit.ErrNotConnected),
		errors.Is(err, orbit.ErrChannelNotJoined):
		code = 409
	}
	return h.errorResponse(requestID, code, err.Error())
}
