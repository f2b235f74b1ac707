// Package protocol defines the framed message types exchanged over the
// realtime channel. Every frame is a JSON object carrying a "type" tag;
// inbound and outbound shapes are separate structs because the call
// messages flip their addressing field (to on the way in, from on the
// way out).
package protocol

import (
	"encoding/json"
	"time"

	"github.com/pion/webrtc/v4"
)

// Inbound message types.
const (
	MsgJoinRoom    = "join-room"
	MsgLeaveRoom   = "leave-room"
	MsgVideoAction = "video-action"
	MsgChangeVideo = "change-video"
	MsgTyping      = "typing"
	MsgStopTyping  = "stopTyping"
	MsgSendMessage = "send-message"
	MsgCallOffer   = "call-offer"
	MsgCallAnswer  = "call-answer"
	MsgCallICE     = "call-ice-candidate"
	MsgCallDecline = "call-decline"
	MsgCallHangup  = "call-hangup"
)

// Outbound message types.
const (
	MsgCurrentVideo      = "current-video"
	MsgUpdateVideo       = "update-video"
	MsgSyncVideo         = "sync-video"
	MsgUserTyping        = "userTyping"
	MsgUserStoppedTyping = "userStoppedTyping"
	MsgReceiveMessage    = "receive-message"
	MsgUserStatusChange  = "user-status-change"
)

// Video transport actions carried by video-action / sync-video.
const (
	ActionPlay       = "play"
	ActionPause      = "pause"
	ActionSeek       = "seek"
	ActionTimeupdate = "timeupdate"
)

// Envelope carries only the type tag; handlers re-unmarshal the full
// frame into the concrete payload.
type Envelope struct {
	Type string `json:"type"`
}

// --- inbound payloads ---

type JoinRoomIn struct {
	RoomID string `json:"roomId"`
}

type LeaveRoomIn struct {
	RoomID string `json:"roomId"`
}

type VideoActionIn struct {
	RoomID      string  `json:"roomId"`
	Action      string  `json:"action"`
	CurrentTime float64 `json:"currentTime"`
}

type ChangeVideoIn struct {
	RoomID  string `json:"roomId"`
	VideoID string `json:"videoId"`
}

type TypingIn struct {
	RoomID string `json:"roomId"`
}

type SendMessageIn struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

type CallOfferIn struct {
	To     string                    `json:"to"`
	Offer  webrtc.SessionDescription `json:"offer"`
	RoomID string                    `json:"roomId"`
}

type CallAnswerIn struct {
	To     string                    `json:"to"`
	Answer webrtc.SessionDescription `json:"answer"`
}

type CallICEIn struct {
	To        string                  `json:"to"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

type CallPeerIn struct {
	To string `json:"to"`
}

// --- outbound payloads (Type self-tagged so they marshal as one frame) ---

type CurrentVideoOut struct {
	Type    string `json:"type"`
	VideoID string `json:"videoId"`
}

type UpdateVideoOut struct {
	Type     string `json:"type"`
	VideoID  string `json:"videoId"`
	SenderID string `json:"senderId"`
}

type SyncVideoOut struct {
	Type        string  `json:"type"`
	Action      string  `json:"action"`
	CurrentTime float64 `json:"currentTime"`
	SenderID    string  `json:"senderId"`
}

type TypingOut struct {
	Type     string `json:"type"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type Sender struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type ReceiveMessageOut struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	Message   string    `json:"message"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

type CallOfferOut struct {
	Type   string                    `json:"type"`
	From   string                    `json:"from"`
	Offer  webrtc.SessionDescription `json:"offer"`
	RoomID string                    `json:"roomId"`
}

type CallAnswerOut struct {
	Type   string                    `json:"type"`
	From   string                    `json:"from"`
	Answer webrtc.SessionDescription `json:"answer"`
}

type CallICEOut struct {
	Type      string                  `json:"type"`
	From      string                  `json:"from"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

type CallPeerOut struct {
	Type string `json:"type"`
	From string `json:"from"`
}

type UserStatusChangeOut struct {
	Type     string     `json:"type"`
	UserID   string     `json:"userId"`
	Status   string     `json:"status"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

// Encode marshals a self-tagged outbound payload.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}
