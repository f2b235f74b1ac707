package hub

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/dkeye/Lounge/internal/protocol"
)

// onFrame decodes the envelope and routes to a per-type handler. Malformed
// or unknown frames are logged and dropped; the connection stays open.
func (h *Hub) onFrame(id core.ConnID, data []byte) {
	rec, ok := h.directory.Record(id)
	if !ok {
		log.Warn().Str("module", "hub").Str("conn", string(id)).Msg("frame from unknown connection")
		return
	}

	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "hub").Str("conn", string(id)).Msg("bad json")
		return
	}
	eventsTotal.WithLabelValues(env.Type).Inc()

	switch env.Type {
	case protocol.MsgJoinRoom:
		h.handleJoinRoom(rec, data)
	case protocol.MsgLeaveRoom:
		h.handleLeaveRoom(rec, data)
	case protocol.MsgVideoAction:
		h.handleVideoAction(rec, data)
	case protocol.MsgChangeVideo:
		h.handleChangeVideo(rec, data)
	case protocol.MsgTyping:
		h.handleTyping(rec, data, protocol.MsgUserTyping)
	case protocol.MsgStopTyping:
		h.handleTyping(rec, data, protocol.MsgUserStoppedTyping)
	case protocol.MsgSendMessage:
		h.handleSendMessage(rec, data)
	case protocol.MsgCallOffer:
		h.handleCallOffer(rec, data)
	case protocol.MsgCallAnswer:
		h.handleCallAnswer(rec, data)
	case protocol.MsgCallICE:
		h.handleCallICE(rec, data)
	case protocol.MsgCallDecline:
		h.handleCallDecline(rec, data)
	case protocol.MsgCallHangup:
		h.handleCallHangup(rec, data)
	default:
		log.Warn().Str("module", "hub").Str("type", env.Type).Msg("unknown message type")
	}
}

func (h *Hub) handleJoinRoom(rec *core.ConnectionRecord, data []byte) {
	var p protocol.JoinRoomIn
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "hub").Msg("bad join-room payload")
		return
	}
	room := h.rooms.Join(rec, domain.RoomID(p.RoomID))
	// Catch-up: a late joiner sees what is playing now, not history.
	if media := room.Media(); media != "" {
		h.sendTo(rec, protocol.CurrentVideoOut{Type: protocol.MsgCurrentVideo, VideoID: media})
	}
}

func (h *Hub) handleLeaveRoom(rec *core.ConnectionRecord, data []byte) {
	var p protocol.LeaveRoomIn
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "hub").Msg("bad leave-room payload")
		return
	}
	h.rooms.Leave(rec.ID, domain.RoomID(p.RoomID))
}

func (h *Hub) handleVideoAction(rec *core.ConnectionRecord, data []byte) {
	var p protocol.VideoActionIn
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "hub").Msg("bad video-action payload")
		return
	}
	switch p.Action {
	case protocol.ActionPlay, protocol.ActionPause, protocol.ActionSeek, protocol.ActionTimeupdate:
	default:
		log.Warn().Str("module", "hub").Str("action", p.Action).Msg("unknown video action")
		return
	}
	// Echoed back to the sender too; clients filter on senderId.
	h.publish(domain.RoomID(p.RoomID), protocol.SyncVideoOut{
		Type:        protocol.MsgSyncVideo,
		Action:      p.Action,
		CurrentTime: p.CurrentTime,
		SenderID:    string(rec.ID),
	}, "")
}

func (h *Hub) handleChangeVideo(rec *core.ConnectionRecord, data []byte) {
	var p protocol.ChangeVideoIn
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" || p.VideoID == "" {
		log.Error().Err(err).Str("module", "hub").Msg("bad change-video payload")
		return
	}
	h.rooms.SetMedia(domain.RoomID(p.RoomID), p.VideoID)
	h.publish(domain.RoomID(p.RoomID), protocol.UpdateVideoOut{
		Type:     protocol.MsgUpdateVideo,
		VideoID:  p.VideoID,
		SenderID: string(rec.ID),
	}, rec.ID)
}

func (h *Hub) handleTyping(rec *core.ConnectionRecord, data []byte, outType string) {
	var p protocol.TypingIn
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "hub").Msg("bad typing payload")
		return
	}
	h.publish(domain.RoomID(p.RoomID), protocol.TypingOut{
		Type:     outType,
		UserID:   string(rec.User.ID),
		Username: rec.User.Username,
	}, rec.ID)
}

func (h *Hub) handleSendMessage(rec *core.ConnectionRecord, data []byte) {
	var p protocol.SendMessageIn
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" || p.Message == "" {
		log.Error().Err(err).Str("module", "hub").Msg("bad send-message payload")
		return
	}
	// Sender identity and timestamp are server-stamped; the hub relays
	// live only and never stores the content.
	h.publish(domain.RoomID(p.RoomID), protocol.ReceiveMessageOut{
		Type:    protocol.MsgReceiveMessage,
		ID:      ulid.Make().String(),
		RoomID:  p.RoomID,
		Message: p.Message,
		Sender: protocol.Sender{
			ID:       string(rec.User.ID),
			Username: rec.User.Username,
		},
		Timestamp: time.Now().UTC(),
	}, rec.ID)
}

func (h *Hub) handleCallOffer(rec *core.ConnectionRecord, data []byte) {
	var p protocol.CallOfferIn
	if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
		log.Error().Err(err).Str("module", "hub").Msg("bad call-offer payload")
		return
	}
	po := core.PendingOffer{
		From:   rec.User.ID,
		To:     domain.UserID(p.To),
		Offer:  p.Offer,
		RoomID: domain.RoomID(p.RoomID),
	}
	target, buffered := h.calls.Offer(po)
	if buffered {
		return
	}
	h.sendTo(target, protocol.CallOfferOut{
		Type:   protocol.MsgCallOffer,
		From:   string(po.From),
		Offer:  po.Offer,
		RoomID: string(po.RoomID),
	})
}

func (h *Hub) handleCallAnswer(rec *core.ConnectionRecord, data []byte) {
	var p protocol.CallAnswerIn
	if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
		log.Error().Err(err).Str("module", "hub").Msg("bad call-answer payload")
		return
	}
	target, ok := h.calls.Answer(rec.User.ID, domain.UserID(p.To))
	if !ok {
		log.Warn().Str("module", "hub").Str("to", p.To).Msg("call-answer target offline, dropped")
		return
	}
	h.sendTo(target, protocol.CallAnswerOut{
		Type:   protocol.MsgCallAnswer,
		From:   string(rec.User.ID),
		Answer: p.Answer,
	})
}

func (h *Hub) handleCallICE(rec *core.ConnectionRecord, data []byte) {
	var p protocol.CallICEIn
	if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
		log.Error().Err(err).Str("module", "hub").Msg("bad call-ice-candidate payload")
		return
	}
	target, ok := h.calls.Relay(domain.UserID(p.To))
	if !ok {
		return
	}
	h.sendTo(target, protocol.CallICEOut{
		Type:      protocol.MsgCallICE,
		From:      string(rec.User.ID),
		Candidate: p.Candidate,
	})
}

func (h *Hub) handleCallDecline(rec *core.ConnectionRecord, data []byte) {
	var p protocol.CallPeerIn
	if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
		log.Error().Err(err).Str("module", "hub").Msg("bad call-decline payload")
		return
	}
	target, ok := h.calls.Decline(rec.User.ID, domain.UserID(p.To))
	if !ok {
		log.Warn().Str("module", "hub").Str("to", p.To).Msg("call-decline target offline, dropped")
		return
	}
	from := string(rec.User.ID)
	h.sendTo(target, protocol.CallPeerOut{Type: protocol.MsgCallDecline, From: from})
	// A hangup is synthesized alongside every decline so both ends reach
	// the terminal state from a single message.
	h.sendTo(target, protocol.CallPeerOut{Type: protocol.MsgCallHangup, From: from})
}

func (h *Hub) handleCallHangup(rec *core.ConnectionRecord, data []byte) {
	var p protocol.CallPeerIn
	if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
		log.Error().Err(err).Str("module", "hub").Msg("bad call-hangup payload")
		return
	}
	target, ok := h.calls.Hangup(rec.User.ID, domain.UserID(p.To))
	if !ok {
		// The other side is already gone, which is itself teardown.
		return
	}
	h.sendTo(target, protocol.CallPeerOut{Type: protocol.MsgCallHangup, From: string(rec.User.ID)})
}
