package http

import (
	"encoding/json"

	"github.com/ovasiliev/converse-server/internal/core"
	"github.com/ovasiliev/converse-server/internal/proto"
)

// inboundToCommand validates an inbound socket event and maps it to a core
// command. A malformed payload yields a protocol error for the sender only;
// it never propagates past this boundary.
func inboundToCommand(client *core.Client, inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeSetup:
		var setup proto.SetupData
		if err := json.Unmarshal(inbound.Data, &setup); err != nil {
			return nil, nil, err
		}
		if setup.ID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "user id is required"}, nil
		}
		return &core.Command{
			Kind:   core.CommandSetup,
			Client: client,
			UserID: setup.ID,
			Name:   setup.Name,
		}, nil, nil

	case proto.InboundTypeGetOnlineUsers:
		return &core.Command{Kind: core.CommandGetOnlineUsers, Client: client}, nil, nil

	case proto.InboundTypeJoinChat, proto.InboundTypeLeaveChat:
		var chatID string
		if err := json.Unmarshal(inbound.Data, &chatID); err != nil {
			return nil, nil, err
		}
		if chatID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "chat id is required"}, nil
		}
		kind := core.CommandJoinChat
		if inbound.Type == proto.InboundTypeLeaveChat {
			kind = core.CommandLeaveChat
		}
		return &core.Command{Kind: kind, Client: client, Room: chatID}, nil, nil

	case proto.InboundTypeChatCreated:
		var chat proto.ChatCreatedData
		if err := json.Unmarshal(inbound.Data, &chat); err != nil {
			return nil, nil, err
		}
		if chat.ID == "" || len(chat.Users) == 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "chat id and users are required"}, nil
		}
		members := make([]string, 0, len(chat.Users))
		for _, u := range chat.Users {
			members = append(members, u.ID)
		}
		return &core.Command{
			Kind:    core.CommandChatCreated,
			Client:  client,
			Room:    chat.ID,
			Members: members,
			Payload: inbound.Data,
		}, nil, nil

	case proto.InboundTypeSendMessage:
		var msg proto.SendMessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, nil, err
		}
		if msg.Chat.ID == "" || msg.Sender.ID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "chat and sender are required"}, nil
		}
		kind := msg.MessageType
		if kind == "" {
			kind = "text"
		}
		var file *core.FileRef
		if msg.File != nil {
			file = &core.FileRef{
				Name:        msg.File.Name,
				MimeType:    msg.File.MimeType,
				ViewURL:     msg.File.ViewURL,
				DownloadURL: msg.File.DownloadURL,
			}
		}
		return &core.Command{
			Kind:   core.CommandSendMessage,
			Client: client,
			Room:   msg.Chat.ID,
			Message: &core.ChatMessage{
				SenderID: msg.Sender.ID,
				ChatID:   msg.Chat.ID,
				Content:  msg.Content,
				Kind:     kind,
				File:     file,
			},
		}, nil, nil

	case proto.InboundTypeTyping, proto.InboundTypeStopTyping:
		var typing proto.TypingData
		if err := json.Unmarshal(inbound.Data, &typing); err != nil {
			return nil, nil, err
		}
		if typing.ChatID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "chat id is required"}, nil
		}
		kind := core.CommandTyping
		if inbound.Type == proto.InboundTypeStopTyping {
			kind = core.CommandStopTyping
		}
		return &core.Command{Kind: kind, Client: client, Room: typing.ChatID, From: typing.From}, nil, nil

	case proto.InboundTypeJoinVideoRoom:
		var join proto.VideoJoinData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, nil, err
		}
		if join.RoomID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room id is required"}, nil
		}
		return &core.Command{
			Kind:   core.CommandJoinVideoRoom,
			Client: client,
			Room:   join.RoomID,
			User:   join.User,
		}, nil, nil

	case proto.InboundTypeLeaveVideoRoom:
		var leave proto.VideoLeaveData
		if err := json.Unmarshal(inbound.Data, &leave); err != nil {
			return nil, nil, err
		}
		if leave.RoomID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room id is required"}, nil
		}
		return &core.Command{Kind: core.CommandLeaveVideoRoom, Client: client, Room: leave.RoomID}, nil, nil

	case proto.InboundTypeOffer, proto.InboundTypeAnswer, proto.InboundTypeICECandidate:
		var signal proto.SignalData
		if err := json.Unmarshal(inbound.Data, &signal); err != nil {
			return nil, nil, err
		}
		if signal.To == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "target connection is required"}, nil
		}
		var kind core.CommandKind
		payload := signal.SDP
		switch inbound.Type {
		case proto.InboundTypeOffer:
			kind = core.CommandOffer
		case proto.InboundTypeAnswer:
			kind = core.CommandAnswer
		default:
			kind = core.CommandICECandidate
			payload = signal.Candidate
		}
		return &core.Command{Kind: kind, Client: client, Target: signal.To, Payload: payload}, nil, nil

	case proto.InboundTypeGetDocument:
		var docID string
		if err := json.Unmarshal(inbound.Data, &docID); err != nil {
			return nil, nil, err
		}
		if docID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "document id is required"}, nil
		}
		return &core.Command{Kind: core.CommandGetDocument, Client: client, Room: docID}, nil, nil

	case proto.InboundTypeSendChanges:
		// The delta is opaque; the connection's current document room applies.
		return &core.Command{Kind: core.CommandSendChanges, Client: client, Payload: inbound.Data}, nil, nil

	case proto.InboundTypeSaveDocument:
		return &core.Command{Kind: core.CommandSaveDocument, Client: client, Payload: inbound.Data}, nil, nil

	case proto.InboundTypeLeaveDocument:
		return &core.Command{Kind: core.CommandLeaveDocument, Client: client}, nil, nil

	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventConnected:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventConnected}
	case core.EventOnlineUsers:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventOnlineUsers, Data: event.Users}
	case core.EventChatCreated:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventChatCreated, Data: event.Payload}
	case core.EventNewMessage:
		var file *proto.FilePayload
		if event.Message.File != nil {
			file = &proto.FilePayload{
				Name:        event.Message.File.Name,
				MimeType:    event.Message.File.MimeType,
				ViewURL:     event.Message.File.ViewURL,
				DownloadURL: event.Message.File.DownloadURL,
			}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNewMessage,
			Data: proto.NewMessageData{
				Sender:      event.Message.SenderID,
				Chat:        event.Message.ChatID,
				Content:     event.Message.Content,
				MessageType: event.Message.Kind,
				File:        file,
			},
		}
	case core.EventTyping:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventTyping, Data: proto.TypingEvent{From: event.From}}
	case core.EventStopTyping:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventStopTyping, Data: proto.TypingEvent{From: event.From}}
	case core.EventVideoUserJoined:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserJoined,
			Data:  proto.UserJoinedEvent{SocketID: event.From, User: event.User},
		}
	case core.EventVideoUserLeft:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserLeft,
			Data:  proto.UserLeftEvent{SocketID: event.From},
		}
	case core.EventOffer:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventOffer,
			Data:  proto.SignalData{SDP: event.Payload, From: event.From},
		}
	case core.EventAnswer:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventAnswer,
			Data:  proto.SignalData{SDP: event.Payload, From: event.From},
		}
	case core.EventICECandidate:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventICECandidate,
			Data:  proto.SignalData{Candidate: event.Payload, From: event.From},
		}
	case core.EventLoadDocument:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventLoadDocument, Data: event.Payload}
	case core.EventReceiveChanges:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventReceiveChanges, Data: event.Payload}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
