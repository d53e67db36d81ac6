package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ovasiliev/converse-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	userID := flag.String("user", "smoke-user", "user id to announce with setup")
	name := flag.String("name", "Smoke Tester", "display name")
	chat := flag.String("chat", "chat-1", "chat room id to join")
	text := flag.String("text", "hello from smoke test", "message text to relay")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(msgType string, payload any) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", msgType, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: msgType, Data: data}); err != nil {
			return fmt.Errorf("send %s: %w", msgType, err)
		}
		return nil
	}

	if err := send(proto.InboundTypeSetup, proto.SetupData{ID: *userID, Name: *name}); err != nil {
		return err
	}
	if err := send(proto.InboundTypeJoinChat, *chat); err != nil {
		return err
	}
	if err := send(proto.InboundTypeSendMessage, proto.SendMessageData{
		Content:     *text,
		Sender:      proto.UserRef{ID: *userID, Name: *name},
		MessageType: "text",
		Chat:        proto.ChatRef{ID: *chat},
	}); err != nil {
		return err
	}
	if err := send(proto.InboundTypeGetOnlineUsers, struct{}{}); err != nil {
		return err
	}

	for {
		var outbound proto.Outbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("received: type=%s", outbound.Type)
		if outbound.Event != "" {
			fmt.Printf(" event=%s", outbound.Event)
		}
		fmt.Println()

		if outbound.Error != nil {
			fmt.Printf("error: %s (%s)\n", outbound.Error.Msg, outbound.Error.Code)
			continue
		}

		raw, err := json.Marshal(outbound.Data)
		if err != nil {
			return fmt.Errorf("marshal outbound data: %w", err)
		}

		switch outbound.Event {
		case proto.EventConnected:
			fmt.Println("setup acknowledged")
		case proto.EventOnlineUsers:
			var users []string
			if err := json.Unmarshal(raw, &users); err == nil {
				fmt.Printf("online users: %v\n", users)
			}
			return nil
		case proto.EventNewMessage:
			var evt proto.NewMessageData
			if err := json.Unmarshal(raw, &evt); err == nil {
				fmt.Printf("message: chat=%s sender=%s text=%q\n", evt.Chat, evt.Sender, evt.Content)
			}
		default:
			fmt.Printf("raw data: %s\n", string(raw))
		}
	}
}
