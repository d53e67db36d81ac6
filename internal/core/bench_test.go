package core

import (
	"context"
	"fmt"
	"testing"
)

func benchmarkMessageRelay(b *testing.B, recipients int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, nil)
	go hub.Run(ctx)

	sender := NewClient("sender")
	hub.RegisterClient(sender)
	hub.Dispatch(&Command{Kind: CommandSetup, Client: sender, UserID: "sender"})
	hub.Dispatch(&Command{Kind: CommandJoinChat, Client: sender, Room: "bench"})

	clients := make([]*Client, 0, recipients)
	for i := 0; i < recipients; i++ {
		c := NewClient(fmt.Sprintf("conn-%d", i))
		hub.RegisterClient(c)
		hub.Dispatch(&Command{Kind: CommandJoinChat, Client: c, Room: "bench"})
		clients = append(clients, c)
	}

	// Drain events for all but the first recipient to avoid channel backpressure.
	target := clients[0]
	for _, c := range clients[1:] {
		go func(cl *Client) {
			for range cl.Events {
			}
		}(c)
	}
	go func() {
		for range sender.Events {
		}
	}()

	msg := &ChatMessage{SenderID: "sender", ChatID: "bench", Content: "payload", Kind: "text"}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		hub.Dispatch(&Command{Kind: CommandSendMessage, Client: sender, Room: "bench", Message: msg})
		for {
			if ev := <-target.Events; ev.Kind == EventNewMessage {
				break
			}
		}
	}
}

func BenchmarkMessageRelay_10(b *testing.B)  { benchmarkMessageRelay(b, 10) }
func BenchmarkMessageRelay_100(b *testing.B) { benchmarkMessageRelay(b, 100) }
func BenchmarkMessageRelay_500(b *testing.B) { benchmarkMessageRelay(b, 500) }
