package service

import (
	"context"

	"github.com/agentpilot/web/internal/pkg/pubsub"
	"github.com/agentpilot/web/internal/pkg/ws"
)

// PublishNotifier fans balance changes out through Redis so every instance can push them
type PublishNotifier struct {
	pub *pubsub.Publisher
}

// NewPublishNotifier fans balance changes out to every instance through Redis
func NewPublishNotifier(pub *pubsub.Publisher) *PublishNotifier {
	return &PublishNotifier{pub: pub}
}

func (n *PublishNotifier) NotifyBalance(ctx context.Context, msg *pubsub.BalanceMessage) error {
	return n.pub.PublishBalance(ctx, msg)
}

// HubNotifier pushes straight to local sockets, used when Redis is disabled
type HubNotifier struct {
	hub *ws.Hub
}

// NewHubNotifier pushes straight to sockets on this instance
func NewHubNotifier(hub *ws.Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyBalance(_ context.Context, msg *pubsub.BalanceMessage) error {
	return PushBalance(n.hub, msg)
}

// PushBalance delivers one balance message to the user's open sockets
func PushBalance(hub *ws.Hub, msg *pubsub.BalanceMessage) error {
	if !hub.IsOnline(msg.UserID) {
		return nil
	}
	msg.Type = pubsub.TypeBalanceUpdated
	return hub.SendToUser(msg.UserID, &ws.Message{Type: pubsub.TypeBalanceUpdated, Data: msg})
}
