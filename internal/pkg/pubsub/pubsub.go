package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

const ChannelBalance = "credits_balance"

const TypeBalanceUpdated = "balance_updated"

// BalanceMessage emitted after every committed balance change
type BalanceMessage struct {
	Type    string `json:"type"`
	UserID  string `json:"user_id"`
	Credits int    `json:"credits"`
	Delta   int    `json:"delta"`
	Plan    string `json:"plan,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Publisher writes balance messages to ChannelBalance
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishBalance stamps the message type before publishing
func (p *Publisher) PublishBalance(ctx context.Context, msg *BalanceMessage) error {
	msg.Type = TypeBalanceUpdated

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal balance message: %w", err)
	}

	return p.client.Publish(ctx, ChannelBalance, data).Err()
}

// Subscriber reads ChannelBalance
type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe blocks until ctx is done, handing every decoded message to handler
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*BalanceMessage)) error {
	sub := s.client.Subscribe(ctx, ChannelBalance)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", ChannelBalance, err)
	}

	ch := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var balance BalanceMessage
			if err := json.Unmarshal([]byte(msg.Payload), &balance); err != nil {
				log.Warn().Err(err).Msg("pubsub: dropping malformed balance message")
				continue
			}

			handler(&balance)
		}
	}
}
