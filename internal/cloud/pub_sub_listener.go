// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloud holds the configuration structures and client wrappers for the
// Google Cloud services the summarizer talks to. This file adapts a Pub/Sub
// subscription to the chain of responsibility: each message body becomes the
// CtxIn of a fresh chain context and the configured command runs on it.
package cloud

import (
	"context"
	"log/slog"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// AckPolicy decides whether a processed message is acknowledged. Messages
// that are not acknowledged are redelivered.
type AckPolicy func(chCtx cor.Context) bool

// AckOnSuccess acknowledges only messages whose chain recorded no error.
func AckOnSuccess(chCtx cor.Context) bool {
	return !chCtx.HasErrors()
}

type PubSubListener struct {
	client       *pubsub.Client
	subscription *pubsub.Subscription
	command      cor.Command
	ackPolicy    AckPolicy
	timeout      time.Duration
}

// NewPubSubListener binds a listener to subscriptionID. The command may be
// supplied later through SetCommand, once the workflows are built.
func NewPubSubListener(
	pubsubClient *pubsub.Client,
	subscriptionID string,
	command cor.Command,
) (cmd *PubSubListener, err error) {
	sub := pubsubClient.Subscription(subscriptionID)

	cmd = &PubSubListener{
		client:       pubsubClient,
		subscription: sub,
		command:      command,
		ackPolicy:    AckOnSuccess,
	}
	return cmd, nil
}

// SetCommand sets the command once; later calls are ignored.
func (m *PubSubListener) SetCommand(command cor.Command) {
	if m.command == nil {
		m.command = command
	}
}

// SetAckPolicy replaces the default AckOnSuccess policy.
func (m *PubSubListener) SetAckPolicy(policy AckPolicy) {
	if policy != nil {
		m.ackPolicy = policy
	}
}

// SetTimeout bounds the processing of a single message. Zero means no bound
// beyond the listener's own context.
func (m *PubSubListener) SetTimeout(timeout time.Duration) {
	m.timeout = timeout
}

// Listen starts receiving in a background goroutine until ctx is canceled.
func (m *PubSubListener) Listen(ctx context.Context) {
	slog.InfoContext(ctx, "listening", "subscription", m.subscription.String())

	go func() {
		tracer := otel.Tracer("message-listener")

		err := m.subscription.Receive(ctx, func(_ context.Context, msg *pubsub.Message) {
			msgCtx := ctx
			if m.timeout > 0 {
				var cancel context.CancelFunc
				msgCtx, cancel = context.WithTimeout(ctx, m.timeout)
				defer cancel()
			}
			spanCtx, span := tracer.Start(msgCtx, "receive-message")
			defer span.End()
			span.SetAttributes(attribute.String("message.id", msg.ID))
			slog.InfoContext(spanCtx, "received message", "id", msg.ID)

			chainCtx := cor.NewBaseContext()
			chainCtx.SetContext(spanCtx)
			chainCtx.Add(cor.CtxIn, string(msg.Data))
			defer chainCtx.Close()

			m.command.Execute(chainCtx)

			if chainCtx.HasErrors() {
				span.SetStatus(codes.Error, "failed")
				for name, e := range chainCtx.GetErrors() {
					slog.ErrorContext(spanCtx, "error executing chain", "command", name, "error", e)
				}
			} else {
				span.SetStatus(codes.Ok, "success")
			}

			if m.ackPolicy(chainCtx) {
				msg.Ack()
			} else {
				msg.Nack()
			}
		})

		if err != nil {
			slog.ErrorContext(ctx, "error receiving data", "subscription", m.subscription.String(), "error", err)
		}
	}()
}

// Publisher sends a message body to a topic.
type Publisher interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) error
}

// TopicPublisher publishes to a single Pub/Sub topic and waits for the
// server acknowledgement.
type TopicPublisher struct {
	topic *pubsub.Topic
}

func NewTopicPublisher(client *pubsub.Client, topicID string) *TopicPublisher {
	return &TopicPublisher{topic: client.Topic(topicID)}
}

func (p *TopicPublisher) Publish(ctx context.Context, data []byte, attributes map[string]string) error {
	_, err := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attributes}).Get(ctx)
	return err
}

// Stop flushes pending messages.
func (p *TopicPublisher) Stop() {
	p.topic.Stop()
}
