//go:build integration

package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"likes_watcher/internal/domain"
	"likes_watcher/testdata/utils"
)

type RabbitMQIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
}

func (s *RabbitMQIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	amqpURL, err := container.AmqpURL(s.ctx)
	s.Require().NoError(err)
	s.amqpURL = amqpURL
}

func (s *RabbitMQIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestRabbitMQIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQIntegrationSuite))
}

func (s *RabbitMQIntegrationSuite) TestPublisher_Connection() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange",
		RoutingKey: "test-routing-key",
		QueueName:  "test-queue",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.NoError(err)
	s.NotNil(pub)

	err = pub.Close()
	s.NoError(err)
}

func (s *RabbitMQIntegrationSuite) TestPublisher_PublishNewLike() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-new",
		RoutingKey: "test-routing-key-new",
		QueueName:  "test-queue-new",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	video := &domain.Video{
		AID:     100,
		BVID:    utils.Ptr("BV1xx411c7mD"),
		Title:   "some video",
		PubDate: time.Now().Truncate(time.Millisecond),
		Owner:   domain.Owner{MID: 55, Name: "uploader"},
	}

	err = pub.Publish(s.ctx, 1001, video, true)
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.NotNil(msg)

	var received LikeMessage
	err = json.Unmarshal(msg.Body, &received)
	s.NoError(err)
	s.Equal("new_like", received.Action)
	s.Equal(int64(1001), received.AccountID)
	s.Equal(int64(100), received.Video.AID)
	s.Equal("some video", received.Video.Title)
}

func (s *RabbitMQIntegrationSuite) TestPublisher_PublishSeenLike() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-seen",
		RoutingKey: "test-routing-key-seen",
		QueueName:  "test-queue-seen",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	video := &domain.Video{
		AID:     101,
		Title:   "already known",
		PubDate: time.Now().Truncate(time.Millisecond),
	}

	err = pub.Publish(s.ctx, 1001, video, false)
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.NotNil(msg)

	var received LikeMessage
	err = json.Unmarshal(msg.Body, &received)
	s.NoError(err)
	s.Equal("seen_like", received.Action)
}

func (s *RabbitMQIntegrationSuite) consumeMessage(cfg Config) *amqp.Delivery {
	conn, err := amqp.Dial(cfg.URL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	msgs, err := ch.Consume(cfg.QueueName, "", true, false, false, false, nil)
	s.Require().NoError(err)

	select {
	case msg := <-msgs:
		return &msg
	case <-time.After(5 * time.Second):
		s.Fail("timed out waiting for message")
		return nil
	}
}
