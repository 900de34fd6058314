package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/aurzen/roombot/pkg/log"
)

const headerEventType = "event-type"

// Topics backing the channel families in channels.go.
var kafkaTopics = []string{
	"roombot-sweep-tick",
	"roombot-room-events",
}

// channelToTopicAndKey converts a four-part channel to a Kafka topic and message key.
//
//	"roombot:sweep:all:tick"    → topic: "roombot-sweep-tick", key: "all"
//	"roombot:room:1234:events"  → topic: "roombot-room-events", key: "1234"
func channelToTopicAndKey(channel string) (topic, key string, err error) {
	parts := strings.Split(channel, ":")
	if len(parts) != 4 || parts[2] == "" {
		return "", "", fmt.Errorf("invalid channel format: %s", channel)
	}

	topic = strings.Join([]string{parts[0], parts[1], strings.ReplaceAll(parts[3], "_", "-")}, "-")
	return topic, parts[2], nil
}

// patternToTopic converts a Redis-style subscribe pattern to a Kafka topic.
//
//	"roombot:room:*:events" → "roombot-room-events"
func patternToTopic(pattern string) (string, error) {
	channel := strings.ReplaceAll(pattern, "*", "_placeholder_")
	topic, _, err := channelToTopicAndKey(channel)
	return topic, err
}

// kafkaSubscription is one consumer. The poll goroutine owns the consumer
// and closes it on exit; done is closed after that.
type kafkaSubscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *kafkaSubscription) stop() {
	s.cancel()
	<-s.done
}

// KafkaPubSub implements PubSub on Kafka. A channel maps to a topic plus a
// message key; a subscription to one channel consumes the topic and drops
// other keys.
//
// Every process subscribing to the same channel joins the same consumer
// group, so a sweep tick is handled by one replica only.
type KafkaPubSub struct {
	producer      *kafka.Producer
	subscriptions map[string]*kafkaSubscription // channel or pattern
	config        KafkaConfig
	mu            sync.Mutex
	doneCh        chan struct{}
}

// NewKafkaPubSub creates a new Kafka-based PubSub instance.
func NewKafkaPubSub(cfg KafkaConfig) (*KafkaPubSub, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "1",
		"linger.ms":         5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	kps := &KafkaPubSub{
		producer:      p,
		subscriptions: make(map[string]*kafkaSubscription),
		config:        cfg,
		doneCh:        make(chan struct{}),
	}

	go kps.deliveryReports()

	if err := kps.ensureTopics(); err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("failed to ensure kafka topics (may already exist)")
	}

	return kps, nil
}

// ensureTopics creates the fixed topics if they don't exist.
func (k *KafkaPubSub) ensureTopics() error {
	admin, err := kafka.NewAdminClientFromProducer(k.producer)
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	partitions := k.config.Partitions
	if partitions <= 0 {
		partitions = 4
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	specs := make([]kafka.TopicSpecification, 0, len(kafkaTopics))
	for _, topic := range kafkaTopics {
		specs = append(specs, kafka.TopicSpecification{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: 1,
		})
	}

	results, err := admin.CreateTopics(ctx, specs)
	if err != nil {
		return fmt.Errorf("failed to create topics: %w", err)
	}

	l := log.L()
	for _, r := range results {
		switch r.Error.Code() {
		case kafka.ErrNoError:
			l.Info().Str("topic", r.Topic).Msg("created kafka topic")
		case kafka.ErrTopicAlreadyExists:
		default:
			l.Warn().Str("topic", r.Topic).Str("error", r.Error.String()).Msg("failed to create kafka topic")
		}
	}
	return nil
}

func (k *KafkaPubSub) deliveryReports() {
	defer close(k.doneCh)
	for e := range k.producer.Events() {
		msg, ok := e.(*kafka.Message)
		if !ok || msg.TopicPartition.Error == nil {
			continue
		}
		l := log.L()
		l.Error().
			Err(msg.TopicPartition.Error).
			Str("topic", *msg.TopicPartition.Topic).
			Str("key", string(msg.Key)).
			Msg("kafka pubsub delivery failed")
	}
}

// Publish produces event on the topic for channel, keyed by the channel's
// entity id. The event type travels as a header so consumers can skip
// decoding events they do not handle.
func (k *KafkaPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	topic, key, err := channelToTopicAndKey(channel)
	if err != nil {
		return fmt.Errorf("failed to parse channel: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          data,
		Headers:        []kafka.Header{{Key: headerEventType, Value: []byte(event.Type)}},
		Timestamp:      event.Timestamp,
	}
	if err := k.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("failed to produce to %s: %w", topic, err)
	}
	return nil
}

// Subscribe consumes the channel's topic and keeps only its key.
func (k *KafkaPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	topic, key, err := channelToTopicAndKey(channel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse channel: %w", err)
	}
	return k.subscribe(ctx, channel, topic, key)
}

// SubscribePattern consumes every key on the pattern's topic.
func (k *KafkaPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	topic, err := patternToTopic(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pattern: %w", err)
	}
	return k.subscribe(ctx, pattern, topic, "")
}

func (k *KafkaPubSub) subscribe(ctx context.Context, subKey, topic, filterKey string) (<-chan *Event, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if existing, ok := k.subscriptions[subKey]; ok {
		existing.stop()
		delete(k.subscriptions, subKey)
	}

	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":       k.config.Brokers,
		"group.id":                k.groupID(subKey),
		"auto.offset.reset":       "latest",
		"enable.auto.commit":      true,
		"auto.commit.interval.ms": 5000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	if err := c.Subscribe(topic, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &kafkaSubscription{cancel: cancel, done: make(chan struct{})}
	k.subscriptions[subKey] = sub

	eventCh := make(chan *Event, 100)
	go k.consume(subCtx, c, eventCh, filterKey, sub.done)

	return eventCh, nil
}

// groupID derives the consumer group for a subscription key. Subscriptions
// get a group per key so a channel subscription does not compete with a
// pattern subscription on the same topic for partitions.
func (k *KafkaPubSub) groupID(subKey string) string {
	base := k.config.GroupID
	if base == "" {
		base = "roombot"
	}
	return base + "-" + sanitizeGroupID(subKey)
}

func (k *KafkaPubSub) consume(ctx context.Context, c *kafka.Consumer, eventCh chan<- *Event, filterKey string, done chan<- struct{}) {
	defer close(done)
	defer close(eventCh)
	defer c.Close()

	l := log.L()
	for ctx.Err() == nil {
		ev := c.Poll(500)
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			if filterKey != "" && string(e.Key) != filterKey {
				continue
			}

			var event Event
			if err := json.Unmarshal(e.Value, &event); err != nil {
				l.Warn().Err(err).Str("topic", *e.TopicPartition.Topic).Msg("kafka pubsub: dropping undecodable event")
				continue
			}

			select {
			case eventCh <- &event:
			case <-ctx.Done():
				return
			default:
				l.Warn().Str("type", event.Type).Msg("kafka pubsub: subscriber buffer full, dropping event")
			}

		case kafka.Error:
			l.Error().Err(e).Int("code", int(e.Code())).Bool("fatal", e.IsFatal()).Msg("kafka pubsub error")
			if e.IsFatal() {
				return
			}
		}
	}
}

// Unsubscribe stops a channel or pattern subscription and waits for its
// consumer to close.
func (k *KafkaPubSub) Unsubscribe(_ context.Context, channel string) error {
	k.mu.Lock()
	sub, ok := k.subscriptions[channel]
	delete(k.subscriptions, channel)
	k.mu.Unlock()

	if ok {
		sub.stop()
	}
	return nil
}

// Close stops every subscription, flushes pending messages and closes the
// producer.
func (k *KafkaPubSub) Close() error {
	k.mu.Lock()
	subs := k.subscriptions
	k.subscriptions = make(map[string]*kafkaSubscription)
	k.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}

	if n := k.producer.Flush(5000); n > 0 {
		l := log.L()
		l.Warn().Int("pending", n).Msg("kafka pubsub closed with undelivered messages")
	}
	k.producer.Close()
	<-k.doneCh

	return nil
}

var groupIDRegexp = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeGroupID replaces characters not suitable for Kafka group IDs.
func sanitizeGroupID(s string) string {
	return groupIDRegexp.ReplaceAllString(s, "-")
}
