package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// staleTopicLayout is ISO-8601 without zone, microsecond precision, the
// format the legacy bot wrote. Times are always UTC.
const staleTopicLayout = "2006-01-02T15:04:05.000000"

var staleTopicParseLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

// EncodeStaleTopic encodes t as base64url(ISO-8601) for the channel topic.
func EncodeStaleTopic(t time.Time) string {
	iso := t.UTC().Format(staleTopicLayout)
	return base64.URLEncoding.EncodeToString([]byte(iso))
}

// DecodeStaleTopic parses a topic written by EncodeStaleTopic.
func DecodeStaleTopic(topic string) (time.Time, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return time.Time{}, fmt.Errorf("empty topic")
	}

	raw, err := base64.URLEncoding.DecodeString(topic)
	if err != nil {
		return time.Time{}, fmt.Errorf("topic is not base64: %w", err)
	}

	for _, layout := range staleTopicParseLayouts {
		if t, err := time.ParseInLocation(layout, string(raw), time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("topic %q is not an ISO-8601 timestamp", raw)
}
