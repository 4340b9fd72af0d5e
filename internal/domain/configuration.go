package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cadence controls how often a configuration fires.
type Cadence string

const (
	CadenceDaily  Cadence = "daily"
	CadenceWeekly Cadence = "weekly"
)

// ParseCadence accepts the values offered by the configuration form.
func ParseCadence(value string) (Cadence, error) {
	switch Cadence(strings.ToLower(strings.TrimSpace(value))) {
	case CadenceDaily:
		return CadenceDaily, nil
	case CadenceWeekly:
		return CadenceWeekly, nil
	default:
		return "", fmt.Errorf("%w: unknown cadence %q", ErrInvalidConfiguration, value)
	}
}

// Lookback keeps the lookback window exactly as it is stored. Rows written by
// older deployments may hold non-numeric text, so coercion happens on use.
type Lookback string

// LookbackDays builds a Lookback from a day count.
func LookbackDays(days int) Lookback {
	return Lookback(strconv.Itoa(days))
}

// Days coerces the stored value to a positive number of days.
func (l Lookback) Days() (int, error) {
	days, err := strconv.Atoi(strings.TrimSpace(string(l)))
	if err != nil {
		return 0, fmt.Errorf("%w: lookback window %q is not a number", ErrInvalidConfiguration, string(l))
	}
	if days <= 0 {
		return 0, fmt.Errorf("%w: lookback window must be positive, got %d", ErrInvalidConfiguration, days)
	}
	return days, nil
}

// Configuration is a persisted monitoring rule.
type Configuration struct {
	ID               int64
	Cadence          Cadence
	Lookback         Lookback
	Topic            string
	AdditionalTopics []string
	Channel          string
	CreatedAt        time.Time
}

// Topics returns the primary topic followed by the additional ones.
func (c Configuration) Topics() []string {
	topics := make([]string, 0, 1+len(c.AdditionalTopics))
	if c.Topic != "" {
		topics = append(topics, c.Topic)
	}
	return append(topics, c.AdditionalTopics...)
}

// Validate checks the fields a user submits before they reach the store.
func (c Configuration) Validate() error {
	if _, err := ParseCadence(string(c.Cadence)); err != nil {
		return err
	}
	if _, err := c.Lookback.Days(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Topic) == "" {
		return fmt.Errorf("%w: primary topic is required", ErrInvalidConfiguration)
	}
	if strings.TrimSpace(c.Channel) == "" {
		return fmt.Errorf("%w: destination channel is required", ErrInvalidConfiguration)
	}
	return nil
}

// SplitTopics parses newline-separated free text into trimmed topics.
func SplitTopics(text string) []string {
	var topics []string
	for _, line := range strings.Split(text, "\n") {
		if topic := strings.TrimSpace(line); topic != "" {
			topics = append(topics, topic)
		}
	}
	return topics
}
