package mqtt

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// State is the retained payload published on <prefix>/state.
type State struct {
	Ambient float64 `json:"ambient"`
	Current int     `json:"current"`
	Target  int     `json:"target"`
}

// Publisher mirrors control loop notifications to a retained MQTT topic.
// Notifications only record the latest state; Run publishes it from its own
// goroutine, so bursts of fade steps coalesce into fewer messages.
type Publisher struct {
	client Client
	topic  string

	mu    sync.Mutex
	state State

	dirty chan struct{}
}

// NewPublisher creates a publisher writing to prefix + "/state".
func NewPublisher(client Client, prefix string) *Publisher {
	return &Publisher{
		client: client,
		topic:  prefix + "/state",
		dirty:  make(chan struct{}, 1),
	}
}

func (p *Publisher) Sampled(ambient float64, current, target int) {
	p.update(func(s *State) {
		s.Ambient = ambient
		s.Current = current
		s.Target = target
	})
}

func (p *Publisher) Applied(value, target int) {
	p.update(func(s *State) {
		s.Current = value
		s.Target = target
	})
}

func (p *Publisher) update(fn func(*State)) {
	p.mu.Lock()
	fn(&p.state)
	p.mu.Unlock()

	select {
	case p.dirty <- struct{}{}:
	default:
	}
}

func (p *Publisher) snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Run connects to the broker and publishes every state change until ctx is
// done. Publish failures are logged and retried with the next change.
func (p *Publisher) Run(ctx context.Context) error {
	if err := p.client.Connect(ctx); err != nil {
		if ctx.Err() != nil {
			log.Info().Err(err).Msg("MQTT state publisher stopped before connecting")
			return nil
		}
		return err
	}
	defer p.client.Disconnect()

	log.Info().Str("topic", p.topic).Msg("MQTT state publisher started")

	for {
		select {
		case <-p.dirty:
			p.publish()
		case <-ctx.Done():
			log.Info().Msg("MQTT state publisher stopped")
			return nil
		}
	}
}

func (p *Publisher) publish() {
	payload, err := json.Marshal(p.snapshot())
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode state")
		return
	}
	if err := p.client.Publish(p.topic, 1, true, payload); err != nil {
		log.Warn().Err(err).Msg("Failed to publish state")
	}
}
