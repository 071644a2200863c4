package util

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

// PublishJob is one queued outbound message.
type PublishJob struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// Publisher queues outbound messages and publishes them in order from a
// single worker, so callers never wait on the broker.
type Publisher struct {
	queue     chan PublishJob
	client    func() MQTT.Client
	timeout   time.Duration
	observers []func(PublishJob)
	obsMu     sync.Mutex
	mu        sync.RWMutex // guards stopped against a send on the closed queue
	stopped   bool
	done      chan struct{}
}

func NewPublisher(size int, timeout time.Duration) *Publisher {
	if size < 1 {
		size = 1
	}
	return &Publisher{
		queue:   make(chan PublishJob, size),
		client:  func() MQTT.Client { return Client },
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// NewPublisherFromConfig sizes the publisher from publish_queue and
// publish_timeout_ms.
func NewPublisherFromConfig() *Publisher {
	return NewPublisher(
		Config.GetInt("publish_queue"),
		time.Duration(Config.GetInt("publish_timeout_ms"))*time.Millisecond,
	)
}

// OnPublish registers fn to see every job the worker handles.
func (p *Publisher) OnPublish(fn func(PublishJob)) {
	p.obsMu.Lock()
	defer p.obsMu.Unlock()
	p.observers = append(p.observers, fn)
}

func (p *Publisher) Start() {
	go p.worker()
}

// Publish encodes payload as JSON (strings and byte slices are sent as is)
// and queues it. It blocks only while the queue is full.
func (p *Publisher) Publish(topic string, payload any, retained bool) {
	data, err := encodePayload(payload)
	if err != nil {
		Logger.Error().Err(err).Str("topic", topic).Msg("unable to encode payload")
		return
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		Logger.Warn().Str("topic", topic).Msg("publisher stopped; dropping message")
		return
	}
	p.queue <- PublishJob{Topic: topic, Payload: data, Retained: retained}
}

// Stop drains the queue and waits for the worker to finish.
func (p *Publisher) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()
	<-p.done
}

func encodePayload(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	return json.Marshal(payload)
}

func (p *Publisher) worker() {
	defer close(p.done)
	for job := range p.queue {
		if err := p.process_job(job); err != nil {
			Logger.Warn().Err(err).Str("topic", job.Topic).Msg("publish failed")
		}
		p.obsMu.Lock()
		observers := p.observers
		p.obsMu.Unlock()
		for _, fn := range observers {
			fn(job)
		}
	}
}

func (p *Publisher) process_job(job PublishJob) error {
	client := p.client()
	if client == nil || !client.IsConnected() {
		return ErrNotConnected
	}
	token := client.Publish(job.Topic, qos(), job.Retained, job.Payload)
	if p.timeout > 0 && !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("%w: after %v", ErrTimeout, p.timeout)
	}
	if p.timeout <= 0 {
		token.Wait()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	Logger.Trace().Str("topic", job.Topic).Bytes("payload", job.Payload).Bool("retained", job.Retained).Msg("published")
	return nil
}
