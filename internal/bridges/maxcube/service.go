package maxcube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-maxcube/internal/clock"
	"github.com/nerrad567/gray-logic-maxcube/internal/infrastructure/mqtt"
)

// Service constants.
const (
	// requestQueueSize bounds pending update requests. Requests beyond it
	// are dropped; a queued request for the same gateway covers them.
	requestQueueSize = 64

	// defaultWorkers is the number of goroutines draining the queue.
	defaultWorkers = 4

	// defaultUpdateTimeout bounds one Update triggered over MQTT.
	defaultUpdateTimeout = 30 * time.Second
)

// ServiceConfig configures a Service.
type ServiceConfig struct {
	// Registry holds the gateways to serve (required).
	Registry *Registry

	// Client is the MQTT connection (required).
	Client MQTTClient

	// QoS for subscriptions and state publications.
	QoS byte

	// Workers draining update requests. Default: 4.
	Workers int

	// UpdateTimeout bounds each Update. Default: 30 seconds.
	UpdateTimeout time.Duration

	// Clock stamps state messages. Default: the real clock.
	Clock clock.Clock

	// Logger is optional.
	Logger Logger
}

// Service answers entity update requests arriving over MQTT. Each request
// goes through the gateway's Handle, so the interval gate and single-flight
// guarantee apply, and the resulting state is published retained.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Service struct {
	registry      *Registry
	client        MQTTClient
	qos           byte
	workers       int
	updateTimeout time.Duration
	clock         clock.Clock
	logger        Logger
	topics        mqtt.Topics

	queue chan updateJob

	// Shutdown coordination
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	startMu  sync.Mutex
	started  bool
	stopOnce sync.Once
}

type updateJob struct {
	host      string
	requestID string
}

// NewService creates a Service. Call Start to begin serving.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Registry == nil {
		return nil, errors.New("maxcube: service requires a registry")
	}
	if cfg.Client == nil {
		return nil, errors.New("maxcube: service requires an MQTT client")
	}

	s := &Service{
		registry:      cfg.Registry,
		client:        cfg.Client,
		qos:           cfg.QoS,
		workers:       cfg.Workers,
		updateTimeout: cfg.UpdateTimeout,
		clock:         cfg.Clock,
		logger:        cfg.Logger,
		queue:         make(chan updateJob, requestQueueSize),
	}
	if s.workers <= 0 {
		s.workers = defaultWorkers
	}
	if s.updateTimeout <= 0 {
		s.updateTimeout = defaultUpdateTimeout
	}
	if s.clock == nil {
		s.clock = clock.NewReal()
	}
	if s.logger == nil {
		s.logger = noopLogger{}
	}
	return s, nil
}

// Start subscribes to update requests for every gateway and starts the
// workers. The workers stop when ctx is cancelled or Stop is called.
func (s *Service) Start(ctx context.Context) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if s.started {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	if err := s.client.Subscribe(s.topics.AllGatewayUpdateRequests(), s.qos, s.handleUpdateRequest); err != nil {
		s.cancel()
		s.wg.Wait()
		return fmt.Errorf("subscribing to update requests: %w", err)
	}

	s.started = true
	s.logger.Info("maxcube service started", "gateways", s.registry.Len())
	return nil
}

// Stop stops the workers and waits for in-flight updates to finish.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		s.startMu.Lock()
		cancel := s.cancel
		s.startMu.Unlock()

		if cancel != nil {
			cancel()
		}
		s.wg.Wait()
		s.logger.Info("maxcube service stopped")
	})
}

// handleUpdateRequest queues a request from graylogic/request/maxcube/{host}.
func (s *Service) handleUpdateRequest(topic string, payload []byte) error {
	host := s.topics.HostFromTopic(topic)
	if host == "" {
		return fmt.Errorf("update request on %q: no host", topic)
	}

	req, err := ParseUpdateRequest(payload)
	if err != nil {
		return err
	}

	if !s.registry.Has(host) {
		s.logger.Warn("update request for unknown gateway", "host", host)
		return nil
	}

	select {
	case s.queue <- updateJob{host: host, requestID: req.RequestID}:
	default:
		s.logger.Warn("update request queue full, dropping request", "host", host)
	}
	return nil
}

func (s *Service) worker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case job := <-s.queue:
			ctx, cancel := context.WithTimeout(s.ctx, s.updateTimeout)
			if err := s.UpdateAndPublish(ctx, job.host, job.requestID); err != nil {
				s.logger.Warn("update request failed", "host", job.host, "error", err)
			}
			cancel()
		}
	}
}

// UpdateAndPublish updates the gateway for host and publishes its state.
// The state is published whether or not the update succeeded.
//
// Returns:
//   - error wrapping ErrGatewayNotFound: host is not registered
//   - the Update error, if any, joined with a publish error
func (s *Service) UpdateAndPublish(ctx context.Context, host, requestID string) error {
	h, err := s.registry.Get(host)
	if err != nil {
		return err
	}

	updateErr := h.Update(ctx)
	pubErr := s.PublishState(h, updateErr, requestID)
	return errors.Join(updateErr, pubErr)
}

// PublishState publishes the retained state message for h.
func (s *Service) PublishState(h *Handle, updateErr error, requestID string) error {
	payload, err := json.Marshal(NewStateMessage(h, updateErr, requestID, s.clock.Now()))
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}
	if err := s.client.Publish(s.topics.GatewayState(h.Host()), payload, s.qos, true); err != nil {
		return fmt.Errorf("publishing state for %s: %w", h.Host(), err)
	}
	return nil
}
