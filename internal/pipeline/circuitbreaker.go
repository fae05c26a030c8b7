package pipeline

import (
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"

	"mediahub/pkg/logging"
)

// stageBreakers holds one circuit breaker per stage name, so a platform
// integration that starts failing systematically (the external speech
// API down, the topic model rejecting every call) trips independently of
// the other stages instead of one bad dependency burning every
// recording's retry budget.
type stageBreakers struct {
	mu       sync.Mutex
	logger   logging.Logger
	breakers map[string]circuitbreaker.CircuitBreaker[any]
}

func newStageBreakers(logger logging.Logger) *stageBreakers {
	return &stageBreakers{logger: logger, breakers: map[string]circuitbreaker.CircuitBreaker[any]{}}
}

func (s *stageBreakers) forStage(stage string) circuitbreaker.CircuitBreaker[any] {
	s.mu.Lock()
	defer s.mu.Unlock()
	cb, ok := s.breakers[stage]
	if ok {
		return cb
	}
	builder := circuitbreaker.NewBuilder[any]().
		WithFailureThresholdRatio(5, 10).
		WithDelay(30 * time.Second).
		WithSuccessThreshold(2)
	if s.logger != nil {
		builder = builder.OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
			s.logger.WithFields(logging.Fields{
				"stage":      stage,
				"from_state": event.OldState.String(),
				"to_state":   event.NewState.String(),
			}).Warn("pipeline stage circuit breaker state change")
		})
	}
	cb = builder.Build()
	s.breakers[stage] = cb
	return cb
}

// run executes fn through the named stage's circuit breaker. An open
// breaker rejects fn immediately with failsafe's ErrOpen, which callers
// handle like any other error from fn; it is not classified as
// errs.Transient.
func (s *stageBreakers) run(stage string, fn func() error) error {
	_, err := failsafe.With(s.forStage(stage)).Get(func() (any, error) {
		return nil, fn()
	})
	return err
}
