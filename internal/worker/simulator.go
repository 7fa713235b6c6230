package worker

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shaiso/Tranche/internal/domain"
	"github.com/shaiso/Tranche/internal/telemetry"
)

// Rand — источник случайности симулятора.
// *rand.Rand из math/rand/v2 удовлетворяет интерфейсу.
type Rand interface {
	Int64N(n int64) int64
	Float64() float64
}

// Outcome — результат симулированной обработки.
type Outcome struct {
	Status    domain.TaskStatus
	ErrorDesc string
	Delay     time.Duration
}

// Simulator имитирует обработку файла: ждёт случайное время
// в [MinDelay, MaxDelay] и выбирает исход с вероятностью успеха SuccessRatio.
type Simulator struct {
	MinDelay     time.Duration
	MaxDelay     time.Duration
	SuccessRatio float64

	mu  sync.Mutex
	rnd Rand
}

// NewSimulator создаёт симулятор. rnd == nil — источник от текущего времени.
func NewSimulator(minDelay, maxDelay time.Duration, successRatio float64, rnd Rand) *Simulator {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Simulator{
		MinDelay:     minDelay,
		MaxDelay:     maxDelay,
		SuccessRatio: successRatio,
		rnd:          rnd,
	}
}

// Draw выбирает задержку и исход без ожидания.
func (s *Simulator) Draw() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	delay := s.MinDelay
	if span := int64(s.MaxDelay - s.MinDelay); span > 0 {
		delay += time.Duration(s.rnd.Int64N(span + 1))
	}

	if s.rnd.Float64() < s.SuccessRatio {
		return Outcome{Status: domain.TaskStatusSuccess, ErrorDesc: domain.ErrorDescNone, Delay: delay}
	}
	return Outcome{Status: domain.TaskStatusFailed, ErrorDesc: domain.ErrorDescSimulated, Delay: delay}
}

// Process выбирает исход и ждёт его задержку. Поддерживает отмену через ctx.
func (s *Simulator) Process(ctx context.Context) (Outcome, error) {
	outcome := s.Draw()

	telemetry.FromContext(ctx).Info("processing task", "delay", outcome.Delay)

	if err := sleep(ctx, outcome.Delay); err != nil {
		return Outcome{}, err
	}
	return outcome, nil
}

// sleep — context-aware ожидание.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
