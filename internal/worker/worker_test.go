package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/convene/internal/model"
	"basegraph.app/convene/internal/queue"
	"basegraph.app/convene/internal/service"
	"basegraph.app/convene/internal/worker"
)

type mockConsumer struct {
	mu       sync.Mutex
	batches  [][]queue.Message
	readErr  error
	acked    []string
	requeued []string
	dlq      map[string]string
}

func newMockConsumer(batches ...[]queue.Message) *mockConsumer {
	return &mockConsumer{batches: batches, dlq: map[string]string{}}
}

func (m *mockConsumer) Read(ctx context.Context) ([]queue.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	if len(m.batches) == 0 {
		// Stands in for the XREADGROUP block timeout.
		time.Sleep(time.Millisecond)
		return nil, nil
	}
	batch := m.batches[0]
	m.batches = m.batches[1:]
	return batch, nil
}

func (m *mockConsumer) Ack(ctx context.Context, msg queue.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, msg.ID)
	return nil
}

func (m *mockConsumer) Requeue(ctx context.Context, msg queue.Message, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requeued = append(m.requeued, msg.ID)
	return nil
}

func (m *mockConsumer) SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dlq[msg.ID] = errMsg
	return nil
}

func (m *mockConsumer) snapshot() (acked, requeued []string, dlq map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dlqCopy := make(map[string]string, len(m.dlq))
	for k, v := range m.dlq {
		dlqCopy[k] = v
	}
	return append([]string(nil), m.acked...), append([]string(nil), m.requeued...), dlqCopy
}

type mockScheduling struct {
	scheduleFn func(ctx context.Context, req model.ScheduleRequest) *service.Result
}

func (m *mockScheduling) Schedule(ctx context.Context, req model.ScheduleRequest) *service.Result {
	return m.scheduleFn(ctx, req)
}

func scheduled(ctx context.Context, req model.ScheduleRequest) *service.Result {
	return &service.Result{
		ScheduleID: 1,
		Output:     &model.OutputRecord{RequestID: req.RequestID, EventStart: "2025-07-17T10:00:00+05:30"},
	}
}

func message(id string, attempt int) queue.Message {
	return queue.Message{ID: id, Attempt: attempt, Request: model.ScheduleRequest{RequestID: "req-" + id}}
}

var _ = Describe("Worker", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("ProcessMessage", func() {
		It("acks a scheduled request", func() {
			consumer := newMockConsumer()
			var seen string
			w := worker.New(consumer, &mockScheduling{scheduleFn: func(ctx context.Context, req model.ScheduleRequest) *service.Result {
				seen = req.RequestID
				return scheduled(ctx, req)
			}}, worker.Config{})

			Expect(w.ProcessMessage(ctx, message("1-0", 1))).To(Succeed())

			acked, _, dlq := consumer.snapshot()
			Expect(seen).To(Equal("req-1-0"))
			Expect(acked).To(ConsistOf("1-0"))
			Expect(dlq).To(BeEmpty())
		})

		It("dead-letters an invalid envelope without retrying", func() {
			consumer := newMockConsumer()
			w := worker.New(consumer, &mockScheduling{scheduleFn: func(ctx context.Context, req model.ScheduleRequest) *service.Result {
				return &service.Result{Err: fmt.Errorf("%w: missing From", service.ErrInvalidRequest)}
			}}, worker.Config{})

			Expect(w.ProcessMessage(ctx, message("2-0", 1))).To(Succeed())

			acked, requeued, dlq := consumer.snapshot()
			Expect(acked).To(BeEmpty())
			Expect(requeued).To(BeEmpty())
			Expect(dlq).To(HaveKeyWithValue("2-0", "invalid request: missing From"))
		})

		It("surfaces other failures to the caller", func() {
			boom := errors.New("boom")
			w := worker.New(newMockConsumer(), &mockScheduling{scheduleFn: func(ctx context.Context, req model.ScheduleRequest) *service.Result {
				return &service.Result{Err: boom}
			}}, worker.Config{})

			Expect(w.ProcessMessage(ctx, message("3-0", 1))).To(MatchError(boom))
		})
	})

	Describe("Run", func() {
		run := func(w *worker.Worker) {
			done := make(chan error, 1)
			go func() { done <- w.Run(ctx) }()
			DeferCleanup(func() {
				w.Stop()
				Eventually(done).Should(Receive(BeNil()))
			})
		}

		It("processes every message of a batch", func() {
			consumer := newMockConsumer([]queue.Message{message("1-0", 1), message("1-1", 1)})
			w := worker.New(consumer, &mockScheduling{scheduleFn: scheduled}, worker.Config{})
			run(w)

			Eventually(func() []string {
				acked, _, _ := consumer.snapshot()
				return acked
			}).Should(ConsistOf("1-0", "1-1"))
		})

		It("requeues a panicking request until its attempts run out", func() {
			consumer := newMockConsumer([]queue.Message{message("5-0", 1), message("5-1", 3)})
			w := worker.New(consumer, &mockScheduling{scheduleFn: func(ctx context.Context, req model.ScheduleRequest) *service.Result {
				panic("coordinator exploded")
			}}, worker.Config{MaxAttempts: 3})
			run(w)

			Eventually(func() map[string]string {
				_, _, dlq := consumer.snapshot()
				return dlq
			}).Should(HaveKeyWithValue("5-1", ContainSubstring("coordinator exploded")))

			_, requeued, _ := consumer.snapshot()
			Expect(requeued).To(ConsistOf("5-0"))
		})

		It("keeps polling after a read error", func() {
			consumer := newMockConsumer()
			consumer.readErr = errors.New("connection reset")
			w := worker.New(consumer, &mockScheduling{scheduleFn: scheduled}, worker.Config{ErrorBackoff: time.Millisecond})
			run(w)

			Consistently(func() []string {
				acked, _, _ := consumer.snapshot()
				return acked
			}, 20*time.Millisecond).Should(BeEmpty())
		})
	})
})
