package worker_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/royale/internal/adapters/mq/queue"
	"github.com/okian/royale/internal/adapters/mq/worker"
	"github.com/okian/royale/internal/domain/model"
	logging "github.com/okian/royale/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockIngestor struct {
	mu       sync.Mutex
	calls    []string
	statuses map[string]model.IngestStatus
}

func newMockIngestor() *mockIngestor {
	return &mockIngestor{statuses: make(map[string]model.IngestStatus)}
}

func (m *mockIngestor) IngestMatch(_ context.Context, tel model.Telemetry, scheduleID string) model.IngestStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, scheduleID)
	if st, ok := m.statuses[tel.GameID.String()]; ok {
		return st
	}
	return model.IngestStatus{Status: model.StatusSuccess}
}

func (m *mockIngestor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func newJob(gameID string, reply chan model.IngestStatus) queue.Job {
	return queue.Job{
		JobID:      "job-" + gameID,
		ScheduleID: "sched-" + gameID,
		Telemetry:  model.Telemetry{GameID: model.ID(gameID)},
		Reply:      reply,
	}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker over a queue", t, func() {
		_ = logging.Init()
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		ing := newMockIngestor()
		w := worker.NewInMemoryWorker(q, ing, worker.WithName("w-test"))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a job succeeds", func() {
			reply := make(chan model.IngestStatus, 1)
			convey.So(q.Enqueue(ctx, newJob("g1", reply)), convey.ShouldBeTrue)

			convey.Convey("Then the status is delivered on the reply channel", func() {
				select {
				case st := <-reply:
					convey.So(st.Status, convey.ShouldEqual, model.StatusSuccess)
				case <-time.After(2 * time.Second):
					t.Fatal("no reply")
				}
				convey.So(ing.callCount(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the ingestor rejects a job", func() {
			ing.statuses["bad"] = model.IngestStatus{Status: model.StatusMalformed, Message: "missing uId"}
			reply := make(chan model.IngestStatus, 1)
			convey.So(q.Enqueue(ctx, newJob("bad", reply)), convey.ShouldBeTrue)

			convey.Convey("Then the rejection is relayed unchanged", func() {
				select {
				case st := <-reply:
					convey.So(st.Status, convey.ShouldEqual, model.StatusMalformed)
					convey.So(st.Message, convey.ShouldEqual, "missing uId")
				case <-time.After(2 * time.Second):
					t.Fatal("no reply")
				}
			})
		})

		convey.Convey("When a job has no reply channel", func() {
			convey.So(q.Enqueue(ctx, newJob("g2", nil)), convey.ShouldBeTrue)

			convey.Convey("Then it is still processed", func() {
				deadline := time.Now().Add(2 * time.Second)
				for ing.callCount() == 0 && time.Now().Before(deadline) {
					time.Sleep(5 * time.Millisecond)
				}
				convey.So(ing.callCount(), convey.ShouldEqual, 1)
				convey.So(w.Processed(), convey.ShouldEqual, int64(1))
			})
		})

		convey.Convey("When shutting down", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()

			convey.Convey("Then the worker stops", func() {
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})
	})
}

func TestWorkerStopsOnCancel(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		_ = logging.Init()
		q := queue.NewInMemoryQueue()
		w := worker.NewInMemoryWorker(q, newMockIngestor())
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			w.Run(ctx)
			close(done)
		}()

		convey.Convey("When the context is cancelled", func() {
			cancel()

			convey.Convey("Then Run returns", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					t.Fatal("worker did not stop")
				}
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a worker pool", t, func() {
		_ = logging.Init()

		convey.Convey("When created with a non-positive count", func() {
			p := worker.NewPool(0, queue.NewInMemoryQueue(), newMockIngestor())

			convey.Convey("Then it gets at least one worker", func() {
				convey.So(p.Size(), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When many jobs are queued before shutdown", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(200))
			ing := newMockIngestor()
			p := worker.NewPool(4, q, ing)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			p.Start(ctx)

			for i := 0; i < 100; i++ {
				convey.So(q.Enqueue(ctx, newJob(fmt.Sprintf("g%d", i), nil)), convey.ShouldBeTrue)
			}
			err := p.Shutdown(context.Background())

			convey.Convey("Then shutdown drains every queued job", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ing.callCount(), convey.ShouldEqual, 100)
				convey.So(p.Processed(), convey.ShouldEqual, int64(100))
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})
}

func TestWorkerOptions(t *testing.T) {
	convey.Convey("Given worker options", t, func() {
		_ = logging.Init()

		convey.Convey("Then WithName and WithLogger are accepted", func() {
			w := worker.NewInMemoryWorker(queue.NewInMemoryQueue(), newMockIngestor(),
				worker.WithName(""),
				worker.WithLogger(logging.Get().Named("custom")),
				worker.WithLogger(nil),
			)
			convey.So(w, convey.ShouldNotBeNil)
		})
	})
}
