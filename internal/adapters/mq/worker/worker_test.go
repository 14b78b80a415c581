package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mployhr/recruitdash/internal/adapters/docstore"
	"github.com/mployhr/recruitdash/internal/adapters/mq/queue"
	"github.com/mployhr/recruitdash/internal/adapters/mq/worker"
	"github.com/smartystreets/goconvey/convey"
)

type mockStore struct {
	mu     sync.Mutex
	writes []string
	fail   map[string]error
}

func newMockStore() *mockStore {
	return &mockStore{fail: make(map[string]error)}
}

func (m *mockStore) Put(_ context.Context, path string, data json.RawMessage) (docstore.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.fail[path]; ok {
		return docstore.Document{}, err
	}
	m.writes = append(m.writes, path+"="+string(data))
	return docstore.Document{Path: path, Data: data, Version: int64(len(m.writes))}, nil
}

func (m *mockStore) Merge(ctx context.Context, path string, data json.RawMessage) (docstore.Document, error) {
	return m.Put(ctx, path, json.RawMessage("merge:"+string(data)))
}

func (m *mockStore) written() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.writes))
	copy(out, m.writes)
	return out
}

func req(path, data string) queue.WriteRequest {
	return queue.WriteRequest{Topic: "kpi_dashboard", Path: path, Data: json.RawMessage(data)}
}

func TestWriter(t *testing.T) {
	convey.Convey("Given a writer over a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		store := newMockStore()

		var (
			mu      sync.Mutex
			failed  []error
			written []int64
		)
		w := worker.NewWriter(q, store,
			worker.WithName("test-writer"),
			worker.WithErrorHandler(func(_ queue.WriteRequest, err error) {
				mu.Lock()
				failed = append(failed, err)
				mu.Unlock()
			}),
			worker.WithWrittenHandler(func(_ queue.WriteRequest, doc docstore.Document) {
				mu.Lock()
				written = append(written, doc.Version)
				mu.Unlock()
			}),
		)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When writes are queued and the queue is closed", func() {
			_ = q.Enqueue(ctx, req("a", `{"n":1}`))
			_ = q.Enqueue(ctx, req("a", `{"n":2}`))
			_ = q.Enqueue(ctx, req("b", `{"n":3}`))
			_ = q.Close()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()
			err := w.Shutdown(shutdownCtx)

			convey.Convey("Then every write should be persisted in order", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(store.written(), convey.ShouldResemble, []string{`a={"n":1}`, `a={"n":2}`, `b={"n":3}`})
				mu.Lock()
				defer mu.Unlock()
				convey.So(written, convey.ShouldResemble, []int64{1, 2, 3})
				convey.So(failed, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When a merge write is queued", func() {
			r := req("a", `{"current_week_data":[]}`)
			r.Merge = true
			_ = q.Enqueue(ctx, r)
			_ = q.Enqueue(ctx, req("a", `{"n":1}`))
			_ = q.Close()
			<-w.Done()

			convey.Convey("Then it should go to Merge and full writes to Put", func() {
				convey.So(store.written(), convey.ShouldResemble, []string{`a=merge:{"current_week_data":[]}`, `a={"n":1}`})
			})
		})

		convey.Convey("When the store rejects a write", func() {
			store.fail["bad"] = errors.New("permission denied")
			_ = q.Enqueue(ctx, req("bad", `{}`))
			_ = q.Enqueue(ctx, req("good", `{}`))
			_ = q.Close()
			<-w.Done()

			convey.Convey("Then the failure should be reported and later writes continue", func() {
				mu.Lock()
				defer mu.Unlock()
				convey.So(len(failed), convey.ShouldEqual, 1)
				convey.So(failed[0].Error(), convey.ShouldContainSubstring, "permission denied")
				convey.So(store.written(), convey.ShouldResemble, []string{"good={}"})
			})
		})

		convey.Convey("When the context is cancelled", func() {
			cancel()

			convey.Convey("Then the writer should stop", func() {
				select {
				case <-w.Done():
				case <-time.After(time.Second):
					t.Fatal("writer did not stop")
				}
			})
		})

		convey.Convey("When shutdown times out", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer shutdownCancel()
			err := w.Shutdown(shutdownCtx)

			convey.Convey("Then it should return the deadline error", func() {
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
			})
		})
	})
}
