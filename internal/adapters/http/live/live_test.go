package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	service "github.com/mployhr/recruitdash/internal/app"
	"github.com/mployhr/recruitdash/internal/gateway"
)

type fakeSource struct {
	ch      chan service.Change
	once    sync.Once
	stopped chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan service.Change, 4), stopped: make(chan struct{})}
}

func (f *fakeSource) Changes() (<-chan service.Change, func()) {
	return f.ch, func() { f.once.Do(func() { close(f.stopped) }) }
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func dial(srv *httptest.Server) (*websocket.Conn, error) {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	return conn, err
}

func TestHub(t *testing.T) {
	Convey("Given a running hub behind a test server", t, func() {
		src := newFakeSource()
		hub := NewHub(src)
		mux := http.NewServeMux()
		hub.Register(context.Background(), mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- hub.Run(ctx) }()

		conn, err := dial(srv)
		So(err, ShouldBeNil)
		defer conn.Close()
		So(waitFor(func() bool { return hub.Clients() == 1 }), ShouldBeTrue)

		Convey("When a change notice arrives", func() {
			src.ch <- service.Change{Topic: gateway.TopicKPI, Version: 7}
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			_, msg, err := conn.ReadMessage()

			Convey("Then the client receives it as JSON", func() {
				So(err, ShouldBeNil)
				var got service.Change
				So(json.Unmarshal(msg, &got), ShouldBeNil)
				So(got.Topic, ShouldEqual, gateway.TopicKPI)
				So(got.Version, ShouldEqual, 7)
			})
		})

		Convey("When the client leaves", func() {
			So(conn.Close(), ShouldBeNil)

			Convey("Then it is dropped from the hub", func() {
				So(waitFor(func() bool { return hub.Clients() == 0 }), ShouldBeTrue)
			})
		})

		Convey("When the hub stops", func() {
			cancel()
			So(<-done, ShouldBeNil)

			Convey("Then clients are disconnected and the source released", func() {
				_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
				_, _, err := conn.ReadMessage()
				So(websocket.IsCloseError(err, websocket.CloseNormalClosure), ShouldBeTrue)
				So(hub.Clients(), ShouldEqual, 0)
				_, ok := <-src.stopped
				So(ok, ShouldBeFalse)
			})

			Convey("Then new clients are turned away", func() {
				late, err := dial(srv)
				So(err, ShouldBeNil)
				defer late.Close()
				_ = late.SetReadDeadline(time.Now().Add(2 * time.Second))
				_, _, err = late.ReadMessage()
				So(websocket.IsCloseError(err, websocket.CloseGoingAway), ShouldBeTrue)
			})
		})
	})
}

func TestRegisterWithNilMux(t *testing.T) {
	Convey("Given a nil mux", t, func() {
		So(func() { NewHub(newFakeSource()).Register(context.Background(), nil) }, ShouldPanic)
	})
}
