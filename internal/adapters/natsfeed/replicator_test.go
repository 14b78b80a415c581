package natsfeed

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mployhr/recruitdash/internal/adapters/docstore"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSeenSet(t *testing.T) {
	Convey("Given a seen set of two", t, func() {
		s := newSeenSet(2)

		Convey("Then repeated ids should be detected", func() {
			So(s.SeenAndRecord("a"), ShouldBeFalse)
			So(s.SeenAndRecord("a"), ShouldBeTrue)
		})

		Convey("Then the oldest id should be forgotten when full", func() {
			s.SeenAndRecord("a")
			s.SeenAndRecord("b")
			s.SeenAndRecord("c")
			So(s.Len(), ShouldEqual, 2)
			So(s.SeenAndRecord("b"), ShouldBeTrue)
			So(s.SeenAndRecord("a"), ShouldBeFalse)
		})
	})
}

func TestReplicatorHandle(t *testing.T) {
	Convey("Given two replicators over separate stores", t, func() {
		ctx := context.Background()
		local := docstore.NewMemoryStore()
		defer local.Close()
		remote := docstore.NewMemoryStore()
		defer remote.Close()

		sender := New("app-1", local, WithOrigin("sender"))
		receiver := New("app-1", remote, WithOrigin("receiver"))
		path := "artifacts/app-1/public/data/kpi_dashboard/team_data"

		doc, err := local.Put(ctx, path, json.RawMessage(`{"current_week_data":[]}`))
		So(err, ShouldBeNil)
		msg, err := sender.encode("kpi_dashboard", doc)
		So(err, ShouldBeNil)

		Convey("When the receiver handles the message", func() {
			So(receiver.handle(msg), ShouldBeNil)

			Convey("Then the document should be stored on the receiving side", func() {
				got, ok, err := remote.Get(ctx, path)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(string(got.Data), ShouldEqual, `{"current_week_data":[]}`)
			})

			Convey("Then a redelivery should be ignored", func() {
				So(receiver.handle(msg), ShouldBeNil)
				got, _, _ := remote.Get(ctx, path)
				So(got.Version, ShouldEqual, 1)
			})
		})

		Convey("When the sender receives its own message", func() {
			So(sender.handle(msg), ShouldBeNil)

			Convey("Then it should not write again", func() {
				got, _, _ := local.Get(ctx, path)
				So(got.Version, ShouldEqual, 1)
			})
		})

		Convey("When the message is malformed", func() {
			err := receiver.handle([]byte(`{"id":""}`))
			err2 := receiver.handle([]byte(`not json`))

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, ErrBadEnvelope), ShouldBeTrue)
				So(errors.Is(err2, ErrBadEnvelope), ShouldBeTrue)
			})
		})
	})
}

func TestReplicatorWithoutConnection(t *testing.T) {
	Convey("Given a replicator that never connected", t, func() {
		r := New("app-1", docstore.NewMemoryStore())

		Convey("Then publishing should fail and closing should be a no-op", func() {
			err := r.Publish("kpi_dashboard", docstore.Document{Path: "p", Data: json.RawMessage(`{}`), UpdatedAt: time.Now()})
			So(errors.Is(err, ErrNotConnected), ShouldBeTrue)
			So(r.Close(), ShouldBeNil)
			So(r.Subject("kpi_dashboard"), ShouldEqual, "recruitdash.app-1.kpi_dashboard")
			So(r.Origin(), ShouldNotBeEmpty)
		})
	})
}
