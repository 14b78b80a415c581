package editsim

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mployhr/recruitdash/internal/adapters/docstore"
	"github.com/mployhr/recruitdash/internal/adapters/http/api"
	service "github.com/mployhr/recruitdash/internal/app"
	"github.com/mployhr/recruitdash/internal/gateway"
	"github.com/mployhr/recruitdash/internal/identity"
	"github.com/mployhr/recruitdash/pkg/logger"
)

func init() {
	_ = logger.Init(logger.WithWriter(io.Discard))
}

func startDashboard(t *testing.T) (*httptest.Server, func()) {
	t.Helper()
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	gw := gateway.New(store, gateway.WithAppID("sim"))
	svc := service.New(gw, identity.NewTokenProvider(identity.NewSigner("k"), ""),
		service.WithRoster([]string{"Cath", "Dave", "Ella Mae", "Fred"}))
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(ctx, mux)
	srv := httptest.NewServer(mux)
	return srv, func() {
		srv.Close()
		_ = svc.Stop(ctx)
		_ = store.Close()
	}
}

func TestRunAgainstLiveServer(t *testing.T) {
	Convey("Given a dashboard served over HTTP", t, func() {
		srv, stop := startDashboard(t)
		defer stop()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		out := filepath.Join(t.TempDir(), "edits.json")
		cfg := &Config{
			BaseURL:    srv.URL,
			NumEdits:   40,
			Workers:    2,
			Timeout:    5 * time.Second,
			Settle:     300 * time.Millisecond,
			NonNumeric: 0.2,
			StarterMix: 0.25,
			OutputFile: out,
		}

		Convey("When the simulation runs", func() {
			stats, err := Run(ctx, cfg)

			Convey("Then every edit is committed and the leaderboard checks out", func() {
				So(err, ShouldBeNil)
				So(stats.EditsGenerated, ShouldEqual, 40)
				So(stats.EditsCommitted, ShouldEqual, 40)
				So(stats.EditsFailed, ShouldEqual, 0)
				So(stats.LeaderboardEntries, ShouldEqual, 4)
				So(stats.RanksRetrieved, ShouldEqual, 4)
				So(out, ShouldNotBeBlank)
			})
		})
	})
}

func TestPartition(t *testing.T) {
	Convey("Given edits for three members", t, func() {
		edits := []Edit{
			{Name: "a", Value: "1"}, {Name: "b", Value: "2"}, {Name: "a", Value: "3"},
			{Name: "c", Value: "4"}, {Name: "b", Value: "5"},
		}

		Convey("When split over two workers", func() {
			parts := partition(edits, 2)

			Convey("Then a member's edits stay together and in order", func() {
				So(len(parts), ShouldEqual, 2)
				So(parts[0], ShouldResemble, []Edit{
					{Name: "a", Value: "1"}, {Name: "a", Value: "3"}, {Name: "c", Value: "4"},
				})
				So(parts[1], ShouldResemble, []Edit{{Name: "b", Value: "2"}, {Name: "b", Value: "5"}})
			})
		})

		Convey("When no worker count is given", func() {
			So(len(partition(edits, 0)), ShouldEqual, 1)
		})
	})
}

func card(name string, values map[string]int) Card {
	c := Card{Name: name}
	for f, v := range values {
		c.Cells = append(c.Cells, struct {
			Field string `json:"field"`
			Value int    `json:"value"`
		}{Field: f, Value: v})
	}
	return c
}

func TestVerifyLeaderboard(t *testing.T) {
	Convey("Given two cards", t, func() {
		cards := []Card{
			card("low", map[string]int{"applicationScreening": 9}),
			card("high", map[string]int{"zoomInterviews": 15, "profileCreation": 100}),
		}
		good := []Entry{
			{Rank: 1, Name: "high", Score: 60, Display: 60, Podium: true},
			{Rank: 2, Name: "low", Score: 0, Display: 0, Podium: true},
		}

		Convey("Then the matching leaderboard passes", func() {
			So(verifyLeaderboard(cards, good, map[string]Entry{"high": good[0]}), ShouldBeNil)
		})

		Convey("Then a swapped leaderboard fails", func() {
			bad := []Entry{
				{Rank: 1, Name: "low", Score: 60, Podium: true},
				{Rank: 2, Name: "high", Score: 60, Podium: true},
			}
			So(verifyLeaderboard(cards, bad, nil), ShouldNotBeNil)
		})

		Convey("Then a disagreeing rank lookup fails", func() {
			So(verifyLeaderboard(cards, good, map[string]Entry{"low": good[0]}), ShouldNotBeNil)
		})
	})
}

func TestCountOverwritten(t *testing.T) {
	Convey("Given edits and the cards read back", t, func() {
		edits := []Edit{
			{Dataset: DatasetKPI, Name: "a", Field: "zoomInterviews", Value: "3"},
			{Dataset: DatasetKPI, Name: "a", Field: "zoomInterviews", Value: "12abc"},
			{Dataset: DatasetKPI, Name: "a", Field: "leadGeneration", Value: "x"},
			{Dataset: DatasetNewStarters, Name: "a", Field: "fallOuts", Value: "2"},
		}

		Convey("Then matching values count as kept", func() {
			cards := []Card{card("a", map[string]int{"zoomInterviews": 12, "leadGeneration": 0})}
			So(countOverwritten(edits, cards), ShouldEqual, 0)
		})

		Convey("Then a stale value counts as overwritten", func() {
			cards := []Card{card("a", map[string]int{"zoomInterviews": 3, "leadGeneration": 0})}
			So(countOverwritten(edits, cards), ShouldEqual, 1)
		})
	})
}
