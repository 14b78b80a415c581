package view

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	service "github.com/mployhr/recruitdash/internal/app"
	"github.com/mployhr/recruitdash/internal/domain/model"
	"github.com/mployhr/recruitdash/internal/domain/scoring"
	"github.com/mployhr/recruitdash/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type stubDeps struct {
	state service.State
}

func (s *stubDeps) State() service.State { return s.state }

func (s *stubDeps) KPICards() []types.KPICard {
	return []types.KPICard{{
		Name:  "Cath",
		Score: 90,
		Cells: []types.KPICell{{
			Field:       model.ZoomInterviews,
			Label:       "Zoom Interviews",
			Value:       12,
			TargetLabel: model.ZoomInterviews.TargetLabel(),
			Status:      scoring.StatusWarn,
			Trend:       scoring.TrendUp,
		}},
	}}
}

func (s *stubDeps) Leaderboard() []types.Entry {
	return []types.Entry{
		{Rank: 1, Name: "Cath", Score: 90.4, Display: 90, Podium: true},
		{Rank: 2, Name: "<Dave>", Score: 10, Display: 10, Podium: true},
	}
}

func (s *stubDeps) StarterCards() []types.StarterCard {
	return []types.StarterCard{{Name: "Cath", NewStarters: 8, FallOuts: 1, Rate: 12.5, Severity: scoring.StatusWarn}}
}

func get(mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestDashboardPage(t *testing.T) {
	Convey("Given a registered dashboard", t, func() {
		deps := &stubDeps{state: service.State{UserID: "user-42"}}
		mux := http.NewServeMux()
		Register(context.Background(), mux, NewHandler(deps))

		Convey("When the KPI tab is rendered", func() {
			w := get(mux, "/")
			body := w.Body.String()

			Convey("Then the page carries both tabs, the user and the cards", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
				So(body, ShouldContainSubstring, "Weekly KPI Dashboard")
				So(body, ShouldContainSubstring, "New Starters Dashboard")
				So(body, ShouldContainSubstring, "user-42")
				So(body, ShouldContainSubstring, `data-field="zoomInterviews"`)
				So(body, ShouldContainSubstring, `value="12"`)
				So(body, ShouldContainSubstring, "dot dot-warn")
				So(body, ShouldContainSubstring, "trend-up")
			})

			Convey("Then the leaderboard shows percentages, the podium and escaped names", func() {
				So(body, ShouldContainSubstring, "90%")
				So(body, ShouldContainSubstring, "place place-1")
				So(body, ShouldContainSubstring, "medal medal-gold")
				So(body, ShouldContainSubstring, "&lt;Dave&gt;")
				So(body, ShouldNotContainSubstring, "<Dave>")
			})
		})

		Convey("When the new starters tab is rendered", func() {
			body := get(mux, "/?tab=new-starters").Body.String()

			Convey("Then the rate has one decimal and a severity colour", func() {
				So(body, ShouldContainSubstring, "12.5%")
				So(body, ShouldContainSubstring, "rate rate-warn")
				So(body, ShouldContainSubstring, "<strong>30 days</strong>")
				So(body, ShouldNotContainSubstring, "Leaderboard</h2>")
			})
		})

		Convey("When data is still loading", func() {
			deps.state.Loading = true
			body := get(mux, "/partial").Body.String()

			Convey("Then only the loading indicator is drawn", func() {
				So(body, ShouldContainSubstring, "Loading dashboard data...")
				So(body, ShouldContainSubstring, `data-loading="true"`)
				So(body, ShouldNotContainSubstring, "data-field")
			})
		})

		Convey("When a topic failed", func() {
			deps.state.Error = "Failed to fetch KPI dashboard data: boom"
			body := get(mux, "/partial?tab=kpis").Body.String()

			Convey("Then the error banner replaces the data", func() {
				So(body, ShouldContainSubstring, `role="alert"`)
				So(body, ShouldContainSubstring, "Failed to fetch KPI dashboard data: boom")
				So(body, ShouldNotContainSubstring, "Leaderboard")
			})
		})

		Convey("When assets are requested", func() {
			So(get(mux, "/static/app.js").Code, ShouldEqual, http.StatusOK)
			So(get(mux, "/static/style.css").Code, ShouldEqual, http.StatusOK)
		})

		Convey("When an unknown path is requested", func() {
			So(get(mux, "/nope").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the page is posted to", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")))
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestTemplateHelpers(t *testing.T) {
	Convey("Given the template helpers", t, func() {
		So(ParseTab("new-starters"), ShouldEqual, TabNewStarters)
		So(ParseTab("bogus"), ShouldEqual, TabKPI)
		So(string(trendIcon(scoring.TrendUnknown)), ShouldEqual, "")
		So(string(trendIcon(scoring.TrendFlat)), ShouldContainSubstring, "trend-flat")
		So(placeClass(4), ShouldEqual, "place")
		So(statusClass(scoring.StatusBad), ShouldEqual, "dot dot-bad")
		So(funcs["rate"].(func(float64) string)(20), ShouldEqual, "20.0%")
	})
}

func TestRegisterWithNilMux(t *testing.T) {
	Convey("Given a nil mux", t, func() {
		So(func() { Register(context.Background(), nil, NewHandler(&stubDeps{})) }, ShouldPanic)
	})
}
