package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mployhr/recruitdash/internal/adapters/http/api"
	service "github.com/mployhr/recruitdash/internal/app"
	"github.com/mployhr/recruitdash/internal/domain/model"
	"github.com/mployhr/recruitdash/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type editCall struct {
	Name, Field, Raw string
}

// Mock implementations for testing
type mockDependencies struct {
	state       service.State
	kpiCards    []types.KPICard
	starters    []types.StarterCard
	leaderboard []types.Entry

	kpiEdits     []editCall
	starterEdits []editCall
	commitsKPI   int
	commitsNS    int
	rollovers    int

	editErr   error
	commitErr error
}

func (m *mockDependencies) State() service.State              { return m.state }
func (m *mockDependencies) KPICards() []types.KPICard         { return m.kpiCards }
func (m *mockDependencies) StarterCards() []types.StarterCard { return m.starters }
func (m *mockDependencies) Leaderboard() []types.Entry        { return m.leaderboard }

func (m *mockDependencies) ApplyKPIEdit(_ context.Context, name, field, raw string) error {
	if m.editErr != nil {
		return m.editErr
	}
	if _, err := model.ParseKPIField(field); err != nil {
		return err
	}
	m.kpiEdits = append(m.kpiEdits, editCall{name, field, raw})
	return nil
}

func (m *mockDependencies) ApplyNewStarterEdit(_ context.Context, name, field, raw string) error {
	if m.editErr != nil {
		return m.editErr
	}
	if _, err := model.ParseStarterField(field); err != nil {
		return err
	}
	m.starterEdits = append(m.starterEdits, editCall{name, field, raw})
	return nil
}

func (m *mockDependencies) CommitKPI(context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.commitsKPI++
	return nil
}

func (m *mockDependencies) CommitNewStarters(context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.commitsNS++
	return nil
}

func (m *mockDependencies) RollOver(context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.rollovers++
	return nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps *mockDependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"members": 5}}).Register(context.Background(), mux)
	return mux
}

func serve(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func sampleBoard() []types.Entry {
	return []types.Entry{
		{Rank: 1, Name: "Cath", Score: 90.5, Display: 91, Podium: true},
		{Rank: 2, Name: "Dave", Score: 70, Display: 70, Podium: true},
		{Rank: 3, Name: "Ella Mae", Score: 50, Display: 50, Podium: true},
		{Rank: 4, Name: "Fred", Score: 10, Display: 10},
	}
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{
			state: service.State{
				UserID: "user-1",
				Topics: map[string]service.TopicState{"kpi_dashboard": {Loaded: true, Version: 3}},
			},
			kpiCards:    []types.KPICard{{Name: "Cath", Score: 90.5}},
			starters:    []types.StarterCard{{Name: "Cath", NewStarters: 8, FallOuts: 1, Rate: 12.5}},
			leaderboard: sampleBoard(),
		}
		mux := newMux(deps)

		Convey("Then the health endpoint serves metrics", func() {
			w := serve(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the stats endpoint returns the provider's map", func() {
			w := serve(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"members":5`)
		})

		Convey("Then the session endpoint returns the user id", func() {
			w := serve(mux, http.MethodGet, "/api/session", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var got map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(got["userId"], ShouldEqual, "user-1")
			So(got["anonymous"], ShouldEqual, false)
		})

		Convey("Then the session endpoint is unavailable before sign-in", func() {
			deps.state.UserID = ""
			w := serve(mux, http.MethodGet, "/api/session", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("Then the state endpoint reports topic progress", func() {
			w := serve(mux, http.MethodGet, "/api/state", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"kpi_dashboard"`)
			So(w.Body.String(), ShouldContainSubstring, `"version":3`)
		})

		Convey("Then the KPI and new starter cards are served", func() {
			w := serve(mux, http.MethodGet, "/api/kpi", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"name":"Cath"`)

			w = serve(mux, http.MethodGet, "/api/new-starters", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"falloutRate":12.5`)
		})

		Convey("Then read endpoints reject other methods", func() {
			w := serve(mux, http.MethodPost, "/api/kpi", "{}")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(w.Header().Get("Allow"), ShouldEqual, http.MethodGet)
		})

		Convey("Then unknown paths are not found", func() {
			w := serve(mux, http.MethodGet, "/unknown", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestEditEndpoints(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When a KPI edit arrives without commit", func() {
			w := serve(mux, http.MethodPost, "/api/kpi/edit", `{"name":"Cath","field":"zoomInterviews","value":"12"}`)

			Convey("Then it is applied but not committed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.kpiEdits, ShouldResemble, []editCall{{"Cath", "zoomInterviews", "12"}})
				So(deps.commitsKPI, ShouldEqual, 0)
			})
		})

		Convey("When a KPI edit arrives with commit and a numeric value", func() {
			w := serve(mux, http.MethodPost, "/api/kpi/edit", `{"name":"Cath","field":"leadGeneration","value":7,"commit":true}`)

			Convey("Then it is applied and committed", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(deps.kpiEdits[0].Raw, ShouldEqual, "7")
				So(deps.commitsKPI, ShouldEqual, 1)
			})
		})

		Convey("When a null value arrives", func() {
			w := serve(mux, http.MethodPost, "/api/kpi/edit", `{"name":"Cath","field":"leadGeneration","value":null}`)

			Convey("Then the raw text is empty", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.kpiEdits[0].Raw, ShouldEqual, "")
			})
		})

		Convey("When the body is malformed", func() {
			w := serve(mux, http.MethodPost, "/api/kpi/edit", `{"name":`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the name is missing", func() {
			w := serve(mux, http.MethodPost, "/api/kpi/edit", `{"field":"zoomInterviews","value":"1"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "missing name")
		})

		Convey("When the field is unknown", func() {
			w := serve(mux, http.MethodPost, "/api/kpi/edit", `{"name":"Cath","field":"coffee","value":"1"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the member is unknown", func() {
			deps.editErr = fmt.Errorf("%w: Zed", service.ErrUnknownMember)
			w := serve(mux, http.MethodPost, "/api/kpi/edit", `{"name":"Zed","field":"zoomInterviews","value":"1"}`)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the session is not ready", func() {
			deps.commitErr = service.ErrNotSignedIn
			w := serve(mux, http.MethodPost, "/api/kpi/commit", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When the store fails", func() {
			deps.commitErr = errors.New("boom")
			w := serve(mux, http.MethodPost, "/api/new-starters/commit", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("When a new starter edit arrives with commit", func() {
			w := serve(mux, http.MethodPost, "/api/new-starters/edit", `{"name":"Dave","field":"fallOuts","value":"2","commit":true}`)

			Convey("Then it is applied and committed", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(deps.starterEdits, ShouldResemble, []editCall{{"Dave", "fallOuts", "2"}})
				So(deps.commitsNS, ShouldEqual, 1)
			})
		})

		Convey("When a week is rolled over", func() {
			w := serve(mux, http.MethodPost, "/api/kpi/rollover", "")
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(deps.rollovers, ShouldEqual, 1)
		})

		Convey("When an edit uses GET", func() {
			w := serve(mux, http.MethodGet, "/api/kpi/edit", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestLeaderboardEndpoints(t *testing.T) {
	Convey("Given a leaderboard of four members", t, func() {
		mux := newMux(&mockDependencies{leaderboard: sampleBoard()})

		Convey("When requesting the full board", func() {
			w := serve(mux, http.MethodGet, "/api/leaderboard", "")
			var got []types.Entry
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(len(got), ShouldEqual, 4)
			So(got[0].Name, ShouldEqual, "Cath")
			So(got[0].Podium, ShouldBeTrue)
		})

		Convey("When requesting a limit", func() {
			w := serve(mux, http.MethodGet, "/api/leaderboard?limit=2", "")
			var got []types.Entry
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(len(got), ShouldEqual, 2)
		})

		Convey("When the limit is invalid", func() {
			w := serve(mux, http.MethodGet, "/api/leaderboard?limit=zero", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When requesting a member with an escaped name", func() {
			w := serve(mux, http.MethodGet, "/api/leaderboard/Ella%20Mae", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var got types.Entry
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(got.Rank, ShouldEqual, 3)
		})

		Convey("When requesting an unknown member", func() {
			w := serve(mux, http.MethodGet, "/api/leaderboard/Zed", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}
