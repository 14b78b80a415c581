// Package service is the dashboard application: it signs the session in,
// keeps both topic streams running, owns the team model and exposes the
// read models and edit operations used by the HTTP layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mployhr/recruitdash/internal/domain/model"
	"github.com/mployhr/recruitdash/internal/domain/scoring"
	"github.com/mployhr/recruitdash/internal/domain/team"
	"github.com/mployhr/recruitdash/internal/domain/types"
	"github.com/mployhr/recruitdash/internal/gateway"
	"github.com/mployhr/recruitdash/internal/identity"
	"github.com/mployhr/recruitdash/pkg/logger"
	"github.com/mployhr/recruitdash/pkg/metrics"
)

const defaultChangeBuffer = 16

// Dataset names used in change notices and metrics.
const (
	DatasetKPI         = "kpi"
	DatasetNewStarters = "new_starters"
)

// Change tells listeners that a topic's local state moved.
type Change struct {
	Topic   gateway.Topic `json:"topic"`
	Version int64         `json:"version"`
	Local   bool          `json:"local"`
}

// TopicState is the load status of one topic.
type TopicState struct {
	Loaded    bool      `json:"loaded"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// State is what the page needs before rendering data.
type State struct {
	Loading   bool                  `json:"loading"`
	Error     string                `json:"error,omitempty"`
	UserID    string                `json:"userId,omitempty"`
	Anonymous bool                  `json:"anonymous"`
	Topics    map[string]TopicState `json:"topics"`
}

// Service implements the API dependencies for the dashboard.
type Service struct {
	mu sync.RWMutex

	gateway  *gateway.Gateway
	identity identity.Provider
	team     *team.Model

	roster       []string
	changeBuffer int

	session  *identity.Session
	fatalErr string
	topics   map[gateway.Topic]*TopicState
	streams  []*gateway.Stream

	writeFailures int
	lastWriteErr  string

	listeners map[chan Change]struct{}

	group   *errgroup.Group
	cancel  context.CancelFunc
	started bool

	logger logger.Logger
}

// New constructs a Service over gw that signs in through provider.
func New(gw *gateway.Gateway, provider identity.Provider, opts ...Option) *Service {
	s := &Service{
		gateway:      gw,
		identity:     provider,
		roster:       append([]string(nil), model.DefaultTeam...),
		changeBuffer: defaultChangeBuffer,
		topics:       make(map[gateway.Topic]*TopicState),
		listeners:    make(map[chan Change]struct{}),
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.team = team.New(s.roster)
	for _, t := range gateway.Topics() {
		s.topics[t] = &TopicState{}
	}
	return s
}

// Start signs in and subscribes to both topics. A sign-in failure is
// returned and also kept as the page error. A failing topic is recorded
// against that topic only; the other keeps loading.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting dashboard service...")

	session, err := s.identity.SignIn(ctx)
	if err != nil {
		s.fatalErr = "Failed to sign in: " + err.Error()
		s.logger.Error(ctx, "sign-in failed", logger.Error(err))
		return fmt.Errorf("start: %w", err)
	}
	s.session = &session
	s.logger.Info(ctx, "signed in",
		logger.String("userId", session.UserID),
		logger.Bool("anonymous", session.Anonymous),
	)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.gateway.Start(context.WithoutCancel(ctx))

	group, gctx := errgroup.WithContext(runCtx)
	s.group = group
	group.Go(func() error {
		s.drainWriteErrors(gctx)
		return nil
	})

	for _, t := range gateway.Topics() {
		stream, err := s.gateway.Subscribe(runCtx, t)
		if err != nil {
			metrics.RecordSubscriptionError(string(t))
			s.failTopicLocked(t, err)
			continue
		}
		s.streams = append(s.streams, stream)
		group.Go(func() error {
			s.consume(gctx, stream)
			return nil
		})
	}

	s.started = true
	s.logger.Info(ctx, "dashboard service started",
		logger.String("appId", s.gateway.AppID()),
		logger.Int("members", len(s.roster)),
	)
	return nil
}

// Stop closes both streams, waits for pending writes and stops background work.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	streams := s.streams
	s.streams = nil
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping dashboard service...")
	for _, st := range streams {
		st.Close()
	}
	err := s.gateway.Close(ctx)
	s.cancel()
	_ = s.group.Wait()

	s.mu.Lock()
	for ch := range s.listeners {
		delete(s.listeners, ch)
		close(ch)
	}
	s.mu.Unlock()

	s.logger.Info(ctx, "dashboard service stopped")
	if err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	return nil
}

// consume applies every snapshot of one topic until the stream ends.
func (s *Service) consume(ctx context.Context, stream *gateway.Stream) {
	t := stream.Topic()
	log := s.logger.Named(string(t))

	for snap := range stream.C() {
		if !snap.Exists {
			if _, err := s.gateway.EnsureDefault(ctx, t, s.defaultDocument(t)); err != nil {
				log.Error(ctx, "creating default document failed", logger.Error(err))
				s.failTopic(t, err)
				continue
			}
			s.markLoaded(t, snap)
			continue
		}
		if err := s.apply(snap); err != nil {
			log.Warn(ctx, "snapshot rejected", logger.Error(err))
			// a bad first snapshot would otherwise leave the page loading forever
			if !s.loaded(t) {
				s.failTopic(t, err)
			}
			continue
		}
		s.markLoaded(t, snap)
		s.notify(Change{Topic: t, Version: snap.Version})
	}

	if err := stream.Err(); err != nil {
		log.Error(ctx, "subscription failed", logger.Error(err))
		s.failTopic(t, err)
	}
}

func (s *Service) apply(snap gateway.Snapshot) error {
	switch snap.Topic {
	case gateway.TopicKPI:
		var doc model.KPIDocument
		if err := snap.Decode(&doc); err != nil {
			return err
		}
		s.team.ReplaceKPI(doc)
		s.publishScores()
	case gateway.TopicNewStarters:
		var doc model.NewStartersDocument
		if err := snap.Decode(&doc); err != nil {
			return err
		}
		s.team.ReplaceNewStarters(doc)
		s.publishRates()
	}
	return nil
}

func (s *Service) defaultDocument(t gateway.Topic) any {
	if t == gateway.TopicKPI {
		return model.DefaultKPIDocument(s.roster)
	}
	return model.DefaultNewStartersDocument(s.roster)
}

func (s *Service) drainWriteErrors(ctx context.Context) {
	for err := range s.gateway.Errors() {
		s.logger.Error(ctx, "document write failed", logger.Error(err))
		s.mu.Lock()
		s.writeFailures++
		s.lastWriteErr = err.Error()
		s.mu.Unlock()
	}
}

func (s *Service) markLoaded(t gateway.Topic, snap gateway.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.topics[t]
	st.Loaded = true
	if snap.Exists {
		st.Version = snap.Version
		st.UpdatedAt = snap.UpdatedAt
	}
}

func (s *Service) loaded(t gateway.Topic) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topics[t].Loaded
}

func (s *Service) failTopic(t gateway.Topic, err error) {
	s.mu.Lock()
	s.failTopicLocked(t, err)
	s.mu.Unlock()
	s.notify(Change{Topic: t})
}

func (s *Service) failTopicLocked(t gateway.Topic, err error) {
	s.topics[t].Error = fmt.Sprintf("Failed to fetch %s data: %v", topicTitle(t), err)
}

func topicTitle(t gateway.Topic) string {
	if t == gateway.TopicKPI {
		return "KPI dashboard"
	}
	return "New Starters dashboard"
}

// State reports loading, the page error and the session user.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{
		Error:  s.fatalErr,
		Topics: make(map[string]TopicState, len(s.topics)),
	}
	if s.session != nil {
		st.UserID = s.session.UserID
		st.Anonymous = s.session.Anonymous
	}
	for _, t := range gateway.Topics() {
		ts := *s.topics[t]
		st.Topics[string(t)] = ts
		if !ts.Loaded && ts.Error == "" && st.Error == "" {
			st.Loading = true
		}
		if st.Error == "" && ts.Error != "" {
			st.Error = ts.Error
		}
	}
	return st
}

// Session returns the signed-in session, if any.
func (s *Service) Session() (identity.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return identity.Session{}, false
	}
	return *s.session, true
}

// Roster returns the member names.
func (s *Service) Roster() []string { return s.team.Roster() }

// Current returns the current-week records.
func (s *Service) Current() []model.MemberKPI { return s.team.Current() }

// Previous returns the previous-week records.
func (s *Service) Previous() []model.MemberKPI { return s.team.Previous() }

// NewStarters returns the new-starter records.
func (s *Service) NewStarters() []model.MemberNewStarters { return s.team.NewStarters() }

// KPICards returns one card per member with status and trend per KPI.
func (s *Service) KPICards() []types.KPICard {
	return types.NewKPICards(s.team.Current(), s.team.Previous())
}

// Leaderboard ranks the current week by composite score.
func (s *Service) Leaderboard() []types.Entry {
	return types.NewLeaderboard(s.team.Current())
}

// StarterCards returns fallout rate and severity per member.
func (s *Service) StarterCards() []types.StarterCard {
	return types.NewStarterCards(s.team.NewStarters())
}

// ApplyKPIEdit updates the local current week only. Nothing is written
// until CommitKPI.
func (s *Service) ApplyKPIEdit(_ context.Context, name, field, raw string) error {
	f, err := model.ParseKPIField(field)
	if err != nil {
		return err
	}
	if !s.team.ApplyKPIEdit(name, f, raw) {
		return fmt.Errorf("%w: %q", ErrUnknownMember, name)
	}
	metrics.RecordEdit(DatasetKPI)
	s.publishScores()
	s.notify(Change{Topic: gateway.TopicKPI, Local: true})
	return nil
}

// ApplyNewStarterEdit updates the local new-starter list only.
func (s *Service) ApplyNewStarterEdit(_ context.Context, name, field, raw string) error {
	f, err := model.ParseStarterField(field)
	if err != nil {
		return err
	}
	if !s.team.ApplyNewStarterEdit(name, f, raw) {
		return fmt.Errorf("%w: %q", ErrUnknownMember, name)
	}
	metrics.RecordEdit(DatasetNewStarters)
	s.publishRates()
	s.notify(Change{Topic: gateway.TopicNewStarters, Local: true})
	return nil
}

// CommitKPI writes the local current week. Only current_week_data is
// updated, so a previous week written by another client is not clobbered.
// The write is fire-and-forget: a failure is logged and counted, and the
// local edit is kept.
func (s *Service) CommitKPI(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.gateway.Update(ctx, gateway.TopicKPI, struct {
		CurrentWeek []model.MemberKPI `json:"current_week_data"`
	}{s.team.Current()})
	return nil
}

// CommitNewStarters writes the local new-starter team.
func (s *Service) CommitNewStarters(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.gateway.Update(ctx, gateway.TopicNewStarters, s.team.NewStartersDocument())
	return nil
}

// RollOver starts a new week: the current week becomes the previous one
// and the current week is zeroed, locally and in the store.
func (s *Service) RollOver(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	doc := s.team.KPIDocument().RollOver()
	s.team.ReplaceKPI(doc)
	s.publishScores()
	s.notify(Change{Topic: gateway.TopicKPI, Local: true})
	s.gateway.Write(ctx, gateway.TopicKPI, doc)
	s.logger.Info(ctx, "week rolled over", logger.Int("members", len(doc.CurrentWeek)))
	return nil
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return ErrNotSignedIn
	}
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// Changes returns a channel of change notices and a func to stop them.
// Notices are dropped for a listener that falls behind.
func (s *Service) Changes() (<-chan Change, func()) {
	ch := make(chan Change, s.changeBuffer)
	s.mu.Lock()
	s.listeners[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.listeners[ch]; ok {
				delete(s.listeners, ch)
				close(ch)
			}
		})
	}
}

func (s *Service) notify(c Change) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.listeners {
		select {
		case ch <- c:
		default:
		}
	}
}

func (s *Service) publishScores() {
	for _, m := range s.team.Current() {
		metrics.UpdateCompositeScore(m.Name, scoring.CompositeScore(m))
	}
}

func (s *Service) publishRates() {
	for _, m := range s.team.NewStarters() {
		metrics.UpdateFalloutRate(m.Name, scoring.FalloutRate(m.NewStarters, m.FallOuts))
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topics := make(map[string]interface{}, len(s.topics))
	for t, st := range s.topics {
		topics[string(t)] = map[string]interface{}{
			"loaded":  st.Loaded,
			"version": st.Version,
			"error":   st.Error,
		}
	}
	stats := map[string]interface{}{
		"started":       s.started,
		"appId":         s.gateway.AppID(),
		"members":       len(s.roster),
		"topics":        topics,
		"writeFailures": s.writeFailures,
		"liveListeners": len(s.listeners),
	}
	if s.lastWriteErr != "" {
		stats["lastWriteError"] = s.lastWriteErr
	}
	return stats
}

// IsNotFound reports whether err means the requested member or field does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownMember) || errors.Is(err, model.ErrUnknownField)
}
