package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/scorekeeper/models"
	"github.com/Dosada05/scorekeeper/repositories"
	"github.com/Dosada05/scorekeeper/storage"
	"github.com/google/uuid"
)

// memStore backs every fake repository so joins across tables behave like the database.
type memStore struct {
	mu           sync.Mutex
	players      map[uuid.UUID]*models.Player
	sessions     map[uuid.UUID]*models.GameSession
	participants []*models.GameParticipant
	rounds       []*models.RoundRecord
	winners      []*models.SessionWinner
	logs         []*models.GameLog

	// createBatchErr makes the next participant CreateBatch fail.
	createBatchErr error
}

func newMemStore() *memStore {
	return &memStore{
		players:  make(map[uuid.UUID]*models.Player),
		sessions: make(map[uuid.UUID]*models.GameSession),
	}
}

// fakeTransactor serializes transactions and, when it has a store, restores
// the store's contents if fn fails or panics.
type fakeTransactor struct {
	mu    sync.Mutex
	store *memStore
}

func (t *fakeTransactor) WithinTx(_ context.Context, fn func(exec repositories.SQLExecutor) error) (err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.store == nil {
		return fn(nil)
	}

	snap := t.store.snapshot()
	defer func() {
		if p := recover(); p != nil {
			t.store.restore(snap)
			panic(p)
		}
		if err != nil {
			t.store.restore(snap)
		}
	}()
	return fn(nil)
}

func (s *memStore) snapshot() *memStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := newMemStore()
	for id, p := range s.players {
		v := *p
		cp.players[id] = &v
	}
	for id, gs := range s.sessions {
		v := *gs
		cp.sessions[id] = &v
	}
	for _, gp := range s.participants {
		v := *gp
		cp.participants = append(cp.participants, &v)
	}
	for _, r := range s.rounds {
		v := *r
		cp.rounds = append(cp.rounds, &v)
	}
	for _, w := range s.winners {
		v := *w
		cp.winners = append(cp.winners, &v)
	}
	for _, l := range s.logs {
		v := *l
		cp.logs = append(cp.logs, &v)
	}
	return cp
}

func (s *memStore) restore(from *memStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players = from.players
	s.sessions = from.sessions
	s.participants = from.participants
	s.rounds = from.rounds
	s.winners = from.winners
	s.logs = from.logs
}

// players

type fakePlayerRepo struct{ s *memStore }

func (r fakePlayerRepo) Create(_ context.Context, _ repositories.SQLExecutor, p *models.Player) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.players {
		if other.Group == p.Group && strings.EqualFold(other.Name, p.Name) {
			return repositories.ErrPlayerNameConflict
		}
	}
	cp := *p
	r.s.players[p.ID] = &cp
	return nil
}

func (r fakePlayerRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, group models.GroupKey, id uuid.UUID) (*models.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.players[id]
	if !ok || p.Group != group {
		return nil, repositories.ErrPlayerNotFound
	}
	cp := *p
	return &cp, nil
}

func (r fakePlayerRepo) Update(_ context.Context, _ repositories.SQLExecutor, p *models.Player) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.players[p.ID]
	if !ok || existing.Group != p.Group {
		return repositories.ErrPlayerNotFound
	}
	cp := *p
	r.s.players[p.ID] = &cp
	return nil
}

func (r fakePlayerRepo) Delete(_ context.Context, _ repositories.SQLExecutor, group models.GroupKey, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.players[id]
	if !ok || p.Group != group {
		return repositories.ErrPlayerNotFound
	}
	delete(r.s.players, id)
	return nil
}

func (r fakePlayerRepo) ExistsByName(_ context.Context, _ repositories.SQLExecutor, group models.GroupKey, name string, excludeID *uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.players {
		if excludeID != nil && p.ID == *excludeID {
			continue
		}
		if p.Group == group && strings.EqualFold(p.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (r fakePlayerRepo) sorted(group models.GroupKey, keep func(*models.Player) bool) []models.Player {
	out := make([]models.Player, 0)
	for _, p := range r.s.players {
		if p.Group == group && keep(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r fakePlayerRepo) List(_ context.Context, _ repositories.SQLExecutor, group models.GroupKey, filter repositories.PlayerFilter) ([]models.Player, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	needle := strings.ToLower(filter.NameContains)
	all := r.sorted(group, func(p *models.Player) bool {
		return strings.Contains(strings.ToLower(p.Name), needle)
	})
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if filter.Offset >= len(all) {
		return []models.Player{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[filter.Offset:end], total, nil
}

func (r fakePlayerRepo) ListActiveByIDs(_ context.Context, _ repositories.SQLExecutor, group models.GroupKey, ids []uuid.UUID) ([]models.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	return r.sorted(group, func(p *models.Player) bool {
		return wanted[p.ID] && p.Status == models.PlayerStatusActive
	}), nil
}

func (r fakePlayerRepo) ListAvailableForSession(_ context.Context, _ repositories.SQLExecutor, group models.GroupKey, sessionID uuid.UUID) ([]models.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	joined := make(map[uuid.UUID]bool)
	for _, gp := range r.s.participants {
		if gp.SessionID == sessionID {
			joined[gp.PlayerID] = true
		}
	}
	out := r.sorted(group, func(p *models.Player) bool {
		return p.Status == models.PlayerStatusActive && !joined[p.ID]
	})
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

// sessions

type fakeSessionRepo struct{ s *memStore }

func (r fakeSessionRepo) Create(_ context.Context, _ repositories.SQLExecutor, gs *models.GameSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.sessions {
		if other.Group == gs.Group && other.Status == models.SessionStatusOngoing && gs.Status == models.SessionStatusOngoing {
			return repositories.ErrSessionConflict
		}
	}
	cp := *gs
	r.s.sessions[gs.ID] = &cp
	return nil
}

func (r fakeSessionRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, group models.GroupKey, id uuid.UUID) (*models.GameSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	gs, ok := r.s.sessions[id]
	if !ok || gs.Group != group {
		return nil, repositories.ErrSessionNotFound
	}
	cp := *gs
	return &cp, nil
}

func (r fakeSessionRepo) GetOngoing(_ context.Context, _ repositories.SQLExecutor, group models.GroupKey) (*models.GameSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, gs := range r.s.sessions {
		if gs.Group == group && gs.Status == models.SessionStatusOngoing {
			cp := *gs
			return &cp, nil
		}
	}
	return nil, repositories.ErrSessionNotFound
}

func (r fakeSessionRepo) LockOngoing(ctx context.Context, exec repositories.SQLExecutor, group models.GroupKey) (*models.GameSession, error) {
	return r.GetOngoing(ctx, exec, group)
}

func (r fakeSessionRepo) LockByID(ctx context.Context, exec repositories.SQLExecutor, group models.GroupKey, id uuid.UUID) (*models.GameSession, error) {
	return r.GetByID(ctx, exec, group, id)
}

func (r fakeSessionRepo) Finish(_ context.Context, _ repositories.SQLExecutor, id uuid.UUID, status models.SessionStatus, endTime time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	gs, ok := r.s.sessions[id]
	if !ok {
		return repositories.ErrSessionNotFound
	}
	gs.Status = status
	gs.EndTime = &endTime
	gs.UpdatedAt = endTime
	return nil
}

func (r fakeSessionRepo) ListWithParticipants(_ context.Context, _ repositories.SQLExecutor, group models.GroupKey) ([]repositories.SessionWithCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]repositories.SessionWithCount, 0)
	for _, gs := range r.s.sessions {
		if gs.Group != group {
			continue
		}
		count := 0
		for _, gp := range r.s.participants {
			if gp.SessionID == gs.ID && gp.Status != models.ParticipantStatusDeleted {
				count++
			}
		}
		if count > 0 {
			out = append(out, repositories.SessionWithCount{Session: *gs, ParticipantCount: count})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Session.StartTime.After(out[j].Session.StartTime) })
	return out, nil
}

// participants

type fakeParticipantRepo struct{ s *memStore }

func (r fakeParticipantRepo) CreateBatch(_ context.Context, _ repositories.SQLExecutor, participants []*models.GameParticipant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.createBatchErr; err != nil {
		r.s.createBatchErr = nil
		return err
	}
	for _, p := range participants {
		for _, existing := range r.s.participants {
			if existing.SessionID == p.SessionID && existing.PlayerID == p.PlayerID {
				return repositories.ErrParticipantConflict
			}
		}
		cp := *p
		r.s.participants = append(r.s.participants, &cp)
	}
	return nil
}

func (r fakeParticipantRepo) ListBySession(_ context.Context, _ repositories.SQLExecutor, sessionID uuid.UUID) ([]models.ParticipantView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.ParticipantView, 0)
	for _, gp := range r.s.participants {
		if gp.SessionID != sessionID {
			continue
		}
		v := models.ParticipantView{
			ParticipantID: gp.ID,
			PlayerID:      gp.PlayerID,
			Score:         gp.Score,
			TotalWin:      gp.TotalWin,
			Status:        gp.Status,
		}
		if p, ok := r.s.players[gp.PlayerID]; ok {
			v.Name = p.Name
			v.Avatar = p.Avatar
		}
		out = append(out, v)
	}
	return out, nil
}

func (r fakeParticipantRepo) UpdateStatusInOngoing(_ context.Context, _ repositories.SQLExecutor, group models.GroupKey, sessionID, playerID uuid.UUID, status models.ParticipantStatus, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	gs, ok := r.s.sessions[sessionID]
	if !ok || gs.Group != group || gs.Status != models.SessionStatusOngoing {
		return repositories.ErrParticipantNotFound
	}
	for _, gp := range r.s.participants {
		if gp.SessionID == sessionID && gp.PlayerID == playerID {
			gp.Status = status
			gp.UpdatedAt = at
			return nil
		}
	}
	return repositories.ErrParticipantNotFound
}

func (r fakeParticipantRepo) ApplyRoundResult(_ context.Context, _ repositories.SQLExecutor, sessionID, winnerParticipantID uuid.UUID, delta int, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	found := false
	for _, gp := range r.s.participants {
		if gp.SessionID == sessionID && gp.ID == winnerParticipantID {
			gp.Score += delta
			gp.TotalWin++
			gp.UpdatedAt = at
			found = true
		}
	}
	if !found {
		return repositories.ErrParticipantNotFound
	}
	for _, gp := range r.s.participants {
		if gp.SessionID == sessionID && gp.ID != winnerParticipantID && gp.Status == models.ParticipantStatusActive {
			gp.Score--
			gp.UpdatedAt = at
		}
	}
	return nil
}

// rounds

type fakeRoundRepo struct{ s *memStore }

func (r fakeRoundRepo) Create(_ context.Context, _ repositories.SQLExecutor, round *models.RoundRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.rounds {
		if existing.SessionID == round.SessionID && existing.Round == round.Round {
			return repositories.ErrRoundConflict
		}
	}
	cp := *round
	r.s.rounds = append(r.s.rounds, &cp)
	return nil
}

func (r fakeRoundRepo) CountBySession(_ context.Context, _ repositories.SQLExecutor, sessionID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, round := range r.s.rounds {
		if round.SessionID == sessionID {
			n++
		}
	}
	return n, nil
}

func (r fakeRoundRepo) LastBySession(_ context.Context, _ repositories.SQLExecutor, sessionID uuid.UUID) (*models.RoundRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var last *models.RoundRecord
	for _, round := range r.s.rounds {
		if round.SessionID == sessionID && (last == nil || round.Round > last.Round) {
			last = round
		}
	}
	if last == nil {
		return nil, repositories.ErrRoundNotFound
	}
	cp := *last
	return &cp, nil
}

func (r fakeRoundRepo) ListBySession(_ context.Context, _ repositories.SQLExecutor, sessionID uuid.UUID) ([]models.RoundView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.RoundView, 0)
	for _, round := range r.s.rounds {
		if round.SessionID != sessionID {
			continue
		}
		v := models.RoundView{RoundRecord: *round}
		if round.WinnerID != nil {
			if p, ok := r.s.players[*round.WinnerID]; ok {
				name := p.Name
				v.WinnerName = &name
			}
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Round < out[j].Round })
	return out, nil
}

// winners

type fakeWinnerRepo struct{ s *memStore }

func (r fakeWinnerRepo) CreateBatch(_ context.Context, _ repositories.SQLExecutor, winners []*models.SessionWinner) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range winners {
		cp := *w
		r.s.winners = append(r.s.winners, &cp)
	}
	return nil
}

func (r fakeWinnerRepo) view(w *models.SessionWinner) models.WinnerView {
	v := models.WinnerView{SessionID: w.SessionID, PlayerID: w.PlayerID, Score: w.Score}
	if p, ok := r.s.players[w.PlayerID]; ok {
		v.Name = p.Name
	}
	return v
}

func (r fakeWinnerRepo) ListBySession(_ context.Context, _ repositories.SQLExecutor, sessionID uuid.UUID) ([]models.WinnerView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.WinnerView, 0)
	for _, w := range r.s.winners {
		if w.SessionID == sessionID {
			out = append(out, r.view(w))
		}
	}
	return out, nil
}

func (r fakeWinnerRepo) ListBySessionIDs(_ context.Context, _ repositories.SQLExecutor, sessionIDs []uuid.UUID) (map[uuid.UUID][]models.WinnerView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(sessionIDs))
	for _, id := range sessionIDs {
		wanted[id] = true
	}
	out := make(map[uuid.UUID][]models.WinnerView)
	for _, w := range r.s.winners {
		if wanted[w.SessionID] {
			out[w.SessionID] = append(out[w.SessionID], r.view(w))
		}
	}
	return out, nil
}

// game logs

type fakeGameLogRepo struct{ s *memStore }

func (r fakeGameLogRepo) Create(_ context.Context, _ repositories.SQLExecutor, entry *models.GameLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *entry
	r.s.logs = append(r.s.logs, &cp)
	return nil
}

func (r fakeGameLogRepo) ListBySession(_ context.Context, _ repositories.SQLExecutor, sessionID uuid.UUID) ([]models.GameLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.GameLog, 0)
	for _, entry := range r.s.logs {
		if entry.SessionID == sessionID {
			out = append(out, *entry)
		}
	}
	return out, nil
}

// notifier and uploader

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.SessionEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, event models.SessionEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) types() []models.SessionEventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.SessionEventType, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}

type fakeUploader struct {
	uploaded map[string]string
	deleted  []string
	err      error
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{uploaded: make(map[string]string)}
}

func (u *fakeUploader) Upload(_ context.Context, key string, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	if u.err != nil {
		return nil, u.err
	}
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return nil, err
	}
	u.uploaded[key] = contentType
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) Delete(_ context.Context, key string) error {
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

var errBoom = errors.New("boom")

// fixture wires every service over one memStore with a controllable clock.
type fixture struct {
	store    *memStore
	notifier *recordingNotifier
	uploader *fakeUploader
	clock    time.Time

	players  *playerService
	sessions *sessionService
	scoring  *scoringService
	history  *historyService
}

func newFixture() *fixture {
	store := newMemStore()
	tx := &fakeTransactor{store: store}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		store:    store,
		notifier: &recordingNotifier{},
		uploader: newFakeUploader(),
		clock:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	playerRepo := fakePlayerRepo{store}
	sessionRepo := fakeSessionRepo{store}
	participantRepo := fakeParticipantRepo{store}
	roundRepo := fakeRoundRepo{store}
	winnerRepo := fakeWinnerRepo{store}
	logRepo := fakeGameLogRepo{store}

	f.players = NewPlayerService(tx, playerRepo, f.uploader, logger).(*playerService)
	f.sessions = NewSessionService(tx, sessionRepo, participantRepo, playerRepo, roundRepo, winnerRepo, logRepo, f.notifier, logger).(*sessionService)
	f.scoring = NewScoringService(tx, sessionRepo, participantRepo, roundRepo, logRepo, f.notifier, logger).(*scoringService)
	f.history = NewHistoryService(sessionRepo, participantRepo, roundRepo, winnerRepo, logRepo, logger).(*historyService)

	now := func() time.Time { return f.clock }
	f.players.now = now
	f.sessions.now = now
	f.scoring.now = now
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}
