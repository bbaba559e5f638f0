package monitors

import (
	"context"
	"errors"
	"testing"

	"pricewatch/internal/models"
	"pricewatch/internal/storage"
)

type fakeRedis struct {
	monitors map[int64]models.Monitor
	saved    []models.Monitor
}

func (r *fakeRedis) SaveMonitor(_ context.Context, monitor models.Monitor) error {
	r.saved = append(r.saved, monitor)
	return nil
}

func (r *fakeRedis) Monitor(_ context.Context, monitorID int64) (models.Monitor, error) {
	monitor, ok := r.monitors[monitorID]
	if !ok {
		return models.Monitor{}, storage.ErrMonitorNotFound
	}
	return monitor, nil
}

type fakePostgres struct {
	monitors map[int64]models.Monitor
	history  map[int64][]models.PriceHistoryEntry
	hits     int
}

func (p *fakePostgres) MonitorByID(_ context.Context, monitorID int64) (models.Monitor, error) {
	p.hits++
	monitor, ok := p.monitors[monitorID]
	if !ok {
		return models.Monitor{}, storage.ErrMonitorNotFound
	}
	return monitor, nil
}

func (p *fakePostgres) MonitorsByUser(_ context.Context, userID string, _, _ int64) ([]models.Monitor, int64, error) {
	var out []models.Monitor
	for _, m := range p.monitors {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, int64(len(out)), nil
}

func (p *fakePostgres) HistoryByMonitor(_ context.Context, monitorID int64) ([]models.PriceHistoryEntry, error) {
	return p.history[monitorID], nil
}

func TestMonitorByIDFillsCache(t *testing.T) {
	redis := &fakeRedis{monitors: map[int64]models.Monitor{}}
	postgres := &fakePostgres{monitors: map[int64]models.Monitor{
		7: {ID: 7, UserID: "u1", URL: "https://store/x"},
	}}

	op := New(postgres, redis)

	monitor, err := op.MonitorByID(context.Background(), 7, "u1")
	if err != nil {
		t.Fatalf("MonitorByID: %v", err)
	}
	if monitor.ID != 7 {
		t.Errorf("monitor.ID = %d, want 7", monitor.ID)
	}
	if len(redis.saved) != 1 {
		t.Errorf("cache fills = %d, want 1", len(redis.saved))
	}
}

func TestMonitorByIDPrefersCache(t *testing.T) {
	redis := &fakeRedis{monitors: map[int64]models.Monitor{
		7: {ID: 7, UserID: "u1"},
	}}
	postgres := &fakePostgres{monitors: map[int64]models.Monitor{}}

	op := New(postgres, redis)

	if _, err := op.MonitorByID(context.Background(), 7, "u1"); err != nil {
		t.Fatalf("MonitorByID: %v", err)
	}
	if postgres.hits != 0 {
		t.Errorf("postgres hits = %d, want 0", postgres.hits)
	}
}

func TestMonitorByIDHidesOtherUsers(t *testing.T) {
	redis := &fakeRedis{monitors: map[int64]models.Monitor{
		7: {ID: 7, UserID: "u1"},
	}}
	postgres := &fakePostgres{monitors: map[int64]models.Monitor{
		8: {ID: 8, UserID: "u1"},
	}}

	op := New(postgres, redis)

	if _, err := op.MonitorByID(context.Background(), 7, "u2"); !errors.Is(err, storage.ErrMonitorNotFound) {
		t.Errorf("cached monitor: err = %v, want ErrMonitorNotFound", err)
	}
	if _, err := op.MonitorByID(context.Background(), 8, "u2"); !errors.Is(err, storage.ErrMonitorNotFound) {
		t.Errorf("stored monitor: err = %v, want ErrMonitorNotFound", err)
	}
}

func TestHistoryChecksOwnership(t *testing.T) {
	redis := &fakeRedis{monitors: map[int64]models.Monitor{}}
	postgres := &fakePostgres{
		monitors: map[int64]models.Monitor{7: {ID: 7, UserID: "u1"}},
		history: map[int64][]models.PriceHistoryEntry{
			7: {{ID: 1, MonitorID: 7, Store: "magalu"}},
		},
	}

	op := New(postgres, redis)

	entries, err := op.History(context.Background(), 7, "u1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("entries = %d, want 1", len(entries))
	}

	if _, err := op.History(context.Background(), 7, "u2"); !errors.Is(err, storage.ErrMonitorNotFound) {
		t.Errorf("err = %v, want ErrMonitorNotFound", err)
	}
}
