package monitors

import (
	"context"
	"errors"

	"pricewatch/internal/models"
	"pricewatch/internal/storage"
)

type RedisStorage interface {
	SaveMonitor(ctx context.Context, monitor models.Monitor) error
	Monitor(ctx context.Context, monitorID int64) (models.Monitor, error)
}

type PostgresStorage interface {
	MonitorByID(ctx context.Context, monitorID int64) (models.Monitor, error)
	MonitorsByUser(ctx context.Context, userID string, limit, offset int64) ([]models.Monitor, int64, error)
	HistoryByMonitor(ctx context.Context, monitorID int64) ([]models.PriceHistoryEntry, error)
}

type MonitorOperator struct {
	Redis    RedisStorage
	Postgres PostgresStorage
}

func New(p PostgresStorage, r RedisStorage) *MonitorOperator {
	return &MonitorOperator{
		Redis:    r,
		Postgres: p,
	}
}

// MonitorByID reads through the cache. A monitor owned by another user is
// reported as not found.
func (m *MonitorOperator) MonitorByID(ctx context.Context, monitorID int64, userID string) (models.Monitor, error) {
	monitor, err := m.Redis.Monitor(ctx, monitorID)
	switch {
	case err == nil:
		if monitor.UserID != userID {
			return models.Monitor{}, storage.ErrMonitorNotFound
		}

		return monitor, nil

	case !errors.Is(err, storage.ErrMonitorNotFound):
		return models.Monitor{}, err
	}

	monitor, err = m.Postgres.MonitorByID(ctx, monitorID)
	if err != nil {
		return models.Monitor{}, err
	}

	if monitor.UserID != userID {
		return models.Monitor{}, storage.ErrMonitorNotFound
	}

	_ = m.Redis.SaveMonitor(ctx, monitor)

	return monitor, nil
}

func (m *MonitorOperator) MonitorsByUser(ctx context.Context, userID string, limit, offset int64) ([]models.Monitor, int64, error) {
	return m.Postgres.MonitorsByUser(ctx, userID, limit, offset)
}

// History returns the price observations for one of the user's monitors,
// oldest first.
func (m *MonitorOperator) History(ctx context.Context, monitorID int64, userID string) ([]models.PriceHistoryEntry, error) {
	if _, err := m.MonitorByID(ctx, monitorID, userID); err != nil {
		return nil, err
	}

	return m.Postgres.HistoryByMonitor(ctx, monitorID)
}
