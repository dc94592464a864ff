package tradelog

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/evdnx/gosig/config"
	"github.com/evdnx/gosig/logger"
	"github.com/evdnx/gosig/types"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ClickHouseStore persists rows in a MergeTree table. ClickHouse has no
// change feed, so SubscribeInserts only sees rows inserted through this
// instance.
type ClickHouseStore struct {
	conn  driver.Conn
	table string
	hub   *hub
	log   logger.Logger
}

// NewClickHouseStore connects, pings and creates the table if needed.
func NewClickHouseStore(ctx context.Context, cfg config.StoreConfig, log logger.Logger) (*ClickHouseStore, error) {
	table, err := qualifiedTable(cfg.Database, cfg.Table)
	if err != nil {
		return nil, err
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping ClickHouse %s: %w", cfg.Addr, err)
	}
	if err := conn.Exec(ctx, createTableSQL(table)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}
	if log == nil {
		log = logger.NewNop()
	}
	log.Info("tradelog_clickhouse_ready", logger.String("addr", cfg.Addr), logger.String("table", table))
	return &ClickHouseStore{conn: conn, table: table, hub: newHub(), log: log}, nil
}

func qualifiedTable(db, table string) (string, error) {
	if !identRe.MatchString(table) {
		return "", fmt.Errorf("tradelog: invalid table name %q", table)
	}
	if db == "" {
		return table, nil
	}
	if !identRe.MatchString(db) {
		return "", fmt.Errorf("tradelog: invalid database name %q", db)
	}
	return db + "." + table, nil
}

func createTableSQL(table string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id String,
			type LowCardinality(String),
			status LowCardinality(String),
			entry_price Float64,
			exit_price Nullable(Float64),
			stop_price Float64,
			target_price Float64,
			entry_time DateTime64(3, 'UTC'),
			exit_time Nullable(DateTime64(3, 'UTC')),
			position_size Float64,
			raw_pnl Float64,
			net_pnl Float64,
			costs Float64,
			risk_reward_ratio Float64,
			inserted_at DateTime64(3, 'UTC')
		) ENGINE = MergeTree
		ORDER BY (entry_time, id, inserted_at)`, table)
}

func selectRecentSQL(table string, limit int) string {
	q := fmt.Sprintf(`
		SELECT id, type, status, entry_price, exit_price, stop_price, target_price,
			entry_time, exit_time, position_size, raw_pnl, net_pnl, costs,
			risk_reward_ratio, inserted_at
		FROM %s
		WHERE entry_time >= ?
		ORDER BY entry_time DESC, inserted_at DESC`, table)
	if limit > 0 {
		q += fmt.Sprintf("\n\t\tLIMIT %d", limit)
	}
	return q
}

func (s *ClickHouseStore) Insert(ctx context.Context, r Record) error {
	if r.InsertedAt.IsZero() {
		r.InsertedAt = time.Now().UTC()
	}
	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO "+s.table)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	err = batch.Append(
		r.ID,
		r.Type,
		string(r.Status),
		r.EntryPrice,
		r.ExitPrice,
		r.StopPrice,
		r.TargetPrice,
		r.EntryTime,
		r.ExitTime,
		r.PositionSize,
		r.RawPnL,
		r.NetPnL,
		r.Costs,
		r.RiskRewardRatio,
		r.InsertedAt,
	)
	if err != nil {
		batch.Abort()
		return fmt.Errorf("failed to append to batch: %w", err)
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("insert trade %s: %w", r.ID, err)
	}
	s.hub.publish(r)
	return nil
}

func (s *ClickHouseStore) QueryRecent(ctx context.Context, since time.Time, limit int) ([]Record, error) {
	rows, err := s.conn.Query(ctx, selectRecentSQL(s.table, limit), since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r      Record
			status string
		)
		if err := rows.Scan(
			&r.ID, &r.Type, &status, &r.EntryPrice, &r.ExitPrice, &r.StopPrice, &r.TargetPrice,
			&r.EntryTime, &r.ExitTime, &r.PositionSize, &r.RawPnL, &r.NetPnL, &r.Costs,
			&r.RiskRewardRatio, &r.InsertedAt,
		); err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		r.Status = types.Status(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *ClickHouseStore) SubscribeInserts(ctx context.Context) (<-chan Record, func()) {
	return s.hub.subscribe(ctx)
}

func (s *ClickHouseStore) Close() error {
	s.hub.close()
	return s.conn.Close()
}

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig, log logger.Logger) (Store, error) {
	switch cfg.Driver {
	case config.StoreClickHouse:
		return NewClickHouseStore(ctx, cfg, log)
	case config.StoreMemory, "":
		return NewMemoryStore(0), nil
	}
	return nil, fmt.Errorf("tradelog: unknown driver %q", cfg.Driver)
}
