package record

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"

	"github.com/rxtech-lab/tradestate/internal/portfolio"
	"github.com/rxtech-lab/tradestate/internal/types"
	"github.com/rxtech-lab/tradestate/pkg/errors"
)

const recordDatabaseName = "record.duckdb"

// DuckDBStore persists snapshots in a DuckDB database: one meta row plus one
// row per order. Save replaces the previous snapshot inside a transaction, so
// the commit is the consistency boundary.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore opens (or creates) the store database under root.
func NewDuckDBStore(root string) (*DuckDBStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStoreFailed, err, "failed to create record directory %s", root)
	}

	db, err := sql.Open("duckdb", filepath.Join(root, recordDatabaseName))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to open record database", err)
	}

	store := &DuckDBStore{db: db}
	if err := store.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return store, nil
}

func (s *DuckDBStore) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			experiment TEXT,
			saved_at TIMESTAMP,
			config TEXT,
			balance TEXT,
			performance TEXT
		);
		CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			exchange_id TEXT,
			exchange_order_id TEXT,
			symbol TEXT,
			price DOUBLE,
			quantity DOUBLE,
			filled_quantity DOUBLE,
			cost DOUBLE,
			order_type TEXT,
			status TEXT,
			created_time TIMESTAMP,
			opened_time TIMESTAMP,
			filled_time TIMESTAMP,
			canceled_time TIMESTAMP,
			fee DOUBLE,
			retries INTEGER
		);
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to create record tables", err)
	}

	return nil
}

// Save implements Store.
func (s *DuckDBStore) Save(snapshot *Snapshot) error {
	balance, err := json.Marshal(snapshot.Balance)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to encode balance", err)
	}

	performance, err := json.Marshal(snapshot.Performance)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to encode performance", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to begin transaction", err)
	}

	if _, err := tx.Exec(`DELETE FROM snapshots; DELETE FROM orders;`); err != nil {
		tx.Rollback()

		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to clear previous snapshot", err)
	}

	statement, args, err := sq.Insert("snapshots").
		Columns("experiment", "saved_at", "config", "balance", "performance").
		Values(snapshot.Experiment, snapshot.SavedAt, string(snapshot.Config), string(balance), string(performance)).
		ToSql()
	if err != nil {
		tx.Rollback()

		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to build snapshot insert", err)
	}

	if _, err := tx.Exec(statement, args...); err != nil {
		tx.Rollback()

		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to insert snapshot", err)
	}

	for _, order := range snapshot.Orders {
		statement, args, err := sq.Insert("orders").
			Columns("id", "exchange_id", "exchange_order_id", "symbol", "price", "quantity",
				"filled_quantity", "cost", "order_type", "status", "created_time",
				"opened_time", "filled_time", "canceled_time", "fee", "retries").
			Values(order.ID, order.ExchangeID, order.ExchangeOrderID, order.Asset.Symbol(),
				order.Price, order.Quantity, order.FilledQuantity, order.Cost,
				string(order.Type), string(order.Status), order.CreatedTime,
				nullableTime(order.OpenedTime), nullableTime(order.FilledTime),
				nullableTime(order.CanceledTime), order.Fee, order.Retries).
			ToSql()
		if err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeStoreFailed, "failed to build order insert", err)
		}

		if _, err := tx.Exec(statement, args...); err != nil {
			tx.Rollback()

			return errors.Wrapf(errors.ErrCodeStoreFailed, err, "failed to insert order %s", order.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to commit snapshot", err)
	}

	return nil
}

// Load implements Store.
func (s *DuckDBStore) Load() (*Snapshot, error) {
	snapshot := &Snapshot{}

	var config, balance, performance string

	err := s.db.QueryRow(`SELECT experiment, saved_at, config, balance, performance FROM snapshots`).
		Scan(&snapshot.Experiment, &snapshot.SavedAt, &config, &balance, &performance)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeSnapshotNotFound, "no snapshot committed")
	}

	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to query snapshot", err)
	}

	snapshot.Config = json.RawMessage(config)

	snapshot.Balance = &portfolio.Balance{}
	if err := json.Unmarshal([]byte(balance), snapshot.Balance); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to decode balance", err)
	}

	snapshot.Performance = &portfolio.PerformanceTracker{}
	if err := json.Unmarshal([]byte(performance), snapshot.Performance); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to decode performance", err)
	}

	orders, err := s.loadOrders()
	if err != nil {
		return nil, err
	}

	snapshot.Orders = orders

	return snapshot, nil
}

func (s *DuckDBStore) loadOrders() ([]*types.Order, error) {
	statement, args, err := sq.Select("id", "exchange_id", "exchange_order_id", "symbol", "price",
		"quantity", "filled_quantity", "cost", "order_type", "status", "created_time",
		"opened_time", "filled_time", "canceled_time", "fee", "retries").
		From("orders").
		OrderBy("created_time ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to build order query", err)
	}

	rows, err := s.db.Query(statement, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to query orders", err)
	}
	defer rows.Close()

	var orders []*types.Order

	for rows.Next() {
		var (
			order                          types.Order
			symbol, orderType, status      string
			openedAt, filledAt, canceledAt sql.NullTime
		)

		err := rows.Scan(&order.ID, &order.ExchangeID, &order.ExchangeOrderID, &symbol,
			&order.Price, &order.Quantity, &order.FilledQuantity, &order.Cost,
			&orderType, &status, &order.CreatedTime,
			&openedAt, &filledAt, &canceledAt, &order.Fee, &order.Retries)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to scan order", err)
		}

		asset, err := types.ParseAsset(symbol)
		if err != nil {
			return nil, err
		}

		order.Asset = asset
		order.Type = types.OrderType(orderType)
		order.Status = types.OrderStatus(status)
		order.OpenedTime = timePointer(openedAt)
		order.FilledTime = timePointer(filledAt)
		order.CanceledTime = timePointer(canceledAt)

		orders = append(orders, &order)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "error iterating orders", err)
	}

	return orders, nil
}

// Close implements Store.
func (s *DuckDBStore) Close() error {
	return s.db.Close()
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}

	return *t
}

func timePointer(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}

	value := t.Time

	return &value
}
