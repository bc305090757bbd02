// SPDX-License-Identifier: Apache-2.0

// Package connection manages the registry of live Postgres connection pools
// and the saved connection configurations a caller can reconnect to later.
package connection

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tuskerhq/tusker-core/internal/connstr"
	"github.com/tuskerhq/tusker-core/internal/dberr"
)

// SSLMode mirrors the sslmode query parameter accepted by libpq-compatible
// drivers.
type SSLMode string

const (
	SSLDisable SSLMode = "disable"
	SSLPrefer  SSLMode = "prefer"
	SSLRequire SSLMode = "require"
)

// Config describes a Postgres server a caller may connect to. Password is
// never serialized to JSON; it travels separately through pkg/credentials or
// as a connect-time argument.
type Config struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Host           string  `json:"host"`
	Port           uint16  `json:"port"`
	Database       string  `json:"database"`
	Username       string  `json:"username"`
	Password       string  `json:"-"`
	SSLMode        SSLMode `json:"ssl_mode"`
	MaxConnections uint32  `json:"max_connections"`
	Color          string  `json:"color,omitempty"`
	InstantCommit  bool    `json:"instant_commit"`
	ReadOnly       bool    `json:"read_only"`
	// DefaultSchema, if set, is applied as the session's search_path via a
	// libpq "options" parameter so every query on this connection resolves
	// unqualified names against it first.
	DefaultSchema string `json:"default_schema,omitempty"`
}

// NewConfig builds a Config with a fresh id and the package defaults,
// mirroring ConnectionConfig::new in the original implementation.
func NewConfig(name, host string, port uint16, database, username, password string) Config {
	return Config{
		ID:             uuid.NewString(),
		Name:           name,
		Host:           host,
		Port:           port,
		Database:       database,
		Username:       username,
		Password:       password,
		SSLMode:        SSLPrefer,
		MaxConnections: 10,
	}
}

// ConnectionString renders the libpq URL for cfg, using password as the
// credential in place of cfg.Password (the config itself never carries a
// password once persisted).
func (cfg Config) ConnectionString(password string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Username, password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Database,
	}
	q := u.Query()
	q.Set("sslmode", string(cfg.SSLMode))
	u.RawQuery = q.Encode()

	withSearchPath, err := connstr.AppendSearchPathOption(u.String(), cfg.DefaultSchema)
	if err != nil {
		return u.String()
	}
	return withSearchPath
}

// SavedConnection wraps a Config with bookkeeping timestamps, per the
// original implementation's SavedConnection struct.
type SavedConnection struct {
	Config     Config     `json:"config"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// Info is the subset of an ActiveConnection exposed to callers, mirroring
// the original ConnectionInfo struct (no pool handle, no password).
type Info struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Host        string    `json:"host"`
	Port        uint16    `json:"port"`
	Database    string    `json:"database"`
	Username    string    `json:"username"`
	ConnectedAt time.Time `json:"connected_at"`
}

// ActiveConnection pairs a Config with its live pool.
type ActiveConnection struct {
	Config      Config
	Pool        *pgxpool.Pool
	ConnectedAt time.Time
}

const acquireTimeout = 10 * time.Second

// Registry tracks every live connection pool, keyed by connection id. The
// zero value is not usable; construct with NewRegistry.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]*ActiveConnection
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{connections: make(map[string]*ActiveConnection)}
}

// Connect opens a pool for cfg and registers it under cfg.ID. It fails with
// dberr.CodeConnectionAlreadyExists if cfg.ID is already registered.
func (r *Registry) Connect(ctx context.Context, cfg Config, password string) (string, error) {
	r.mu.RLock()
	_, exists := r.connections[cfg.ID]
	r.mu.RUnlock()
	if exists {
		return "", dberr.ConnectionAlreadyExists(cfg.ID)
	}

	pool, err := r.dial(ctx, cfg, password)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	if _, exists := r.connections[cfg.ID]; exists {
		r.mu.Unlock()
		pool.Close()
		return "", dberr.ConnectionAlreadyExists(cfg.ID)
	}
	r.connections[cfg.ID] = &ActiveConnection{
		Config:      cfg,
		Pool:        pool,
		ConnectedAt: time.Now().UTC(),
	}
	r.mu.Unlock()

	return cfg.ID, nil
}

func (r *Registry) dial(ctx context.Context, cfg Config, password string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString(password))
	if err != nil {
		return nil, dberr.InvalidConnectionString(err, "invalid connection configuration for %s", cfg.Name)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConnections)
	}

	dialCtx, cancel := context.WithTimeout(ctx, acquireTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(dialCtx, poolCfg)
	if err != nil {
		return nil, dberr.Database(err, "failed to connect to %s", cfg.Name)
	}

	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, dberr.Database(err, "failed to reach %s", cfg.Name)
	}

	return pool, nil
}

// Disconnect closes and removes the connection registered under id.
func (r *Registry) Disconnect(ctx context.Context, id string) error {
	r.mu.Lock()
	conn, ok := r.connections[id]
	if ok {
		delete(r.connections, id)
	}
	r.mu.Unlock()

	if !ok {
		return dberr.ConnectionNotFound(id)
	}
	conn.Pool.Close()
	return nil
}

// DisconnectAll closes and removes every registered connection.
func (r *Registry) DisconnectAll(ctx context.Context) error {
	r.mu.Lock()
	conns := r.connections
	r.connections = make(map[string]*ActiveConnection)
	r.mu.Unlock()

	for _, conn := range conns {
		conn.Pool.Close()
	}
	return nil
}

// Pool returns the pool registered under id.
func (r *Registry) Pool(id string) (*pgxpool.Pool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.connections[id]
	if !ok {
		return nil, dberr.ConnectionNotFound(id)
	}
	return conn.Pool, nil
}

// IsConnected reports whether id has a live pool registered.
func (r *Registry) IsConnected(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.connections[id]
	return ok
}

// ListActive returns Info for every registered connection, in no particular
// order (callers sort if they need determinism).
func (r *Registry) ListActive() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.connections))
	for _, conn := range r.connections {
		infos = append(infos, Info{
			ID:          conn.Config.ID,
			Name:        conn.Config.Name,
			Host:        conn.Config.Host,
			Port:        conn.Config.Port,
			Database:    conn.Config.Database,
			Username:    conn.Config.Username,
			ConnectedAt: conn.ConnectedAt,
		})
	}
	return infos
}

// TestConnection dials cfg with a single-connection pool, pings it, and
// closes it again without registering anything. It is used for "test
// connection" UI flows that should not leave a pool open.
func TestConnection(ctx context.Context, cfg Config, password string) error {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString(password))
	if err != nil {
		return dberr.InvalidConnectionString(err, "invalid connection configuration for %s", cfg.Name)
	}
	poolCfg.MaxConns = 1

	dialCtx, cancel := context.WithTimeout(ctx, acquireTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(dialCtx, poolCfg)
	if err != nil {
		return dberr.Database(err, "failed to connect to %s", cfg.Name)
	}
	defer pool.Close()

	if err := pool.Ping(dialCtx); err != nil {
		return dberr.Database(err, "failed to reach %s", cfg.Name)
	}
	return nil
}

// GetCurrentUsername queries the server for the role the pool is currently
// authenticated as, used by the "database info" surface.
func GetCurrentUsername(ctx context.Context, pool *pgxpool.Pool) (string, error) {
	var username string
	if err := pool.QueryRow(ctx, "SELECT current_user").Scan(&username); err != nil {
		return "", dberr.Database(err, "failed to read current_user")
	}
	return username, nil
}
