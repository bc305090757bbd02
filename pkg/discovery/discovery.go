// SPDX-License-Identifier: Apache-2.0

// Package discovery finds PostgreSQL servers running on the local machine:
// Unix-socket directories PostgreSQL conventionally uses, then a TCP probe
// of the default port range, then a trust-auth connection attempt against
// each discovered server to enumerate its databases.
package discovery

import (
	"context"
	"errors"
	"net"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// AuthStatus reports whether a discovered server accepted a connection
// without a password.
type AuthStatus string

const (
	AuthTrust            AuthStatus = "trust"
	AuthPasswordRequired AuthStatus = "password_required"
)

// Server is a discovered PostgreSQL server reachable without enumerating
// its databases.
type Server struct {
	Host       string     `json:"host"`
	Port       uint16     `json:"port"`
	AuthStatus AuthStatus `json:"auth_status"`
	Username   string     `json:"username"`
}

// Database is one database found on a discovered server.
type Database struct {
	Host            string     `json:"host"`
	Port            uint16     `json:"port"`
	DatabaseName    string     `json:"database_name"`
	Username        string     `json:"username"`
	AuthStatus      AuthStatus `json:"auth_status"`
	AlreadyImported bool       `json:"already_imported"`
}

// ExistingConnection identifies a connection the caller already has
// configured, so discovery can mark matching results as already imported.
type ExistingConnection struct {
	Host     string
	Port     uint16
	Database string
}

const unreachableSentinel = "__unreachable__"

var socketDirs = []string{"/tmp", "/var/run/postgresql"}

// scanSocketDirs returns the set of ports with a PostgreSQL Unix socket file
// (.s.PGSQL.<port>) under any of the well-known socket directories.
func scanSocketDirs() map[uint16]struct{} {
	ports := make(map[uint16]struct{})

	for _, dir := range socketDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			portStr, ok := strings.CutPrefix(name, ".s.PGSQL.")
			if !ok {
				continue
			}
			port, err := strconv.ParseUint(portStr, 10, 16)
			if err != nil {
				continue
			}
			ports[uint16(port)] = struct{}{}
		}
	}

	return ports
}

// probeTCPPorts checks localhost ports 5432-5439 for an open TCP listener,
// skipping any port already found via scanSocketDirs.
func probeTCPPorts(ctx context.Context, known map[uint16]struct{}) map[uint16]struct{} {
	extra := make(map[uint16]struct{})
	var mu sync.Mutex

	var g errgroup.Group
	for port := uint16(5432); port <= 5439; port++ {
		if _, ok := known[port]; ok {
			continue
		}
		port := port
		g.Go(func() error {
			addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(int(port)))
			d := net.Dialer{Timeout: 1 * time.Second}
			conn, err := d.DialContext(ctx, "tcp", addr)
			if err != nil {
				return nil
			}
			conn.Close()
			mu.Lock()
			extra[port] = struct{}{}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return extra
}

// probeServer attempts a trust-auth connection to host:port and, if it
// succeeds, enumerates non-template databases. A password-required server
// is reported with AuthPasswordRequired and a single "postgres" placeholder
// database; a server that cannot be reached at all reports the internal
// unreachable sentinel for DiscoverLocal to filter out.
func probeServer(ctx context.Context, host string, port uint16, username string) (AuthStatus, []string) {
	connString := "postgres://" + url.QueryEscape(username) + "@" +
		net.JoinHostPort(host, strconv.Itoa(int(port))) + "/postgres?sslmode=disable"

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return AuthPasswordRequired, []string{unreachableSentinel}
	}
	cfg.MaxConns = 1

	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(probeCtx, cfg)
	if err != nil {
		return classifyConnectError(err)
	}
	defer pool.Close()

	if err := pool.Ping(probeCtx); err != nil {
		return classifyConnectError(err)
	}

	rows, err := pool.Query(probeCtx, "SELECT datname FROM pg_database WHERE datistemplate = false ORDER BY datname")
	if err != nil {
		return AuthTrust, []string{"postgres"}
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return AuthTrust, []string{"postgres"}
		}
		names = append(names, name)
	}
	if rows.Err() != nil || len(names) == 0 {
		return AuthTrust, []string{"postgres"}
	}

	return AuthTrust, names
}

// classifyConnectError distinguishes "needs a password" (SQLSTATE 28P01
// invalid_password or 28000 invalid_authorization_specification) from a
// server that could not be reached at all.
func classifyConnectError(err error) (AuthStatus, []string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "28P01" || pgErr.Code == "28000") {
		return AuthPasswordRequired, []string{"postgres"}
	}
	return AuthPasswordRequired, []string{unreachableSentinel}
}

// CurrentUsername returns the OS user to probe servers as, falling back to
// "postgres" if the environment doesn't say.
func CurrentUsername() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	if u := os.Getenv("USERNAME"); u != "" {
		return u
	}
	return "postgres"
}

// DiscoverLocal scans for PostgreSQL servers on the local machine and
// enumerates their databases, marking any that match an entry of
// existingConnections as already imported.
func DiscoverLocal(ctx context.Context, existingConnections []ExistingConnection) []Database {
	username := CurrentUsername()

	socketPorts := scanSocketDirs()
	tcpPorts := probeTCPPorts(ctx, socketPorts)

	allPorts := make(map[uint16]struct{}, len(socketPorts)+len(tcpPorts))
	for p := range socketPorts {
		allPorts[p] = struct{}{}
	}
	for p := range tcpPorts {
		allPorts[p] = struct{}{}
	}

	ports := make([]uint16, 0, len(allPorts))
	for p := range allPorts {
		ports = append(ports, p)
	}

	results := make([]probeResult, len(ports))
	g, gctx := errgroup.WithContext(ctx)
	for i, port := range ports {
		i, port := i, port
		g.Go(func() error {
			status, dbs := probeServer(gctx, "localhost", port, username)
			results[i] = probeResult{port: port, authStatus: status, databases: dbs}
			return nil
		})
	}
	_ = g.Wait()

	return buildDatabaseList(results, username, existingConnections)
}

type probeResult struct {
	port       uint16
	authStatus AuthStatus
	databases  []string
}

// buildDatabaseList turns raw per-port probe results into the sorted,
// sentinel-filtered, already-imported-annotated list DiscoverLocal returns.
// Split out from DiscoverLocal so this part can be exercised without a real
// network probe.
func buildDatabaseList(results []probeResult, username string, existingConnections []ExistingConnection) []Database {
	var out []Database
	for _, r := range results {
		if len(r.databases) == 1 && r.databases[0] == unreachableSentinel {
			continue
		}
		for _, dbName := range r.databases {
			already := false
			for _, existing := range existingConnections {
				if (existing.Host == "localhost" || existing.Host == "127.0.0.1") &&
					existing.Port == r.port && existing.Database == dbName {
					already = true
					break
				}
			}
			out = append(out, Database{
				Host:            "localhost",
				Port:            r.port,
				DatabaseName:    dbName,
				Username:        username,
				AuthStatus:      r.authStatus,
				AlreadyImported: already,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Port != out[j].Port {
			return out[i].Port < out[j].Port
		}
		return out[i].DatabaseName < out[j].DatabaseName
	})

	return out
}
