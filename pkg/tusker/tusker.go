// SPDX-License-Identifier: Apache-2.0

// Package tusker wires the connection registry, credential store, schema
// introspector, data operations, migration executor, commit store,
// export codec, and local discovery into one Service, the single entry
// point a caller (a desktop shell, a CLI, a test) drives.
package tusker

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tuskerhq/tusker-core/internal/dberr"
	"github.com/tuskerhq/tusker-core/internal/tuskerlog"
	"github.com/tuskerhq/tusker-core/pkg/commitstore"
	"github.com/tuskerhq/tusker-core/pkg/connection"
	"github.com/tuskerhq/tusker-core/pkg/credentials"
	"github.com/tuskerhq/tusker-core/pkg/dataops"
	"github.com/tuskerhq/tusker-core/pkg/discovery"
	"github.com/tuskerhq/tusker-core/pkg/export"
	"github.com/tuskerhq/tusker-core/pkg/migration"
	"github.com/tuskerhq/tusker-core/pkg/schema"
)

// Service bundles every subsystem behind the one set of methods a caller
// needs. It carries no process-global state; construct one per
// application instance.
type Service struct {
	registry     *connection.Registry
	credentials  *credentials.Store
	introspector *schema.Introspector
	dataops      *dataops.Operations
	migrations   *migration.Executor
	commits      *commitstore.Store
}

// Options configures a Service's underlying stores.
type Options struct {
	// KeyringService names the OS keyring service saved connections and
	// passwords are stored under. Empty uses the package default.
	KeyringService string
	// CommitStoreDir is the directory commit history databases are kept
	// in, one SQLite file per project. Empty resolves to the OS
	// per-user config directory at first use.
	CommitStoreDir string
}

// New constructs a Service ready to serve every command in opts.
func New(opts Options) *Service {
	return &Service{
		registry:     connection.NewRegistry(),
		credentials:  credentials.NewStore(opts.KeyringService),
		introspector: schema.NewIntrospector(),
		dataops:      dataops.NewOperations(),
		migrations:   migration.NewExecutor(),
		commits:      commitstore.NewStore(opts.CommitStoreDir),
	}
}

// --- connection lifecycle ---

// Connect opens and registers a pool for cfg using password directly,
// without consulting the credential store.
func (s *Service) Connect(ctx context.Context, cfg connection.Config, password string) (string, error) {
	id, err := s.registry.Connect(ctx, cfg, password)
	if err != nil {
		tuskerlog.Default().Error("connect failed", "connection", cfg.Name, "err", err)
		return "", err
	}
	tuskerlog.Default().Info("connected", "connection", cfg.Name, "id", id)
	return id, nil
}

// ConnectSaved looks up a previously saved connection by id, reads its
// password from the keyring, connects, and stamps it as just-used.
func (s *Service) ConnectSaved(ctx context.Context, connectionID string) (string, error) {
	saved, err := s.credentials.GetConnectionConfig(connectionID)
	if err != nil {
		return "", err
	}
	password, err := s.credentials.GetPassword(connectionID)
	if err != nil {
		return "", err
	}

	id, err := s.registry.Connect(ctx, saved.Config, password)
	if err != nil {
		return "", err
	}
	_ = s.credentials.TouchLastUsed(connectionID)
	return id, nil
}

// Disconnect closes and forgets the live connection registered under id.
func (s *Service) Disconnect(ctx context.Context, id string) error {
	return s.registry.Disconnect(ctx, id)
}

// DisconnectAll closes and forgets every live connection.
func (s *Service) DisconnectAll(ctx context.Context) error {
	return s.registry.DisconnectAll(ctx)
}

// TestConnection dials cfg without registering it, for "test before
// saving" UI flows.
func (s *Service) TestConnection(ctx context.Context, cfg connection.Config, password string) error {
	return connection.TestConnection(ctx, cfg, password)
}

// ListActiveConnections returns Info for every currently connected pool.
func (s *Service) ListActiveConnections() []connection.Info {
	return s.registry.ListActive()
}

// IsConnected reports whether id has a live pool.
func (s *Service) IsConnected(id string) bool {
	return s.registry.IsConnected(id)
}

// PingDatabase checks that id's pool can still reach its server.
func (s *Service) PingDatabase(ctx context.Context, id string) error {
	pool, err := s.registry.Pool(id)
	if err != nil {
		return err
	}
	if err := pool.Ping(ctx); err != nil {
		return dberr.Database(err, "ping failed for connection %s", id)
	}
	return nil
}

// GetCurrentUsername reports the role id's pool is authenticated as.
func (s *Service) GetCurrentUsername(ctx context.Context, id string) (string, error) {
	pool, err := s.registry.Pool(id)
	if err != nil {
		return "", err
	}
	return connection.GetCurrentUsername(ctx, pool)
}

// --- saved connections and credentials ---

// GetSavedConnections lists every saved connection.
func (s *Service) GetSavedConnections() ([]connection.SavedConnection, error) {
	return s.credentials.GetAllConnectionConfigs()
}

// SaveConnection upserts cfg (and, if non-empty, password) into the saved
// connection list.
func (s *Service) SaveConnection(cfg connection.Config, password string) error {
	if err := s.credentials.SaveConnectionConfig(cfg); err != nil {
		return err
	}
	if password != "" {
		return s.credentials.SavePassword(cfg.ID, password)
	}
	return nil
}

// DeleteSavedConnection removes connectionID from the saved list along
// with its stored password.
func (s *Service) DeleteSavedConnection(connectionID string) error {
	return s.credentials.DeleteConnectionConfig(connectionID)
}

// GetSavedPassword returns the password stored for connectionID.
func (s *Service) GetSavedPassword(connectionID string) (string, error) {
	return s.credentials.GetPassword(connectionID)
}

// SavePassword stores password for connectionID without touching its
// saved config.
func (s *Service) SavePassword(connectionID, password string) error {
	return s.credentials.SavePassword(connectionID, password)
}

// DeletePassword removes the password stored for connectionID.
func (s *Service) DeletePassword(connectionID string) error {
	return s.credentials.DeletePassword(connectionID)
}

// --- schema introspection ---

func (s *Service) pool(id string) (*pgxpool.Pool, error) {
	return s.registry.Pool(id)
}

// GetSchemas lists every user schema on connectionID's server.
func (s *Service) GetSchemas(ctx context.Context, connectionID string) ([]schema.Info, error) {
	pool, err := s.pool(connectionID)
	if err != nil {
		return nil, err
	}
	return s.introspector.GetSchemas(ctx, pool)
}

// GetSchemasWithTables lists every schema together with its tables in one
// round trip group.
func (s *Service) GetSchemasWithTables(ctx context.Context, connectionID string) ([]schema.SchemaWithTables, error) {
	pool, err := s.pool(connectionID)
	if err != nil {
		return nil, err
	}
	return s.introspector.GetSchemasWithTables(ctx, pool)
}

// GetTables lists the tables, views, and materialized views of one schema.
func (s *Service) GetTables(ctx context.Context, connectionID, schemaName string) ([]schema.TableInfo, error) {
	pool, err := s.pool(connectionID)
	if err != nil {
		return nil, err
	}
	return s.introspector.GetTables(ctx, pool, schemaName)
}

// GetColumns describes every column of one table.
func (s *Service) GetColumns(ctx context.Context, connectionID, schemaName, table string) ([]schema.ColumnInfo, error) {
	pool, err := s.pool(connectionID)
	if err != nil {
		return nil, err
	}
	return s.introspector.GetColumns(ctx, pool, schemaName, table)
}

// GetAllColumns describes every column across schemaNames in one pass.
func (s *Service) GetAllColumns(ctx context.Context, connectionID string, schemaNames []string) ([]schema.TableColumnsInfo, error) {
	pool, err := s.pool(connectionID)
	if err != nil {
		return nil, err
	}
	return s.introspector.GetAllColumns(ctx, pool, schemaNames)
}

// GetRowCount reports a table's exact row count.
func (s *Service) GetRowCount(ctx context.Context, connectionID, schemaName, table string) (int64, error) {
	pool, err := s.pool(connectionID)
	if err != nil {
		return 0, err
	}
	return s.introspector.GetRowCount(ctx, pool, schemaName, table)
}

// GetIndexes describes every index on one table.
func (s *Service) GetIndexes(ctx context.Context, connectionID, schemaName, table string) ([]schema.IndexInfo, error) {
	pool, err := s.pool(connectionID)
	if err != nil {
		return nil, err
	}
	return s.introspector.GetIndexes(ctx, pool, schemaName, table)
}

// GetConstraints describes every constraint on one table.
func (s *Service) GetConstraints(ctx context.Context, connectionID, schemaName, table string) ([]schema.ConstraintInfo, error) {
	pool, err := s.pool(connectionID)
	if err != nil {
		return nil, err
	}
	return s.introspector.GetConstraints(ctx, pool, schemaName, table)
}

// --- data operations ---

// FetchTableData returns one page of schemaName.table.
func (s *Service) FetchTableData(
	ctx context.Context,
	connectionID, schemaName, table string,
	page int64,
	pageSize *int64,
	orderBy, orderDirection []string,
	filters []dataops.FilterCondition,
) (*dataops.PaginatedResult, error) {
	pool, err := s.pool(connectionID)
	if err != nil {
		return nil, err
	}
	return s.dataops.FetchPaginated(ctx, pool, schemaName, table, page, pageSize, orderBy, orderDirection, filters)
}

// InsertRow inserts one row.
func (s *Service) InsertRow(ctx context.Context, connectionID string, req dataops.InsertRequest) (map[string]any, error) {
	pool, err := s.pool(connectionID)
	if err != nil {
		return nil, err
	}
	return s.dataops.InsertRow(ctx, pool, req)
}

// BulkInsert inserts many rows sharing a column set.
func (s *Service) BulkInsert(ctx context.Context, connectionID string, req dataops.BulkInsertRequest) (int64, error) {
	pool, err := s.pool(connectionID)
	if err != nil {
		return 0, err
	}
	return s.dataops.BulkInsert(ctx, pool, req)
}

// UpdateRow updates rows matching a where clause.
func (s *Service) UpdateRow(ctx context.Context, connectionID string, req dataops.UpdateRequest) (int64, error) {
	pool, err := s.pool(connectionID)
	if err != nil {
		return 0, err
	}
	return s.dataops.UpdateRow(ctx, pool, req)
}

// DeleteRow deletes rows matching a where clause.
func (s *Service) DeleteRow(ctx context.Context, connectionID string, req dataops.DeleteRequest) (int64, error) {
	pool, err := s.pool(connectionID)
	if err != nil {
		return 0, err
	}
	return s.dataops.DeleteRow(ctx, pool, req)
}

// ExecuteQuery runs raw SQL against connectionID's pool.
func (s *Service) ExecuteQuery(ctx context.Context, connectionID, sql string) (*dataops.QueryResult, error) {
	pool, err := s.pool(connectionID)
	if err != nil {
		return nil, err
	}
	return s.dataops.ExecuteRawQuery(ctx, pool, sql)
}

// --- migrations ---

// ExecuteMigration runs a batch of statements against connectionID's pool.
func (s *Service) ExecuteMigration(ctx context.Context, connectionID string, req migration.Request) (*migration.Result, error) {
	pool, err := s.pool(connectionID)
	if err != nil {
		return nil, err
	}
	result, err := s.migrations.Execute(ctx, pool, req)
	if err != nil {
		tuskerlog.Default().Error("migration failed", "connection", connectionID, "err", err)
		return result, err
	}
	tuskerlog.Default().Info("migration executed", "connection", connectionID, "ok", result.Ok, "committed", result.Committed, "statements", len(result.Statements))
	return result, nil
}

// --- database info ---

// DatabaseInfo is the summary surfaced for a connection's "database info"
// view.
type DatabaseInfo struct {
	CurrentUser string `json:"current_user"`
	SchemaCount int    `json:"schema_count"`
}

// GetDatabaseInfo reports current_user and schema count for connectionID.
func (s *Service) GetDatabaseInfo(ctx context.Context, connectionID string) (*DatabaseInfo, error) {
	pool, err := s.pool(connectionID)
	if err != nil {
		return nil, err
	}
	username, err := connection.GetCurrentUsername(ctx, pool)
	if err != nil {
		return nil, err
	}
	schemas, err := s.introspector.GetSchemas(ctx, pool)
	if err != nil {
		return nil, err
	}
	return &DatabaseInfo{CurrentUser: username, SchemaCount: len(schemas)}, nil
}

// --- commit history ---

// SaveCommit records a batch of changes for projectID.
func (s *Service) SaveCommit(ctx context.Context, req commitstore.SaveCommitRequest) (*commitstore.Commit, error) {
	return s.commits.SaveCommit(ctx, req)
}

// GetCommits lists projectID's commit history, newest first.
func (s *Service) GetCommits(ctx context.Context, projectID string) ([]commitstore.Commit, error) {
	return s.commits.GetCommits(ctx, projectID)
}

// GetCommitDetail returns one commit with its ordered changes.
func (s *Service) GetCommitDetail(ctx context.Context, projectID, commitID string) (*commitstore.Detail, error) {
	return s.commits.GetCommitDetail(ctx, projectID, commitID)
}

// --- export / import ---

// ExportConnections encrypts every saved connection (with passwords
// resolved from the keyring) to an export file at filePath.
func (s *Service) ExportConnections(filePath, password string) error {
	saved, err := s.credentials.GetAllConnectionConfigs()
	if err != nil {
		return err
	}

	projects := make([]export.Project, 0, len(saved))
	for _, sc := range saved {
		pw, err := s.credentials.GetPassword(sc.Config.ID)
		if err != nil {
			pw = ""
		}
		var lastConnected *string
		if sc.LastUsedAt != nil {
			ts := sc.LastUsedAt.Format("2006-01-02T15:04:05Z07:00")
			lastConnected = &ts
		}
		projects = append(projects, export.Project{
			Name:          sc.Config.Name,
			Color:         sc.Config.Color,
			Host:          sc.Config.Host,
			Port:          sc.Config.Port,
			Database:      sc.Config.Database,
			Username:      sc.Config.Username,
			Password:      pw,
			SSL:           sc.Config.SSLMode == connection.SSLRequire,
			InstantCommit: sc.Config.InstantCommit,
			ReadOnly:      sc.Config.ReadOnly,
			LastConnected: lastConnected,
			CreatedAt:     sc.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	return export.EncryptAndWrite(projects, password, filePath)
}

// ImportConnections decrypts filePath and saves every project it contains
// as a new saved connection, returning how many were imported.
func (s *Service) ImportConnections(filePath, password string) (int, error) {
	payload, err := export.ReadAndDecrypt(filePath, password)
	if err != nil {
		return 0, err
	}

	for _, p := range payload.Projects {
		sslMode := connection.SSLPrefer
		if p.SSL {
			sslMode = connection.SSLRequire
		}
		cfg := connection.NewConfig(p.Name, p.Host, p.Port, p.Database, p.Username, p.Password)
		cfg.SSLMode = sslMode
		cfg.Color = p.Color
		cfg.InstantCommit = p.InstantCommit
		cfg.ReadOnly = p.ReadOnly

		if err := s.credentials.SaveConnectionConfig(cfg); err != nil {
			return 0, err
		}
		if p.Password != "" {
			if err := s.credentials.SavePassword(cfg.ID, p.Password); err != nil {
				return 0, err
			}
		}
	}

	return len(payload.Projects), nil
}

// --- discovery ---

// DiscoverLocalDatabases scans the local machine for reachable PostgreSQL
// servers and their databases, marking any that match an already-saved
// connection.
func (s *Service) DiscoverLocalDatabases(ctx context.Context) ([]discovery.Database, error) {
	saved, err := s.credentials.GetAllConnectionConfigs()
	if err != nil {
		return nil, err
	}

	existing := make([]discovery.ExistingConnection, len(saved))
	for i, sc := range saved {
		existing[i] = discovery.ExistingConnection{
			Host:     sc.Config.Host,
			Port:     sc.Config.Port,
			Database: sc.Config.Database,
		}
	}

	return discovery.DiscoverLocal(ctx, existing), nil
}
