// SPDX-License-Identifier: Apache-2.0

// Package credentials stores saved connection configurations and their
// passwords in the OS-native credential store (Keychain, Secret Service,
// Credential Manager) via go-keyring, mirroring the original
// CredentialStorage type which used the Rust `keyring` crate.
package credentials

import (
	"encoding/json"
	"time"

	"github.com/zalando/go-keyring"

	"github.com/tuskerhq/tusker-core/internal/dberr"
	"github.com/tuskerhq/tusker-core/pkg/connection"
)

const (
	defaultService   = "tusker-core"
	connectionsEntry = "connections"
)

// Store reads and writes connection configs and passwords through the OS
// keyring under one service name, set by NewStore (e.g. for test isolation
// or white-labelled builds). The zero value has an empty service name and
// does not fall back to the package default.
type Store struct {
	service string
}

// NewStore builds a Store scoped to service. An empty service falls back to
// the package default.
func NewStore(service string) *Store {
	if service == "" {
		service = defaultService
	}
	return &Store{service: service}
}

// SavePassword stores password under connectionID.
func (s *Store) SavePassword(connectionID, password string) error {
	if err := keyring.Set(s.service, connectionID, password); err != nil {
		return dberr.Keyring(err, "failed to save password for %s", connectionID)
	}
	return nil
}

// GetPassword retrieves the password stored for connectionID.
func (s *Store) GetPassword(connectionID string) (string, error) {
	password, err := keyring.Get(s.service, connectionID)
	if err != nil {
		return "", dberr.Keyring(err, "failed to read password for %s", connectionID)
	}
	return password, nil
}

// DeletePassword removes the password for connectionID, ignoring a missing
// entry the way the original implementation swallows keyring::Error::NoEntry.
func (s *Store) DeletePassword(connectionID string) error {
	if err := keyring.Delete(s.service, connectionID); err != nil && err != keyring.ErrNotFound {
		return dberr.Keyring(err, "failed to delete password for %s", connectionID)
	}
	return nil
}

// SaveConnectionConfig upserts cfg into the saved-connections list, keyed by
// cfg.ID, matching save_connection_config's read-modify-write-whole-list
// strategy. An existing entry keeps its original CreatedAt.
func (s *Store) SaveConnectionConfig(cfg connection.Config) error {
	saved, err := s.GetAllConnectionConfigs()
	if err != nil {
		return err
	}

	entry := connection.SavedConnection{Config: cfg, CreatedAt: time.Now().UTC()}
	filtered := saved[:0]
	for _, sc := range saved {
		if sc.Config.ID == cfg.ID {
			entry.CreatedAt = sc.CreatedAt
			entry.LastUsedAt = sc.LastUsedAt
			continue
		}
		filtered = append(filtered, sc)
	}
	filtered = append(filtered, entry)

	return s.writeConnections(filtered)
}

// TouchLastUsed stamps connectionID's saved entry with the current time as
// its most recent successful connection.
func (s *Store) TouchLastUsed(connectionID string) error {
	saved, err := s.GetAllConnectionConfigs()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	found := false
	for i := range saved {
		if saved[i].Config.ID == connectionID {
			saved[i].LastUsedAt = &now
			found = true
			break
		}
	}
	if !found {
		return dberr.ConnectionNotFound(connectionID)
	}
	return s.writeConnections(saved)
}

// GetAllConnectionConfigs returns every saved connection, or an empty slice
// if none have been saved yet.
func (s *Store) GetAllConnectionConfigs() ([]connection.SavedConnection, error) {
	raw, err := keyring.Get(s.service, connectionsEntry)
	if err == keyring.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, dberr.Keyring(err, "failed to read saved connections")
	}

	var saved []connection.SavedConnection
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		return nil, dberr.Serialization(err, "failed to decode saved connections")
	}
	return saved, nil
}

// GetConnectionConfig returns the saved connection for connectionID.
func (s *Store) GetConnectionConfig(connectionID string) (connection.SavedConnection, error) {
	saved, err := s.GetAllConnectionConfigs()
	if err != nil {
		return connection.SavedConnection{}, err
	}
	for _, sc := range saved {
		if sc.Config.ID == connectionID {
			return sc, nil
		}
	}
	return connection.SavedConnection{}, dberr.ConnectionNotFound(connectionID)
}

// DeleteConnectionConfig removes connectionID from the saved list and
// deletes its stored password.
func (s *Store) DeleteConnectionConfig(connectionID string) error {
	saved, err := s.GetAllConnectionConfigs()
	if err != nil {
		return err
	}

	filtered := saved[:0]
	for _, sc := range saved {
		if sc.Config.ID != connectionID {
			filtered = append(filtered, sc)
		}
	}
	if err := s.writeConnections(filtered); err != nil {
		return err
	}

	return s.DeletePassword(connectionID)
}

func (s *Store) writeConnections(saved []connection.SavedConnection) error {
	data, err := json.Marshal(saved)
	if err != nil {
		return dberr.Serialization(err, "failed to encode saved connections")
	}
	if err := keyring.Set(s.service, connectionsEntry, string(data)); err != nil {
		return dberr.Keyring(err, "failed to persist saved connections")
	}
	return nil
}
