// Package rolefile persists the mutable role configuration as a TOML file.
// The file is small and rewritten whole on every role mutation.
package rolefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/riverbank-network/riverbank/internal/domain"
)

// Store implements domain.RoleStore on a single TOML file.
type Store struct {
	path string
}

// New returns a store backed by the file at path.
func New(path string) *Store {
	return &Store{path: path}
}

// fileState is the on-disk shape of the role configuration.
type fileState struct {
	CoOwners        []string `toml:"co_owners"`
	Managers        []string `toml:"managers"`
	LogChannel      int64    `toml:"log_channel"`
	ConnectedGroups []int64  `toml:"connected_groups"`
}

// Load reads the persisted state. A missing file is an empty state, not an
// error; a first run starts with no co-owners or managers.
func (s *Store) Load() (domain.RoleState, error) {
	var fs fileState
	if _, err := toml.DecodeFile(s.path, &fs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.RoleState{}, nil
		}
		return domain.RoleState{}, fmt.Errorf("load roles: %w", err)
	}
	return domain.RoleState{
		CoOwners:        fs.CoOwners,
		Managers:        fs.Managers,
		LogChannel:      fs.LogChannel,
		ConnectedGroups: fs.ConnectedGroups,
	}, nil
}

// Save rewrites the file. Written to a temp file first so a crash mid-write
// never leaves a truncated config behind.
func (s *Store) Save(state domain.RoleState) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("save roles: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "roles-*.toml")
	if err != nil {
		return fmt.Errorf("save roles: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := toml.NewEncoder(tmp)
	err = enc.Encode(fileState{
		CoOwners:        state.CoOwners,
		Managers:        state.Managers,
		LogChannel:      state.LogChannel,
		ConnectedGroups: state.ConnectedGroups,
	})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("save roles: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("save roles: %w", err)
	}
	return nil
}
