package migrations

import (
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/gorm"
)

// Migration is a named data fix applied after auto-migration.
type Migration struct {
	Name string
	Up   func(*gorm.DB) error
}

var (
	registryMu sync.RWMutex
	registry   []Migration
)

// Register adds a migration to the registry in FIFO order.
func Register(name string, fn func(*gorm.DB) error) {
	registryMu.Lock()
	defer registryMu.Unlock()

	registry = append(registry, Migration{Name: name, Up: fn})
}

// Registered returns a snapshot of the registry.
func Registered() []Migration {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Migration, len(registry))
	copy(out, registry)
	return out
}

// Run executes registered migrations sequentially, each in its own transaction.
func Run(db *gorm.DB, log *slog.Logger) error {
	migrations := Registered()
	if len(migrations) == 0 {
		log.Info("no database migrations registered")
		return nil
	}

	for _, migration := range migrations {
		log.Info("running migration", slog.String("name", migration.Name))

		if err := db.Transaction(migration.Up); err != nil {
			return fmt.Errorf("migration %s failed: %w", migration.Name, err)
		}

		log.Info("migration completed", slog.String("name", migration.Name))
	}

	return nil
}
