package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/referolabs/refero/internal/common"
	"github.com/referolabs/refero/internal/interfaces"
)

// Manager bundles all storage instances over one Badger connection
type Manager struct {
	db       *BadgerDB
	users    *UserStorage
	reports  *ReportStorage
	jobs     *JobStorage
	outcomes *OutcomeStorage
	kv       *KVStorage
}

// Compile-time interface assertion
var _ interfaces.StorageManager = (*Manager)(nil)

// NewManager opens the database and wires up all storage instances
func NewManager(config *common.BadgerConfig, logger arbor.ILogger) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	return &Manager{
		db:       db,
		users:    NewUserStorage(db, logger),
		reports:  NewReportStorage(db, logger),
		jobs:     NewJobStorage(db, logger),
		outcomes: NewOutcomeStorage(db, logger),
		kv:       NewKVStorage(db, logger),
	}, nil
}

func (m *Manager) Users() interfaces.UserStorage        { return m.users }
func (m *Manager) Reports() interfaces.ReportStorage    { return m.reports }
func (m *Manager) Jobs() interfaces.JobStorage          { return m.jobs }
func (m *Manager) Outcomes() interfaces.OutcomeStorage  { return m.outcomes }
func (m *Manager) KV() interfaces.KeyValueStorage       { return m.kv }

// Close closes the underlying database
func (m *Manager) Close() error {
	return m.db.Close()
}
