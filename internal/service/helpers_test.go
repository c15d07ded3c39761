package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"org-directory-go/internal/repository"
	"org-directory-go/pkg/database"
	"org-directory-go/pkg/events"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.DirectoryEvent
}

func (p *recordingPublisher) Publish(_ context.Context, evts ...events.DirectoryEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evts...)
	return nil
}

func (p *recordingPublisher) ids(t events.Type) []uint {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []uint
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e.OrganizationID)
		}
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type fixture struct {
	db         *gorm.DB
	publisher  *recordingPublisher
	activities ActivityService
	phones     PhoneService
	buildings  BuildingService
	orgs       OrganizationService
	phoneRepo  repository.PhoneRepository
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "directory_test.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newFixture(t *testing.T, recursive bool) *fixture {
	t.Helper()
	db := newTestDB(t)
	pub := &recordingPublisher{}
	paging := Paging{DefaultSize: 100, MaxSize: 1000}

	activityRepo := repository.NewActivityRepository(db)
	phoneRepo := repository.NewPhoneRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	buildingRepo := repository.NewBuildingRepository(db)
	txm := repository.NewTxManager(db)

	activities := NewActivityService(activityRepo, txm, pub, ActivityOptions{MaxDepth: 3, RecursiveQueries: recursive, Paging: paging})
	phones := NewPhoneService(phoneRepo, orgRepo, pub)
	return &fixture{
		db:         db,
		publisher:  pub,
		activities: activities,
		phones:     phones,
		phoneRepo:  phoneRepo,
		buildings:  NewBuildingService(buildingRepo, orgRepo, phoneRepo, txm, pub, paging),
		orgs: NewOrganizationService(OrganizationDeps{
			Organizations: orgRepo,
			Buildings:     buildingRepo,
			Activities:    activityRepo,
			Phones:        phoneRepo,
			PhoneService:  phones,
			Hierarchy:     activities,
			TxManager:     txm,
			Publisher:     pub,
			Paging:        paging,
		}),
	}
}

// forEachStrategy 对递归查询和 BFS 两种子孙展开策略各跑一遍同样的断言。
func forEachStrategy(t *testing.T, fn func(t *testing.T, f *fixture)) {
	for _, tc := range []struct {
		name      string
		recursive bool
	}{{"recursive", true}, {"bfs", false}} {
		t.Run(tc.name, func(t *testing.T) {
			fn(t, newFixture(t, tc.recursive))
		})
	}
}

func uintPtr(v uint) *uint { return &v }

func strPtr(s string) *string { return &s }
