package task

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/CognitionIES/teamsync/internal/auth"
	"github.com/CognitionIES/teamsync/internal/database/dbtest"
	"github.com/CognitionIES/teamsync/internal/events"
	"github.com/CognitionIES/teamsync/internal/metrics"
	"github.com/CognitionIES/teamsync/internal/registry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var startTime = time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.TaskEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event events.TaskEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Last() events.TaskEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return events.TaskEvent{}
	}
	return p.events[len(p.events)-1]
}

type fixture struct {
	t       *testing.T
	db      *gorm.DB
	repo    Repository
	reg     registry.Repository
	ledger  metrics.Ledger
	svc     Service
	clock   *fakeClock
	pub     *recordingPublisher
	project registry.Project

	lead  auth.Principal
	alice auth.Principal
	bob   auth.Principal
	entry auth.Principal
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	models := append(registry.Models(), Models()...)
	models = append(models, &metrics.DailyMetric{})
	db := dbtest.Open(t, models...)

	f := &fixture{
		t:      t,
		db:     db,
		repo:   NewRepository(db),
		reg:    registry.NewRepository(db),
		ledger: metrics.NewLedger(db),
		clock:  &fakeClock{now: startTime},
		pub:    &recordingPublisher{},
	}

	f.lead = f.user("Lena Lead", auth.RoleTeamLead)
	f.alice = f.user("Alice", auth.RoleTeamMember)
	f.bob = f.user("Bob", auth.RoleTeamMember)
	f.entry = f.user("Dana Entry", auth.RoleDataEntry)

	f.project = registry.Project{ID: uuid.New(), Name: "Refinery Upgrade"}
	require.NoError(t, db.Create(&f.project).Error)

	base := []Option{WithClock(f.clock.Now), WithPublisher(f.pub)}
	f.svc = NewService(f.repo, f.reg, f.ledger, append(base, opts...)...)
	return f
}

func (f *fixture) user(name string, role auth.Role) auth.Principal {
	f.t.Helper()
	u := registry.User{ID: uuid.New(), Name: name, Role: role}
	require.NoError(f.t, f.db.Create(&u).Error)
	return auth.Principal{UserID: u.ID, Role: role, Name: name}
}

// pid заводит чертёж с заданным числом линий и оборудования
func (f *fixture) pid(number string, lines, equipment int) (registry.PID, []registry.Line, []registry.Equipment) {
	f.t.Helper()
	pid := registry.PID{ID: uuid.New(), ProjectID: f.project.ID, Number: number}
	require.NoError(f.t, f.db.Create(&pid).Error)

	var ls []registry.Line
	for i := 0; i < lines; i++ {
		l := registry.Line{
			ID:        uuid.New(),
			PIDID:     pid.ID,
			ProjectID: pid.ProjectID,
			LineNo:    number + "-L" + string(rune('1'+i)),
		}
		require.NoError(f.t, f.db.Create(&l).Error)
		ls = append(ls, l)
	}

	var es []registry.Equipment
	for i := 0; i < equipment; i++ {
		e := registry.Equipment{
			ID:          uuid.New(),
			PIDID:       pid.ID,
			ProjectID:   pid.ProjectID,
			EquipmentNo: number + "-E" + string(rune('1'+i)),
		}
		require.NoError(f.t, f.db.Create(&e).Error)
		es = append(es, e)
	}
	return pid, ls, es
}

func (f *fixture) assignPID(pid registry.PID, to auth.Principal, taskType TaskType) AssignPIDResult {
	f.t.Helper()
	res, err := f.svc.AssignPID(context.Background(), f.lead, AssignPIDInput{
		PIDID:     pid.ID,
		UserID:    to.UserID,
		TaskType:  taskType,
		ProjectID: f.project.ID,
	})
	require.NoError(f.t, err)
	return res
}

func (f *fixture) markLine(actor auth.Principal, pid registry.PID, line registry.Line, owner uuid.UUID, status ItemStatus, blocks int) (MarkResult, error) {
	lineID := line.ID
	return f.svc.MarkPIDItem(context.Background(), actor, MarkInput{
		PIDID:    pid.ID,
		LineID:   &lineID,
		UserID:   owner,
		TaskType: TypeRedline,
		Status:   status,
		Blocks:   blocks,
	})
}

func (f *fixture) task(id uuid.UUID) Task {
	f.t.Helper()
	t, err := f.repo.GetTask(context.Background(), id)
	require.NoError(f.t, err)
	return t
}

func (f *fixture) metricRows() []metrics.DailyMetric {
	f.t.Helper()
	var rows []metrics.DailyMetric
	require.NoError(f.t, f.db.Order("entity_id").Find(&rows).Error)
	return rows
}
