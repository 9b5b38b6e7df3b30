package registry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("registry record not found")

// Repository - чтение реестра проектов/P&ID/линий/оборудования
type Repository interface {
	// WithTx возвращает репозиторий, работающий внутри транзакции tx
	WithTx(tx *gorm.DB) Repository
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	GetPID(ctx context.Context, id uuid.UUID) (PID, error)
	LinesByPID(ctx context.Context, pidID uuid.UUID) ([]Line, error)
	EquipmentByPID(ctx context.Context, pidID uuid.UUID) ([]Equipment, error)
	// AnyLineByPID - детерминированно выбранная линия чертежа (наименьший id)
	AnyLineByPID(ctx context.Context, pidID uuid.UUID) (uuid.UUID, bool, error)
	CreateLines(ctx context.Context, pid PID, lineNumbers []string) ([]Line, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	var user User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrNotFound
	}
	return user, err
}

func (r *repository) GetPID(ctx context.Context, id uuid.UUID) (PID, error) {
	var pid PID
	err := r.db.WithContext(ctx).First(&pid, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PID{}, ErrNotFound
	}
	return pid, err
}

func (r *repository) LinesByPID(ctx context.Context, pidID uuid.UUID) ([]Line, error) {
	var lines []Line
	err := r.db.WithContext(ctx).
		Where("pid_id = ?", pidID).
		Order("line_no").
		Find(&lines).Error
	return lines, err
}

func (r *repository) EquipmentByPID(ctx context.Context, pidID uuid.UUID) ([]Equipment, error) {
	var equipment []Equipment
	err := r.db.WithContext(ctx).
		Where("pid_id = ?", pidID).
		Order("equipment_no").
		Find(&equipment).Error
	return equipment, err
}

func (r *repository) AnyLineByPID(ctx context.Context, pidID uuid.UUID) (uuid.UUID, bool, error) {
	var lines []Line
	err := r.db.WithContext(ctx).
		Where("pid_id = ?", pidID).
		Order("id").
		Limit(1).
		Find(&lines).Error
	if err != nil {
		return uuid.Nil, false, err
	}
	if len(lines) == 0 {
		return uuid.Nil, false, nil
	}
	return lines[0].ID, true, nil
}

// CreateLines добавляет линии чертежа одной транзакцией: либо все, либо ни одной
func (r *repository) CreateLines(ctx context.Context, pid PID, lineNumbers []string) ([]Line, error) {
	now := time.Now().UTC()
	lines := make([]Line, 0, len(lineNumbers))
	for _, number := range lineNumbers {
		lines = append(lines, Line{
			ID:        uuid.New(),
			PIDID:     pid.ID,
			ProjectID: pid.ProjectID,
			LineNo:    number,
			CreatedAt: now,
		})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range lines {
			if err := tx.Create(&lines[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}
