package registry

import (
	"time"

	"github.com/CognitionIES/teamsync/internal/auth"
	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	Email     string    `json:"email"`
	Role      auth.Role `json:"role" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
}

type Project struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

type Area struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID uuid.UUID `json:"project_id" gorm:"type:uuid;not null;index"`
	Name      string    `json:"name" gorm:"not null"`
}

// PID - чертёж P&ID, объединяющий линии и оборудование
type PID struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID uuid.UUID  `json:"project_id" gorm:"type:uuid;not null;index"`
	AreaID    *uuid.UUID `json:"area_id,omitempty" gorm:"type:uuid"`
	Number    string     `json:"pid_number" gorm:"not null"`
	CreatedAt time.Time  `json:"created_at"`
}

func (PID) TableName() string {
	return "pids"
}

type Line struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	PIDID     uuid.UUID `json:"pid_id" gorm:"column:pid_id;type:uuid;not null;index"`
	ProjectID uuid.UUID `json:"project_id" gorm:"type:uuid;not null"`
	LineNo    string    `json:"line_number" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

type Equipment struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	PIDID       uuid.UUID `json:"pid_id" gorm:"column:pid_id;type:uuid;not null;index"`
	ProjectID   uuid.UUID `json:"project_id" gorm:"type:uuid;not null"`
	EquipmentNo string    `json:"equipment_number" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Equipment) TableName() string {
	return "equipment"
}

// Models возвращает все модели реестра для миграции
func Models() []interface{} {
	return []interface{}{&User{}, &Project{}, &Area{}, &PID{}, &Line{}, &Equipment{}}
}
