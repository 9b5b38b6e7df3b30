package task

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/CognitionIES/teamsync/internal/apperr"
	"github.com/CognitionIES/teamsync/internal/audit"
	"github.com/CognitionIES/teamsync/internal/auth"
	"github.com/CognitionIES/teamsync/internal/events"
	"github.com/CognitionIES/teamsync/internal/registry"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const maxAssignItems = 1000

// AssignItems создаёт задачу и по элементу на каждую позицию; любая ошибка откатывает всё
func (s *service) AssignItems(ctx context.Context, actor auth.Principal, in AssignItemsInput) (Details, error) {
	if !actor.CanAssign() {
		return Details{}, apperr.Forbidden("role %s cannot assign tasks", actor.Role)
	}
	if !in.TaskType.Valid() {
		return Details{}, apperr.Validation("invalid task type %q", in.TaskType)
	}
	if in.AssigneeID == uuid.Nil {
		return Details{}, apperr.Validation("assignee_id is required")
	}
	if len(in.Items) == 0 {
		return Details{}, apperr.Validation("at least one item is required")
	}
	if len(in.Items) > maxAssignItems {
		return Details{}, apperr.Validation("too many items: %d (max %d)", len(in.Items), maxAssignItems)
	}
	for i, item := range in.Items {
		if strings.TrimSpace(item.Name) == "" {
			return Details{}, apperr.Validation("items[%d]: name is required", i)
		}
		if !item.Type.Valid() {
			return Details{}, apperr.Validation("items[%d]: invalid item type %q", i, item.Type)
		}
	}

	now := s.clock()
	t := Task{
		ID:         uuid.New(),
		Type:       in.TaskType,
		AssigneeID: in.AssigneeID,
		AssignedBy: actor.UserID,
		ProjectID:  in.ProjectID,
		Status:     StatusAssigned,
		IsComplex:  in.IsComplex,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	items := make([]WorkItem, 0, len(in.Items))
	for _, item := range in.Items {
		items = append(items, WorkItem{
			ID:        uuid.New(),
			TaskID:    t.ID,
			Name:      strings.TrimSpace(item.Name),
			ItemType:  item.Type,
			CreatedAt: now,
		})
	}

	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := s.registry.WithTx(tx).GetUser(ctx, in.AssigneeID); err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				return apperr.NotFound("user %s not found", in.AssigneeID)
			}
			return apperr.Persistence(err, "failed to load assignee")
		}

		if err := repo.CreateTask(ctx, &t); err != nil {
			return apperr.Persistence(err, "failed to create task")
		}
		for i := range items {
			if err := repo.CreateWorkItem(ctx, &items[i]); err != nil {
				return apperr.Persistence(err, "failed to create work item")
			}
		}
		return nil
	})
	if err != nil {
		return Details{}, storeErr(err, "failed to assign task")
	}

	s.logger.WithFields(logrus.Fields{
		"task_id":  t.ID,
		"assignee": t.AssigneeID,
		"items":    len(items),
	}).Info("task assigned")
	s.audit.Record(audit.NewEntry(audit.TypeTask, string(t.Type), actor.UserID,
		fmt.Sprintf("assigned task %s with %d items to %s", t.ID, len(items), t.AssigneeID)))
	s.publish(ctx, events.TypeTaskAssigned, t, actor)

	return Details{Task: t, Items: items}, nil
}

// AssignPID назначает все линии и оборудование чертежа пользователю.
// Задача того же пользователя, типа и проекта, созданная в пределах окна и ещё не начатая, переиспользуется.
func (s *service) AssignPID(ctx context.Context, actor auth.Principal, in AssignPIDInput) (AssignPIDResult, error) {
	if !actor.CanAssign() {
		return AssignPIDResult{}, apperr.Forbidden("role %s cannot assign tasks", actor.Role)
	}
	if !in.TaskType.Valid() {
		return AssignPIDResult{}, apperr.Validation("invalid task type %q", in.TaskType)
	}
	if in.PIDID == uuid.Nil || in.UserID == uuid.Nil || in.ProjectID == uuid.Nil {
		return AssignPIDResult{}, apperr.Validation("pid_id, user_id and project_id are required")
	}

	now := s.clock()
	var result AssignPIDResult

	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		reg := s.registry.WithTx(tx)

		pid, err := reg.GetPID(ctx, in.PIDID)
		if err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				return apperr.NotFound("pid %s not found", in.PIDID)
			}
			return apperr.Persistence(err, "failed to load pid")
		}
		if pid.ProjectID != in.ProjectID {
			return apperr.Validation("pid %s does not belong to project %s", pid.ID, in.ProjectID)
		}
		if _, err := reg.GetUser(ctx, in.UserID); err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				return apperr.NotFound("user %s not found", in.UserID)
			}
			return apperr.Persistence(err, "failed to load assignee")
		}

		// один чертёж на один тип задачи не делится между исполнителями;
		// параллельное назначение ждёт на первичном ключе заявки
		holder, err := repo.ClaimPID(ctx, pid.ID, in.TaskType, in.UserID, now)
		if err != nil {
			return apperr.Persistence(err, "failed to check pid assignment")
		}
		if holder != in.UserID {
			return s.alreadyAssigned(ctx, reg, pid, in.TaskType, holder)
		}

		lines, err := reg.LinesByPID(ctx, pid.ID)
		if err != nil {
			return apperr.Persistence(err, "failed to load pid lines")
		}
		equipment, err := reg.EquipmentByPID(ctx, pid.ID)
		if err != nil {
			return apperr.Persistence(err, "failed to load pid equipment")
		}
		if len(lines)+len(equipment) == 0 {
			return apperr.ValidationCode(apperr.CodeNoItemsCreated, "pid %s has no lines or equipment", pid.Number)
		}

		t, found, err := repo.FindReusableTask(ctx, in.UserID, in.TaskType, in.ProjectID, now.Add(-s.reuseWindow))
		if err != nil {
			return apperr.Persistence(err, "failed to look up reusable task")
		}
		if !found {
			projectID := in.ProjectID
			t = Task{
				ID:         uuid.New(),
				Type:       in.TaskType,
				AssigneeID: in.UserID,
				AssignedBy: actor.UserID,
				ProjectID:  &projectID,
				Status:     StatusAssigned,
				IsPIDBased: true,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := repo.CreateTask(ctx, &t); err != nil {
				return apperr.Persistence(err, "failed to create task")
			}
		}

		created := 0
		for _, line := range lines {
			lineID := line.ID
			if s.insertItem(ctx, tx, s.newPIDItem(t, pid, in, &lineID, nil, now)) {
				created++
			}
		}
		for _, eq := range equipment {
			equipmentID := eq.ID
			if s.insertItem(ctx, tx, s.newPIDItem(t, pid, in, nil, &equipmentID, now)) {
				created++
			}
		}
		if created == 0 {
			return apperr.Conflict(apperr.CodeNoItemsCreated, "no new items were assigned for pid %s", pid.Number)
		}

		// новые элементы понижают процент переиспользованной задачи
		if err := recompute(ctx, repo, &t, false, now); err != nil {
			return apperr.Persistence(err, "failed to update task progress")
		}

		result = AssignPIDResult{
			Task:       t,
			PIDNumber:  pid.Number,
			ItemsCount: created,
			IsNewTask:  !found,
		}
		return nil
	})
	if err != nil {
		return AssignPIDResult{}, storeErr(err, "failed to assign pid")
	}

	s.logger.WithFields(logrus.Fields{
		"task_id":  result.Task.ID,
		"pid":      result.PIDNumber,
		"assignee": in.UserID,
		"items":    result.ItemsCount,
		"new_task": result.IsNewTask,
	}).Info("pid assigned")
	s.audit.Record(audit.NewEntry(audit.TypePID, result.PIDNumber, actor.UserID,
		fmt.Sprintf("assigned pid %s (%s) to %s in task %s", result.PIDNumber, in.TaskType, in.UserID, result.Task.ID)))
	s.publish(ctx, events.TypeTaskAssigned, result.Task, actor)

	return result, nil
}

func (s *service) newPIDItem(t Task, pid registry.PID, in AssignPIDInput, lineID, equipmentID *uuid.UUID, now time.Time) PIDWorkItem {
	return PIDWorkItem{
		ID:          uuid.New(),
		PIDID:       pid.ID,
		LineID:      lineID,
		EquipmentID: equipmentID,
		ItemKey:     ItemKey(lineID, equipmentID),
		UserID:      in.UserID,
		TaskID:      t.ID,
		TaskType:    in.TaskType,
		Status:      ItemPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// insertItem вставляет элемент в точке сохранения: сбой одной вставки не ломает транзакцию
func (s *service) insertItem(ctx context.Context, tx *gorm.DB, item PIDWorkItem) bool {
	var created bool
	err := tx.Transaction(func(sp *gorm.DB) error {
		var err error
		created, err = s.repo.WithTx(sp).InsertPIDWorkItem(ctx, &item)
		return err
	})
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"pid_id":   item.PIDID,
			"item_key": item.ItemKey,
			"task_id":  item.TaskID,
		}).Warn("skip pid work item insert")
		return false
	}
	return created
}

func (s *service) alreadyAssigned(ctx context.Context, reg registry.Repository, pid registry.PID, taskType TaskType, holder uuid.UUID) error {
	name := holder.String()
	if user, err := reg.GetUser(ctx, holder); err == nil && user.Name != "" {
		name = user.Name
	}
	return apperr.Conflict(apperr.CodePIDAlreadyAssigned,
		"pid %s is already assigned to %s for %s", pid.Number, name, taskType).
		WithDetail("assigneeId", holder.String()).
		WithDetail("assigneeName", name)
}
