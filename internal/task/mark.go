package task

import (
	"context"

	"github.com/CognitionIES/teamsync/internal/apperr"
	"github.com/CognitionIES/teamsync/internal/auth"
	"github.com/CognitionIES/teamsync/internal/metrics"
	"github.com/CognitionIES/teamsync/internal/registry"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func (in MarkInput) validate() error {
	if in.PIDID == uuid.Nil || in.UserID == uuid.Nil {
		return apperr.Validation("pid_id and user_id are required")
	}
	if in.LineID != nil && in.EquipmentID != nil {
		return apperr.Validation("only one of line_id and equipment_id may be set")
	}
	if !in.TaskType.Valid() {
		return apperr.Validation("invalid task type %q", in.TaskType)
	}
	if !in.Status.Requestable() {
		return apperr.Validation("status must be InProgress, Completed or Skipped")
	}
	if in.Blocks < 0 {
		return apperr.Validation("blocks must not be negative")
	}
	if in.Status == ItemCompleted && in.Blocks <= 0 {
		return apperr.Validation("blocks must be greater than zero to complete an item")
	}
	return nil
}

// MarkPIDItem меняет статус элемента P&ID, пересчитывает задачу и пишет метрику - всё в одной транзакции
func (s *service) MarkPIDItem(ctx context.Context, actor auth.Principal, in MarkInput) (MarkResult, error) {
	if err := in.validate(); err != nil {
		return MarkResult{}, err
	}
	if !actor.CanActFor(in.UserID) {
		return MarkResult{}, apperr.Forbidden("cannot update items assigned to another user")
	}

	now := s.clock()
	var (
		result  MarkResult
		changed bool
	)

	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		found, err := repo.FindPIDWorkItem(ctx, ItemLookup{
			PIDID:       in.PIDID,
			LineID:      in.LineID,
			EquipmentID: in.EquipmentID,
			UserID:      in.UserID,
			TaskType:    in.TaskType,
		})
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return apperr.NotFound("item is not assigned to this user")
			}
			return apperr.Persistence(err, "failed to load item")
		}

		// блокировка задачи упорядочивает параллельные изменения её элементов
		if err := repo.LockTask(ctx, found.TaskID); err != nil {
			return storeErr(err, "failed to lock task")
		}
		item, err := repo.GetPIDWorkItem(ctx, found.ID)
		if err != nil {
			return storeErr(err, "failed to reload item")
		}
		t, err := repo.GetTask(ctx, item.TaskID)
		if err != nil {
			return storeErr(err, "failed to load task")
		}

		if item.Status.Terminal() {
			if item.Status != in.Status {
				return apperr.Conflict(apperr.CodeItemAlreadyFinal, "item is already %s", item.Status)
			}
			result = MarkResult{Item: item, Task: t}
			return nil
		}
		if item.Status == in.Status {
			if in.Remarks == nil || (item.Remarks != nil && *item.Remarks == *in.Remarks) {
				result = MarkResult{Item: item, Task: t}
				return nil
			}
			// статус тот же, сохраняются только замечания
			item.Remarks = in.Remarks
			item.UpdatedAt = now
			ok, err := repo.UpdatePIDWorkItem(ctx, item, item.Status)
			if err != nil {
				return apperr.Persistence(err, "failed to update item")
			}
			if !ok {
				return apperr.Conflict(apperr.CodeConcurrentUpdate, "item was changed by another request")
			}
			result = MarkResult{Item: item, Task: t}
			return nil
		}

		prev := item.Status
		item.Status = in.Status
		item.UpdatedAt = now
		if in.Remarks != nil {
			item.Remarks = in.Remarks
		}
		if in.Status == ItemCompleted {
			item.Blocks = in.Blocks
			completedAt := now
			item.CompletedAt = &completedAt
		}

		ok, err := repo.UpdatePIDWorkItem(ctx, item, prev)
		if err != nil {
			return apperr.Persistence(err, "failed to update item")
		}
		if !ok {
			return apperr.Conflict(apperr.CodeConcurrentUpdate, "item was changed by another request")
		}

		if in.Status == ItemCompleted && item.Blocks > 0 {
			s.recordMetric(ctx, tx, func(reg registry.Repository) (uuid.UUID, error) {
				return pidMetricEntity(ctx, reg, item)
			}, metrics.Increment{
				UserID:   item.UserID,
				ItemType: string(item.ItemType()),
				TaskType: string(item.TaskType),
				At:       now,
				Blocks:   item.Blocks,
			})
		}

		touched := in.Status == ItemInProgress || in.Status == ItemCompleted
		if err := recompute(ctx, repo, &t, touched, now); err != nil {
			return apperr.Persistence(err, "failed to update task progress")
		}

		result = MarkResult{Item: item, Task: t}
		changed = true
		return nil
	})
	if err != nil {
		return MarkResult{}, storeErr(err, "failed to update item")
	}

	if changed {
		s.logger.WithFields(logrus.Fields{
			"item_id":  result.Item.ID,
			"status":   result.Item.Status,
			"task_id":  result.Task.ID,
			"progress": result.Task.Progress,
		}).Info("pid item updated")
		s.publish(ctx, progressEvent(result.Task), result.Task, actor)
	}
	return result, nil
}

// CompleteWorkItem отмечает элемент явного назначения выполненным
func (s *service) CompleteWorkItem(ctx context.Context, actor auth.Principal, itemID uuid.UUID, blocks int) (CompleteResult, error) {
	if itemID == uuid.Nil {
		return CompleteResult{}, apperr.Validation("id is required")
	}
	if blocks <= 0 {
		return CompleteResult{}, apperr.Validation("blocks must be greater than zero to complete an item")
	}

	now := s.clock()
	var (
		result  CompleteResult
		changed bool
	)

	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.GetWorkItem(ctx, itemID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return apperr.NotFound("work item not found")
			}
			return apperr.Persistence(err, "failed to load work item")
		}
		t, err := repo.GetTask(ctx, item.TaskID)
		if err != nil {
			return storeErr(err, "failed to load task")
		}
		if !actor.CanActFor(t.AssigneeID) {
			return apperr.Forbidden("cannot update items assigned to another user")
		}

		if err := repo.LockTask(ctx, t.ID); err != nil {
			return storeErr(err, "failed to lock task")
		}
		if item, err = repo.GetWorkItem(ctx, itemID); err != nil {
			return storeErr(err, "failed to reload work item")
		}
		if t, err = repo.GetTask(ctx, item.TaskID); err != nil {
			return storeErr(err, "failed to load task")
		}

		if item.Completed {
			result = CompleteResult{Item: item, Task: t}
			return nil
		}

		ok, err := repo.CompleteWorkItem(ctx, item.ID, blocks, now)
		if err != nil {
			return apperr.Persistence(err, "failed to complete work item")
		}
		if !ok {
			return apperr.Conflict(apperr.CodeConcurrentUpdate, "work item was changed by another request")
		}
		completedAt := now
		item.Completed = true
		item.CompletedAt = &completedAt
		item.Blocks = blocks

		s.recordMetric(ctx, tx, func(registry.Repository) (uuid.UUID, error) {
			return item.ID, nil
		}, metrics.Increment{
			UserID:   t.AssigneeID,
			ItemType: string(item.ItemType),
			TaskType: string(t.Type),
			At:       now,
			Blocks:   blocks,
		})

		if err := recompute(ctx, repo, &t, true, now); err != nil {
			return apperr.Persistence(err, "failed to update task progress")
		}

		result = CompleteResult{Item: item, Task: t}
		changed = true
		return nil
	})
	if err != nil {
		return CompleteResult{}, storeErr(err, "failed to complete work item")
	}

	if changed {
		s.logger.WithFields(logrus.Fields{
			"item_id":  result.Item.ID,
			"task_id":  result.Task.ID,
			"progress": result.Task.Progress,
		}).Info("work item completed")
		s.publish(ctx, progressEvent(result.Task), result.Task, actor)
	}
	return result, nil
}

// UpdateTaskStatus - ручная смена статуса простой задачи.
// Completed принимается только когда все элементы уже завершены.
func (s *service) UpdateTaskStatus(ctx context.Context, actor auth.Principal, taskID uuid.UUID, status Status) (Task, error) {
	if status != StatusInProgress && status != StatusCompleted {
		return Task{}, apperr.Validation("status must be InProgress or Completed")
	}

	now := s.clock()
	var (
		result  Task
		changed bool
	)

	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		t, err := repo.GetTask(ctx, taskID)
		if err != nil {
			return storeErr(err, "failed to load task")
		}
		if !actor.SeesAll() && t.AssigneeID != actor.UserID {
			return apperr.NotFound("task not found")
		}
		if !actor.CanActFor(t.AssigneeID) {
			return apperr.Forbidden("cannot change status of this task")
		}
		if t.IsComplex {
			return apperr.Validation("status of a complex task is derived from its items")
		}

		if err := repo.LockTask(ctx, t.ID); err != nil {
			return storeErr(err, "failed to lock task")
		}
		if t, err = repo.GetTask(ctx, taskID); err != nil {
			return storeErr(err, "failed to load task")
		}

		switch status {
		case StatusInProgress:
			switch t.Status {
			case StatusInProgress:
				result = t
				return nil
			case StatusCompleted:
				return apperr.Conflict(apperr.CodeTaskCompleted, "task is already completed")
			}
			t.Status = StatusInProgress
			t.UpdatedAt = now
			if err := repo.SaveTaskState(ctx, t); err != nil {
				return apperr.Persistence(err, "failed to update task")
			}
		case StatusCompleted:
			if t.Status == StatusCompleted {
				result = t
				return nil
			}
			done, total, err := repo.CountDone(ctx, t)
			if err != nil {
				return apperr.Persistence(err, "failed to count task items")
			}
			if ComputeProgress(done, total) != 100 {
				return apperr.Conflict(apperr.CodeTaskNotFinished,
					"task has %d of %d items finished", done, total)
			}
			applyProgress(&t, done, total, true, now)
			if err := repo.SaveTaskState(ctx, t); err != nil {
				return apperr.Persistence(err, "failed to update task")
			}
		}

		result = t
		changed = true
		return nil
	})
	if err != nil {
		return Task{}, storeErr(err, "failed to update task status")
	}

	if changed {
		s.logger.WithFields(logrus.Fields{
			"task_id": result.ID,
			"status":  result.Status,
		}).Info("task status changed")
		s.publish(ctx, progressEvent(result), result, actor)
	}
	return result, nil
}

// recordMetric увеличивает счётчик в точке сохранения: сбой метрики откатывается отдельно и только логируется
func (s *service) recordMetric(ctx context.Context, tx *gorm.DB, entity func(registry.Repository) (uuid.UUID, error), inc metrics.Increment) {
	err := tx.Transaction(func(sp *gorm.DB) error {
		id, err := entity(s.registry.WithTx(sp))
		if err != nil {
			return errors.Wrap(err, "resolve metric entity")
		}
		inc.EntityID = id
		return s.ledger.WithTx(sp).Increment(ctx, inc)
	})
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":   inc.UserID,
			"item_type": inc.ItemType,
			"task_type": inc.TaskType,
		}).Error("failed to increment daily metric")
	}
}

// pidMetricEntity - сущность, к которой привязывается метрика элемента P&ID:
// линия - сама линия; оборудование, прибор и заголовок чертежа - любая линия того же P&ID,
// а если линий нет - собственный id элемента.
func pidMetricEntity(ctx context.Context, reg registry.Repository, item PIDWorkItem) (uuid.UUID, error) {
	if item.LineID != nil {
		return *item.LineID, nil
	}
	lineID, ok, err := reg.AnyLineByPID(ctx, item.PIDID)
	if err != nil {
		return uuid.Nil, err
	}
	if ok {
		return lineID, nil
	}
	if item.EquipmentID != nil {
		return *item.EquipmentID, nil
	}
	return item.PIDID, nil
}
