package task

import (
	"context"
	"time"
)

// ComputeProgress - процент выполненных элементов с округлением к ближайшему (0.5 вверх).
// Пока хотя бы один элемент не завершён, результат не больше 99.
func ComputeProgress(done, total int64) int {
	if total <= 0 || done <= 0 {
		return 0
	}
	if done >= total {
		return 100
	}
	p := int((200*done + total) / (2 * total))
	if p >= 100 {
		return 99
	}
	return p
}

// applyProgress выставляет progress и выводит статус задачи.
// touched - было ли действие, переводящее задачу из Assigned в InProgress.
func applyProgress(t *Task, done, total int64, touched bool, now time.Time) {
	t.Progress = ComputeProgress(done, total)
	t.UpdatedAt = now

	if touched && t.Status == StatusAssigned {
		t.Status = StatusInProgress
	}
	if t.Progress == 100 && t.Status != StatusCompleted {
		t.Status = StatusCompleted
		completed := now
		t.CompletedAt = &completed
	}
}

// recompute пересчитывает и сохраняет агрегат задачи внутри текущей транзакции
func recompute(ctx context.Context, repo Repository, t *Task, touched bool, now time.Time) error {
	done, total, err := repo.CountDone(ctx, *t)
	if err != nil {
		return err
	}
	applyProgress(t, done, total, touched, now)
	return repo.SaveTaskState(ctx, *t)
}
