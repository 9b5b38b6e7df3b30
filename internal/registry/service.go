package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/CognitionIES/teamsync/internal/apperr"
	"github.com/CognitionIES/teamsync/internal/audit"
	"github.com/CognitionIES/teamsync/internal/auth"
	"github.com/google/uuid"
)

const maxLinesPerBatch = 500

type Service interface {
	CreateLines(ctx context.Context, actor auth.Principal, pidID uuid.UUID, lineNumbers []string) ([]Line, error)
}

type service struct {
	repo  Repository
	audit *audit.Recorder
}

func NewService(repo Repository, recorder *audit.Recorder) Service {
	return &service{repo: repo, audit: recorder}
}

// CreateLines заводит пакет линий чертежа
func (s *service) CreateLines(ctx context.Context, actor auth.Principal, pidID uuid.UUID, lineNumbers []string) ([]Line, error) {
	if !actor.CanEditRegistry() {
		return nil, apperr.Forbidden("role %s may not create lines", actor.Role)
	}

	numbers := make([]string, 0, len(lineNumbers))
	seen := make(map[string]struct{}, len(lineNumbers))
	for _, number := range lineNumbers {
		number = strings.TrimSpace(number)
		if number == "" {
			return nil, apperr.Validation("line number must not be empty")
		}
		if _, dup := seen[number]; dup {
			return nil, apperr.Validation("duplicate line number %q", number)
		}
		seen[number] = struct{}{}
		numbers = append(numbers, number)
	}
	if len(numbers) == 0 {
		return nil, apperr.Validation("line_numbers is required")
	}
	if len(numbers) > maxLinesPerBatch {
		return nil, apperr.Validation("at most %d lines per request", maxLinesPerBatch)
	}

	pid, err := s.repo.GetPID(ctx, pidID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("pid %s not found", pidID)
		}
		return nil, apperr.Persistence(err, "failed to load pid")
	}

	lines, err := s.repo.CreateLines(ctx, pid, numbers)
	if err != nil {
		return nil, apperr.Persistence(err, "failed to create lines")
	}

	s.audit.Record(audit.NewEntry(
		audit.TypeLine,
		pid.Number,
		actor.UserID,
		fmt.Sprintf("%d lines created for pid %s", len(lines), pid.Number),
	))

	return lines, nil
}
