package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/seantiz/runbox/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func makeTestExecution() *model.Execution {
	return &model.Execution{
		ID:        model.NewID(),
		Status:    model.StatusPending,
		Language:  "python",
		Code:      "print('hi')",
		Input:     "stdin data",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestCreateAndGetExecution(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	x := makeTestExecution()

	if err := s.CreateExecution(ctx, x); err != nil {
		t.Fatalf("CreateExecution: %v", err)
	}

	got, err := s.GetExecution(ctx, x.ID)
	if err != nil {
		t.Fatalf("GetExecution: %v", err)
	}

	if got.ID != x.ID {
		t.Errorf("ID = %q, want %q", got.ID, x.ID)
	}
	if got.Status != x.Status {
		t.Errorf("Status = %q, want %q", got.Status, x.Status)
	}
	if got.Language != x.Language {
		t.Errorf("Language = %q, want %q", got.Language, x.Language)
	}
	if got.Code != x.Code {
		t.Errorf("Code = %q, want %q", got.Code, x.Code)
	}
	if got.Input != x.Input {
		t.Errorf("Input = %q, want %q", got.Input, x.Input)
	}
	if got.ExecutionTimeMS != nil {
		t.Errorf("ExecutionTimeMS = %d, want nil", *got.ExecutionTimeMS)
	}
	if got.StartedAt != nil || got.FinishedAt != nil {
		t.Error("StartedAt/FinishedAt should be nil for a pending execution")
	}
}

func TestGetExecutionNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetExecution(ctx, "nonexistent")
	if err != ErrNotFound {
		t.Errorf("GetExecution error = %v, want ErrNotFound", err)
	}
}

func TestListExecutionsPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		x := makeTestExecution()
		x.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second).Truncate(time.Second)
		if err := s.CreateExecution(ctx, x); err != nil {
			t.Fatalf("CreateExecution[%d]: %v", i, err)
		}
	}

	executions, total, err := s.ListExecutions(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListExecutions: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(executions) != 2 {
		t.Errorf("len(executions) = %d, want 2", len(executions))
	}

	executions2, total2, err := s.ListExecutions(ctx, 2, 4)
	if err != nil {
		t.Fatalf("ListExecutions last page: %v", err)
	}
	if total2 != 5 {
		t.Errorf("total last page = %d, want 5", total2)
	}
	if len(executions2) != 1 {
		t.Errorf("len(executions) last page = %d, want 1", len(executions2))
	}
}

func TestListExecutionsOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		x := makeTestExecution()
		x.CreatedAt = time.Date(2026, 1, 1+i, 0, 0, 0, 0, time.UTC)
		if err := s.CreateExecution(ctx, x); err != nil {
			t.Fatalf("CreateExecution[%d]: %v", i, err)
		}
	}

	executions, _, err := s.ListExecutions(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListExecutions: %v", err)
	}

	// Newest first.
	for i := 1; i < len(executions); i++ {
		if executions[i].CreatedAt.After(executions[i-1].CreatedAt) {
			t.Errorf("executions not in DESC order: [%d].CreatedAt=%v > [%d].CreatedAt=%v",
				i, executions[i].CreatedAt, i-1, executions[i-1].CreatedAt)
		}
	}
}

func TestListExecutionsEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	executions, total, err := s.ListExecutions(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListExecutions: %v", err)
	}
	if total != 0 {
		t.Errorf("total = %d, want 0", total)
	}
	if executions != nil {
		t.Errorf("executions = %v, want nil", executions)
	}
}

func TestUpdateExecutionStatusValidLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	x := makeTestExecution()

	if err := s.CreateExecution(ctx, x); err != nil {
		t.Fatalf("CreateExecution: %v", err)
	}

	if err := s.UpdateExecutionStatus(ctx, x.ID, model.StatusRunning); err != nil {
		t.Fatalf("pending→running: %v", err)
	}
	got, _ := s.GetExecution(ctx, x.ID)
	if got.Status != model.StatusRunning {
		t.Errorf("Status = %q, want %q", got.Status, model.StatusRunning)
	}
	if got.StartedAt == nil {
		t.Error("StartedAt is nil, expected it to be set for running status")
	}

	if err := s.UpdateExecutionStatus(ctx, x.ID, model.StatusCompleted); err != nil {
		t.Fatalf("running→completed: %v", err)
	}
	got, _ = s.GetExecution(ctx, x.ID)
	if got.Status != model.StatusCompleted {
		t.Errorf("Status = %q, want %q", got.Status, model.StatusCompleted)
	}
	if got.FinishedAt == nil {
		t.Error("FinishedAt is nil, expected it to be set for completed status")
	}
}

func TestUpdateExecutionStatusPendingToFailed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	x := makeTestExecution()

	if err := s.CreateExecution(ctx, x); err != nil {
		t.Fatalf("CreateExecution: %v", err)
	}
	if err := s.UpdateExecutionStatus(ctx, x.ID, model.StatusFailed); err != nil {
		t.Fatalf("pending→failed: %v", err)
	}

	got, _ := s.GetExecution(ctx, x.ID)
	if got.FinishedAt == nil {
		t.Error("FinishedAt is nil, expected it to be set for failed status")
	}
}

func TestUpdateExecutionStatusNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.UpdateExecutionStatus(ctx, "nonexistent", model.StatusRunning)
	if err != ErrNotFound {
		t.Errorf("UpdateExecutionStatus error = %v, want ErrNotFound", err)
	}
}

func TestUpdateExecutionStatusInvalidTransition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		from, to string
	}{
		{"pending→completed", model.StatusPending, model.StatusCompleted},
		{"running→pending", model.StatusRunning, model.StatusPending},
		{"completed→running", model.StatusCompleted, model.StatusRunning},
		{"failed→completed", model.StatusFailed, model.StatusCompleted},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x := makeTestExecution()
			x.Status = tc.from
			if err := s.CreateExecution(ctx, x); err != nil {
				t.Fatalf("CreateExecution: %v", err)
			}

			err := s.UpdateExecutionStatus(ctx, x.ID, tc.to)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("got error %v, want ErrInvalidTransition", err)
			}
		})
	}
}

func TestUpdateExecution(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	x := makeTestExecution()

	if err := s.CreateExecution(ctx, x); err != nil {
		t.Fatalf("CreateExecution: %v", err)
	}
	if err := s.UpdateExecutionStatus(ctx, x.ID, model.StatusRunning); err != nil {
		t.Fatalf("pending→running: %v", err)
	}

	elapsed := int64(150)
	finishedAt := time.Now().UTC()
	x.Status = model.StatusCompleted
	x.Provider = model.ProviderLocal
	x.Success = true
	x.Output = "hello world"
	x.ExecutionTimeMS = &elapsed
	x.FinishedAt = &finishedAt

	if err := s.UpdateExecution(ctx, x); err != nil {
		t.Fatalf("UpdateExecution: %v", err)
	}

	got, err := s.GetExecution(ctx, x.ID)
	if err != nil {
		t.Fatalf("GetExecution: %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Errorf("Status = %q, want %q", got.Status, model.StatusCompleted)
	}
	if got.Provider != model.ProviderLocal {
		t.Errorf("Provider = %q, want %q", got.Provider, model.ProviderLocal)
	}
	if !got.Success {
		t.Error("Success = false, want true")
	}
	if got.Output != "hello world" {
		t.Errorf("Output = %q, want %q", got.Output, "hello world")
	}
	if got.ExecutionTimeMS == nil || *got.ExecutionTimeMS != 150 {
		t.Errorf("ExecutionTimeMS = %v, want 150", got.ExecutionTimeMS)
	}
	if got.StartedAt == nil {
		t.Error("StartedAt was cleared by UpdateExecution")
	}
	if got.FinishedAt == nil {
		t.Error("FinishedAt is nil")
	}
}

func TestUpdateExecutionNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	x := makeTestExecution()
	x.ID = "nonexistent"
	x.Status = model.StatusRunning
	err := s.UpdateExecution(ctx, x)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got error %v, want ErrNotFound", err)
	}
}

func TestUpdateExecutionInvalidTransition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	x := makeTestExecution()

	if err := s.CreateExecution(ctx, x); err != nil {
		t.Fatalf("CreateExecution: %v", err)
	}

	x.Status = model.StatusCompleted
	err := s.UpdateExecution(ctx, x)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("got error %v, want ErrInvalidTransition", err)
	}
}

func TestGetExecutionStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		x := makeTestExecution()
		if err := s.CreateExecution(ctx, x); err != nil {
			t.Fatalf("CreateExecution: %v", err)
		}
		// First two finish locally with 100 and 200 ms.
		if i < 2 {
			if err := s.UpdateExecutionStatus(ctx, x.ID, model.StatusRunning); err != nil {
				t.Fatalf("UpdateExecutionStatus running: %v", err)
			}
			elapsed := int64(100 + i*100)
			now := time.Now().UTC()
			x.Status = model.StatusCompleted
			x.Provider = model.ProviderLocal
			x.Success = true
			x.ExecutionTimeMS = &elapsed
			x.FinishedAt = &now
			if err := s.UpdateExecution(ctx, x); err != nil {
				t.Fatalf("UpdateExecution: %v", err)
			}
		}
	}

	x := makeTestExecution()
	x.Language = "rust"
	if err := s.CreateExecution(ctx, x); err != nil {
		t.Fatalf("CreateExecution (rust): %v", err)
	}

	stats, err := s.GetExecutionStats(ctx)
	if err != nil {
		t.Fatalf("GetExecutionStats: %v", err)
	}

	if stats.Total != 4 {
		t.Errorf("Total = %d, want 4", stats.Total)
	}
	if stats.CountByStatus[model.StatusCompleted] != 2 {
		t.Errorf("completed count = %d, want 2", stats.CountByStatus[model.StatusCompleted])
	}
	if stats.CountByStatus[model.StatusPending] != 2 {
		t.Errorf("pending count = %d, want 2", stats.CountByStatus[model.StatusPending])
	}
	if stats.CountByProvider[model.ProviderLocal] != 2 {
		t.Errorf("local count = %d, want 2", stats.CountByProvider[model.ProviderLocal])
	}
	if len(stats.CountByProvider) != 1 {
		t.Errorf("CountByProvider = %v, want only local", stats.CountByProvider)
	}
	if stats.CountByLanguage["python"] != 3 {
		t.Errorf("python count = %d, want 3", stats.CountByLanguage["python"])
	}
	if stats.CountByLanguage["rust"] != 1 {
		t.Errorf("rust count = %d, want 1", stats.CountByLanguage["rust"])
	}
	if stats.AvgExecutionTimeMS != 150 {
		t.Errorf("AvgExecutionTimeMS = %f, want 150", stats.AvgExecutionTimeMS)
	}
}

func TestGetExecutionStatsEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stats, err := s.GetExecutionStats(ctx)
	if err != nil {
		t.Fatalf("GetExecutionStats: %v", err)
	}
	if stats.Total != 0 {
		t.Errorf("Total = %d, want 0", stats.Total)
	}
	if stats.AvgExecutionTimeMS != 0 {
		t.Errorf("AvgExecutionTimeMS = %f, want 0", stats.AvgExecutionTimeMS)
	}
}

func TestInsertAndGetLogLines(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	x := makeTestExecution()
	if err := s.CreateExecution(ctx, x); err != nil {
		t.Fatalf("CreateExecution: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := s.InsertLogLine(ctx, x.ID, i, fmt.Sprintf("line %d", i)); err != nil {
			t.Fatalf("InsertLogLine[%d]: %v", i, err)
		}
	}

	lines, err := s.GetLogLines(ctx, x.ID)
	if err != nil {
		t.Fatalf("GetLogLines: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}

	for i, l := range lines {
		if l.Seq != i {
			t.Errorf("lines[%d].Seq = %d, want %d", i, l.Seq, i)
		}
		want := fmt.Sprintf("line %d", i)
		if l.Line != want {
			t.Errorf("lines[%d].Line = %q, want %q", i, l.Line, want)
		}
		if l.ExecutionID != x.ID {
			t.Errorf("lines[%d].ExecutionID = %q, want %q", i, l.ExecutionID, x.ID)
		}
		if l.ID == 0 {
			t.Errorf("lines[%d].ID = 0, expected non-zero auto-increment ID", i)
		}
	}
}

func TestGetLogLinesOrderedBySeq(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	x := makeTestExecution()
	if err := s.CreateExecution(ctx, x); err != nil {
		t.Fatalf("CreateExecution: %v", err)
	}

	for _, seq := range []int{2, 0, 1} {
		if err := s.InsertLogLine(ctx, x.ID, seq, fmt.Sprintf("line %d", seq)); err != nil {
			t.Fatalf("InsertLogLine(%d): %v", seq, err)
		}
	}

	lines, err := s.GetLogLines(ctx, x.ID)
	if err != nil {
		t.Fatalf("GetLogLines: %v", err)
	}
	for i, l := range lines {
		if l.Seq != i {
			t.Errorf("lines[%d].Seq = %d, want %d", i, l.Seq, i)
		}
	}
}

func TestGetLogLinesEmptyAndIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := makeTestExecution()
	b := makeTestExecution()
	for _, x := range []*model.Execution{a, b} {
		if err := s.CreateExecution(ctx, x); err != nil {
			t.Fatalf("CreateExecution: %v", err)
		}
	}
	if err := s.InsertLogLine(ctx, a.ID, 0, "only a"); err != nil {
		t.Fatalf("InsertLogLine: %v", err)
	}

	lines, err := s.GetLogLines(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetLogLines: %v", err)
	}
	if lines != nil {
		t.Errorf("lines = %v, want nil", lines)
	}

	lines, err = s.GetLogLines(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetLogLines: %v", err)
	}
	if len(lines) != 1 || lines[0].Line != "only a" {
		t.Errorf("lines = %v, want one line %q", lines, "only a")
	}
}

func TestMigrationIdempotency(t *testing.T) {
	s1 := newTestStore(t)
	for _, stmt := range []string{createExecutionsTable, createLogLinesTable, createLogLinesIndex} {
		if _, err := s1.db.Exec(stmt); err != nil {
			t.Fatalf("second migration: %v", err)
		}
	}
}
