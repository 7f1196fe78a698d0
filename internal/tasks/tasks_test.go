package tasks_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/senyabanana/procurement-service/internal/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSweeper
type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) ExpireOverdue(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestHandleDeadlineSweepTask_Success(t *testing.T) {
	sweeper := new(MockSweeper)
	sweeper.On("ExpireOverdue", mock.Anything).Return(2, nil).Once()

	var buf bytes.Buffer
	p := tasks.NewTaskProcessor(sweeper, log.New(&buf, "", 0))

	task, err := tasks.NewDeadlineSweepTask("scheduler", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, tasks.TypeDeadlineSweep, task.Type())

	require.NoError(t, p.HandleDeadlineSweepTask(context.Background(), task))
	assert.Contains(t, buf.String(), "deadline sweep (scheduler): 2 service requests moved")
	sweeper.AssertExpectations(t)
}

func TestHandleDeadlineSweepTask_NothingToDo(t *testing.T) {
	sweeper := new(MockSweeper)
	sweeper.On("ExpireOverdue", mock.Anything).Return(0, nil).Once()

	var buf bytes.Buffer
	p := tasks.NewTaskProcessor(sweeper, log.New(&buf, "", 0))

	task, err := tasks.NewDeadlineSweepTask("local", time.Now())
	require.NoError(t, err)
	require.NoError(t, p.HandleDeadlineSweepTask(context.Background(), task))
	assert.Empty(t, buf.String())
	sweeper.AssertExpectations(t)
}

func TestHandleDeadlineSweepTask_SweepError(t *testing.T) {
	sweeper := new(MockSweeper)
	boom := errors.New("database unavailable")
	sweeper.On("ExpireOverdue", mock.Anything).Return(1, boom).Once()

	var buf bytes.Buffer
	p := tasks.NewTaskProcessor(sweeper, log.New(&buf, "", 0))

	task, err := tasks.NewDeadlineSweepTask("scheduler", time.Now())
	require.NoError(t, err)

	err = p.HandleDeadlineSweepTask(context.Background(), task)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
	assert.Contains(t, buf.String(), "1 service requests moved")
	sweeper.AssertExpectations(t)
}

func TestHandleDeadlineSweepTask_BadPayload(t *testing.T) {
	sweeper := new(MockSweeper)
	p := tasks.NewTaskProcessor(sweeper, log.New(&bytes.Buffer{}, "", 0))

	task := asynq.NewTask(tasks.TypeDeadlineSweep, []byte("{not json"))
	err := p.HandleDeadlineSweepTask(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	sweeper.AssertNotCalled(t, "ExpireOverdue", mock.Anything)
}

func TestRunLocal_SweepsUntilCancelled(t *testing.T) {
	sweeper := new(MockSweeper)
	swept := make(chan struct{}, 1)
	sweeper.On("ExpireOverdue", mock.Anything).Return(0, nil).Run(func(mock.Arguments) {
		select {
		case swept <- struct{}{}:
		default:
		}
	})

	p := tasks.NewTaskProcessor(sweeper, log.New(&bytes.Buffer{}, "", 0))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.RunLocal(ctx, 10*time.Millisecond)
		close(done)
	}()

	select {
	case <-swept:
	case <-time.After(2 * time.Second):
		t.Fatal("local sweep did not run")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunLocal did not stop after cancel")
	}
}
