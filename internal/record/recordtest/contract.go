// Package recordtest provides contract tests for [record.Store]
// implementations.
package recordtest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/swapd/internal/model"
	"github.com/edvin/swapd/internal/record"
)

// Factory creates a fresh, empty [record.Store] for each test.
type Factory func(t *testing.T) record.Store

// Run exercises the [record.Store] contract.
func Run(t *testing.T, factory Factory) {
	t.Run("ReadEmpty", func(t *testing.T) {
		s := factory(t)
		rec, err := s.Read(context.Background())
		assert.ErrorIs(t, err, record.ErrNotFound)
		assert.Nil(t, rec)
	})

	t.Run("WriteAndRead", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		want := model.DeploymentRecord{ContainerID: "c1", Status: model.StatusDeploying}
		require.NoError(t, s.Write(ctx, want))

		got, err := s.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, *got)
	})

	t.Run("WriteReplaces", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		require.NoError(t, s.Write(ctx, model.DeploymentRecord{ContainerID: "c1", Status: model.StatusRunning}))
		require.NoError(t, s.Write(ctx, model.DeploymentRecord{ContainerID: "c2", Status: model.StatusDeploying}))

		got, err := s.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, "c2", got.ContainerID)
		assert.Equal(t, model.StatusDeploying, got.Status)
	})

	t.Run("Clear", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		require.NoError(t, s.Write(ctx, model.DeploymentRecord{ContainerID: "c1", Status: model.StatusRunning}))
		require.NoError(t, s.Clear(ctx))

		_, err := s.Read(ctx)
		assert.ErrorIs(t, err, record.ErrNotFound)
	})

	t.Run("ClearEmpty", func(t *testing.T) {
		s := factory(t)
		assert.NoError(t, s.Clear(context.Background()))
	})

	t.Run("WriteRejectsInvalid", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		assert.Error(t, s.Write(ctx, model.DeploymentRecord{ContainerID: "", Status: model.StatusRunning}))
		assert.Error(t, s.Write(ctx, model.DeploymentRecord{ContainerID: "c1", Status: "Paused"}))

		_, err := s.Read(ctx)
		assert.ErrorIs(t, err, record.ErrNotFound)
	})

	t.Run("ConcurrentReadersSeeWholeRecords", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()
		require.NoError(t, s.Write(ctx, model.DeploymentRecord{ContainerID: "c0", Status: model.StatusRunning}))

		var wg sync.WaitGroup
		done := make(chan struct{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer close(done)
			for i := 0; i < 50; i++ {
				st := model.StatusDeploying
				if i%2 == 0 {
					st = model.StatusRunning
				}
				if err := s.Write(ctx, model.DeploymentRecord{ContainerID: "c" + string(rune('a'+i%26)), Status: st}); err != nil {
					t.Errorf("Write: %v", err)
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				wg.Wait()
				return
			default:
			}
			rec, err := s.Read(ctx)
			if err != nil {
				t.Fatalf("Read during writes: %v", err)
			}
			if rec.ContainerID == "" || !rec.Status.Valid() {
				t.Fatalf("partial record observed: %+v", rec)
			}
		}
	})
}
