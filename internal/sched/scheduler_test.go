// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sched

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScheduleRunsFunctionsInOrder(t *testing.T) {
	s := New()
	defer s.Close()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(5)
	for i := 0; i < 5; i++ {
		i := i
		s.Schedule(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()

	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestScheduleStartsWorkerLazily(t *testing.T) {
	s := New()
	defer s.Close()
	require.False(t, s.started)
	require.Equal(t, 0, s.Pending())

	s.Schedule(func() {})
	require.True(t, s.started)
}

func TestCloseWaitsForDrain(t *testing.T) {
	s := New()
	var ran int32
	done := make(chan struct{})
	s.Schedule(func() {
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&ran, 1)
		close(done)
	})
	s.Close()
	select {
	case <-done:
	default:
		t.Fatal("Close returned before scheduled work finished")
	}
	require.EqualValues(t, 1, atomic.LoadInt32(&ran))
}

func TestCloseWithoutScheduleIsNoop(t *testing.T) {
	s := New()
	s.Close()
}

func TestScheduleAfterCloseIsIgnored(t *testing.T) {
	s := New()
	s.Close()

	ran := false
	s.Schedule(func() { ran = true })
	require.False(t, ran)
}
