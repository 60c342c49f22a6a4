package service

import (
	"sync"
	"testing"
)

func TestStampedeTracker_RecordMiss_Resolve(t *testing.T) {
	st := newStampedeTracker()

	if n := st.RecordMiss("Paris"); n != 1 {
		t.Errorf("RecordMiss(Paris) = %d, want 1", n)
	}
	if n := st.RecordMiss("Paris"); n != 2 {
		t.Errorf("RecordMiss(Paris) = %d, want 2", n)
	}
	if n := st.RecordMiss("Oslo"); n != 1 {
		t.Errorf("RecordMiss(Oslo) = %d, want 1 (keys are independent)", n)
	}

	st.Resolve("Paris")
	st.Resolve("Paris")
	st.Resolve("Paris") // extra resolve is a no-op
	if n := st.RecordMiss("Paris"); n != 1 {
		t.Errorf("RecordMiss(Paris) after resolves = %d, want 1", n)
	}
}

func TestStampedeTracker_Concurrent(t *testing.T) {
	st := newStampedeTracker()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.RecordMiss("Paris")
			st.Resolve("Paris")
		}()
	}
	wg.Wait()

	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.activeMisses) != 0 {
		t.Errorf("activeMisses = %v, want empty", st.activeMisses)
	}
}
