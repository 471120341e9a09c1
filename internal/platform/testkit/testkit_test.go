package testkit

import (
	"sync/atomic"
	"testing"
	"time"
)

var nowSeam = func() int { return 1 }

func TestSwap_Restores(t *testing.T) {
	t.Run("swapped", func(t *testing.T) {
		Swap(t, &nowSeam, func() int { return 99 })
		MustEqual(t, "nowSeam()", nowSeam(), 99)
	})
	MustEqual(t, "nowSeam() after cleanup", nowSeam(), 1)
}

func TestMustPanic(t *testing.T) {
	MustPanic(t, func() { panic("boom") })
}

func TestMustContain(t *testing.T) {
	MustContain(t, "sync finished fetched=3", "fetched=3")
}

func TestEventually(t *testing.T) {
	var n atomic.Int32
	go func() {
		time.Sleep(20 * time.Millisecond)
		n.Store(1)
	}()
	Eventually(t, time.Second, func() bool { return n.Load() == 1 })
}

func TestSerial_NoInterleave(t *testing.T) {
	var inside atomic.Int32
	for _, name := range []string{"a", "b", "c"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			Serial(t)
			if inside.Add(1) != 1 {
				t.Errorf("another serial test was running")
			}
			time.Sleep(10 * time.Millisecond)
			inside.Add(-1)
		})
	}
}
