package containers

import "testing"

func TestRingQueueFIFO(t *testing.T) {
	rq := NewRingQueue[uint32](4)
	for i := uint32(0); i < 4; i++ {
		if err := rq.Enqueue(i); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	if err := rq.Enqueue(99); err == nil {
		t.Fatal("Enqueue on a full queue should fail")
	}
	for i := uint32(0); i < 4; i++ {
		v, err := rq.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if v != i {
			t.Errorf("Dequeue = %d, want %d", v, i)
		}
	}
	if _, err := rq.Dequeue(); err == nil {
		t.Fatal("Dequeue on an empty queue should fail")
	}
}

func TestRingQueueWraps(t *testing.T) {
	rq := NewRingQueue[int](2)
	for round := 0; round < 5; round++ {
		if err := rq.Enqueue(round); err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		v, err := rq.Dequeue()
		if err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		if v != round {
			t.Errorf("round %d: got %d", round, v)
		}
	}
}
