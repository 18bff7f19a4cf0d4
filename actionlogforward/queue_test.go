package actionlogforward

import "testing"

func TestRingQueueFIFO(t *testing.T) {
	t.Parallel()

	rq := newRingQueue[int](4)

	for i := 1; i <= 3; i++ {
		if dropped := rq.push(i); dropped {
			t.Errorf("push %d: unexpected drop", i)
		}
	}

	for want := 1; want <= 3; want++ {
		have, ok := rq.pop()
		if !ok {
			t.Fatalf("pop %d: empty", want)
		}
		if want != have {
			t.Errorf("want %d, have %d", want, have)
		}
	}

	if _, ok := rq.pop(); ok {
		t.Error("pop on empty queue returned a value")
	}
}

func TestRingQueueDropOldest(t *testing.T) {
	t.Parallel()

	rq := newRingQueue[int](2)

	rq.push(1)
	rq.push(2)
	if dropped := rq.push(3); !dropped {
		t.Error("push on full queue did not report a drop")
	}

	// 1 was the oldest; 2 and 3 remain.
	if have, _ := rq.pop(); have != 2 {
		t.Errorf("want 2, have %d", have)
	}
	if have, _ := rq.pop(); have != 3 {
		t.Errorf("want 3, have %d", have)
	}
}

func TestRingQueueWrapAround(t *testing.T) {
	t.Parallel()

	rq := newRingQueue[int](3)

	for i := 1; i <= 10; i++ {
		rq.push(i)
	}

	if want, have := 3, rq.size(); want != have {
		t.Errorf("want size %d, have %d", want, have)
	}
	for want := 8; want <= 10; want++ {
		if have, _ := rq.pop(); want != have {
			t.Errorf("want %d, have %d", want, have)
		}
	}
}
