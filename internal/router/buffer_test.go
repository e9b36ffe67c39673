package router

import (
	"sync"
	"testing"
	"time"
)

func TestGrowableBuffer_FIFO(t *testing.T) {
	buf := NewGrowableBuffer[int](4)

	for i := 0; i < 10; i++ {
		if !buf.Send(i) {
			t.Fatalf("Send(%d) = false", i)
		}
	}
	if buf.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", buf.Len())
	}

	for want := 0; want < 10; want++ {
		got, ok := buf.TryReceive()
		if !ok || got != want {
			t.Fatalf("TryReceive() = %d, %v, want %d, true", got, ok, want)
		}
	}
	if _, ok := buf.TryReceive(); ok {
		t.Error("TryReceive() on empty buffer returned true")
	}
}

func TestGrowableBuffer_Grows(t *testing.T) {
	tests := []struct {
		name        string
		initial     int
		sends       int
		wantResizes int
		wantCap     int
	}{
		{name: "fits", initial: 8, sends: 8, wantResizes: 0, wantCap: 8},
		{name: "one doubling", initial: 8, sends: 9, wantResizes: 1, wantCap: 16},
		{name: "several doublings", initial: 2, sends: 20, wantResizes: 4, wantCap: 32},
		{name: "min capacity", initial: 0, sends: 3, wantResizes: 2, wantCap: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := NewGrowableBuffer[int](tt.initial)
			for i := 0; i < tt.sends; i++ {
				buf.Send(i)
			}
			s := buf.Stats()
			if s.ResizeCount != tt.wantResizes {
				t.Errorf("ResizeCount = %d, want %d", s.ResizeCount, tt.wantResizes)
			}
			if s.Capacity != tt.wantCap {
				t.Errorf("Capacity = %d, want %d", s.Capacity, tt.wantCap)
			}
			if s.Count != tt.sends {
				t.Errorf("Count = %d, want %d", s.Count, tt.sends)
			}
		})
	}
}

func TestGrowableBuffer_CompactsInsteadOfGrowing(t *testing.T) {
	buf := NewGrowableBuffer[int](4)
	for i := 0; i < 4; i++ {
		buf.Send(i)
	}
	buf.TryReceive()
	buf.TryReceive()

	buf.Send(4)
	buf.Send(5)

	s := buf.Stats()
	if s.ResizeCount != 0 || s.Capacity != 4 {
		t.Errorf("stats = %+v, want compaction without resize", s)
	}

	for want := 2; want <= 5; want++ {
		got, ok := buf.TryReceive()
		if !ok || got != want {
			t.Fatalf("TryReceive() = %d, %v, want %d", got, ok, want)
		}
	}
}

func TestGrowableBuffer_BlockingReceive(t *testing.T) {
	buf := NewGrowableBuffer[string](1)

	got := make(chan string, 1)
	go func() {
		v, _ := buf.Receive()
		got <- v
	}()

	time.Sleep(20 * time.Millisecond)
	buf.Send("hello")

	select {
	case v := <-got:
		if v != "hello" {
			t.Errorf("Receive() = %q, want hello", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Receive() did not unblock")
	}
}

func TestGrowableBuffer_Close(t *testing.T) {
	buf := NewGrowableBuffer[int](4)
	buf.Send(1)
	buf.Send(2)
	buf.Close()
	buf.Close()

	if buf.Send(3) {
		t.Error("Send() after Close returned true")
	}

	for want := 1; want <= 2; want++ {
		got, ok := buf.Receive()
		if !ok || got != want {
			t.Fatalf("Receive() = %d, %v, want %d, true", got, ok, want)
		}
	}
	if _, ok := buf.Receive(); ok {
		t.Error("Receive() on closed, drained buffer returned true")
	}
	if batch := buf.ReceiveBatch(0); batch != nil {
		t.Errorf("ReceiveBatch() = %v, want nil", batch)
	}
}

func TestGrowableBuffer_CloseUnblocksReceive(t *testing.T) {
	buf := NewGrowableBuffer[int](1)

	done := make(chan bool, 1)
	go func() {
		_, ok := buf.Receive()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	buf.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("Receive() ok = true after Close on empty buffer")
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not unblock Receive")
	}
}

func TestGrowableBuffer_ReceiveBatch(t *testing.T) {
	buf := NewGrowableBuffer[int](2)
	for i := 0; i < 5; i++ {
		buf.Send(i)
	}

	first := buf.ReceiveBatch(3)
	if len(first) != 3 || first[0] != 0 || first[2] != 2 {
		t.Errorf("ReceiveBatch(3) = %v, want [0 1 2]", first)
	}
	rest := buf.ReceiveBatch(0)
	if len(rest) != 2 || rest[0] != 3 || rest[1] != 4 {
		t.Errorf("ReceiveBatch(0) = %v, want [3 4]", rest)
	}

	s := buf.Stats()
	if s.TotalReceived != 5 || s.TotalSent != 5 || s.Count != 0 {
		t.Errorf("stats = %+v, want 5 in, 5 out, empty", s)
	}
}

func TestGrowableBuffer_ConcurrentSendReceive(t *testing.T) {
	buf := NewGrowableBuffer[int](4)
	const producers, perProducer = 4, 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				buf.Send(i)
			}
		}()
	}

	total := make(chan int, 1)
	go func() {
		n := 0
		for {
			batch := buf.ReceiveBatch(64)
			if batch == nil {
				total <- n
				return
			}
			n += len(batch)
		}
	}()

	wg.Wait()
	buf.Close()

	select {
	case n := <-total:
		if n != producers*perProducer {
			t.Errorf("received %d items, want %d", n, producers*perProducer)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not finish")
	}
}
