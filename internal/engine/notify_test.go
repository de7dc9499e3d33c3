package engine

import (
	"fmt"
	"testing"
	"time"
)

func TestNotifierSubscribeThenDone(t *testing.T) {
	n := NewNotifier()

	ch, cancel := n.Subscribe("job-1")
	defer cancel()

	select {
	case <-ch:
		t.Fatal("channel closed before Done")
	default:
	}

	n.Done("job-1")

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("channel not closed after Done")
	}
}

func TestNotifierLateSubscriber(t *testing.T) {
	n := NewNotifier()
	n.Done("job-1")

	ch, cancel := n.Subscribe("job-1")
	defer cancel()

	select {
	case <-ch:
	default:
		t.Error("late subscriber did not get a closed channel")
	}
}

func TestNotifierMultipleSubscribers(t *testing.T) {
	n := NewNotifier()

	ch1, cancel1 := n.Subscribe("job-1")
	defer cancel1()
	ch2, cancel2 := n.Subscribe("job-1")
	defer cancel2()

	n.Done("job-1")

	for i, ch := range []<-chan struct{}{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d not notified", i)
		}
	}
}

func TestNotifierUnsubscribe(t *testing.T) {
	n := NewNotifier()

	_, cancel := n.Subscribe("job-1")
	cancel()

	// Done after unsubscribe must not panic or block.
	n.Done("job-1")
}

func TestNotifierIsolationBetweenJobs(t *testing.T) {
	n := NewNotifier()

	ch1, cancel1 := n.Subscribe("job-1")
	defer cancel1()

	n.Done("job-2")

	select {
	case <-ch1:
		t.Error("subscriber of job-1 notified by completion of job-2")
	default:
	}
}

func TestNotifierUnsubscribeReclaimsUnknownTopics(t *testing.T) {
	n := NewNotifier()

	// Waiters can name identifiers that were never issued; once the last
	// one gives up, nothing may be retained for that id.
	for i := 0; i < 1000; i++ {
		_, cancel := n.Subscribe(fmt.Sprintf("never-issued-%d", i))
		cancel()
	}

	n.mu.Lock()
	got := len(n.topics)
	n.mu.Unlock()
	if got != 0 {
		t.Errorf("topics retained after all subscribers cancelled: %d, want 0", got)
	}
}

func TestNotifierUnsubscribeKeepsTopicWithWaiters(t *testing.T) {
	n := NewNotifier()

	ch1, cancel1 := n.Subscribe("job-1")
	_, cancel2 := n.Subscribe("job-1")
	cancel2()

	n.Done("job-1")

	select {
	case <-ch1:
	case <-time.After(time.Second):
		t.Fatal("remaining subscriber not notified after another unsubscribed")
	}
	cancel1()
}

func TestNotifierUnsubscribeKeepsDoneMarker(t *testing.T) {
	n := NewNotifier()
	n.Done("job-1")

	_, cancel := n.Subscribe("job-1")
	cancel()

	// The marker must survive unsubscription so later waiters still see
	// the job as finished.
	ch, cancel2 := n.Subscribe("job-1")
	defer cancel2()

	select {
	case <-ch:
	default:
		t.Error("done marker lost after unsubscribe")
	}
}

func TestNotifierForget(t *testing.T) {
	n := NewNotifier()
	n.Done("job-1")
	n.Forget("job-1")

	// After Forget the job looks unfinished again; a fresh subscriber
	// waits. This is only reachable for evicted jobs, whose identifiers
	// answer 404 at the API before any subscription happens.
	ch, cancel := n.Subscribe("job-1")
	defer cancel()

	select {
	case <-ch:
		t.Error("channel closed after Forget")
	default:
	}
}
