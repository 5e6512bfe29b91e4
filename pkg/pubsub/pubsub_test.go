package pubsub

import (
	"fmt"
	"sync"
	"testing"
)

func TestPublishPollSinglePartition(t *testing.T) {
	ps := New[string](Config{Partitions: 1})
	topic := ps.Topic("orders")
	topic.Publish("o1", "created")
	topic.Publish("o1", "shipped")

	msgs := topic.Poll("worker", 10)
	if len(msgs) != 2 {
		t.Fatalf("Poll() returned %d messages, want 2", len(msgs))
	}
	if msgs[0].Value != "created" || msgs[1].Value != "shipped" {
		t.Fatalf("Poll() order = %v, want [created shipped]", msgs)
	}
}

func TestPollZeroReturnsEmpty(t *testing.T) {
	ps := New[int](Config{Partitions: 1})
	topic := ps.Topic("t")
	topic.Publish("k", 1)

	if msgs := topic.Poll("g", 0); len(msgs) != 0 {
		t.Fatalf("Poll(group, 0) = %d messages, want 0", len(msgs))
	}
}

func TestPollBoundsToMaxN(t *testing.T) {
	ps := New[int](Config{Partitions: 1})
	topic := ps.Topic("t")
	for i := 0; i < 10; i++ {
		topic.Publish("k", i)
	}

	msgs := topic.Poll("g", 3)
	if len(msgs) != 3 {
		t.Fatalf("Poll(group, 3) returned %d messages, want 3", len(msgs))
	}
	for i, m := range msgs {
		if m.Value != i {
			t.Fatalf("msgs[%d].Value = %d, want %d", i, m.Value, i)
		}
	}
}

func TestPollWithoutCommitIsRepeatable(t *testing.T) {
	ps := New[int](Config{Partitions: 1})
	topic := ps.Topic("t")
	topic.Publish("k", 1)

	first := topic.Poll("g", 10)
	second := topic.Poll("g", 10)
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("Poll() = %d, %d messages, want 1, 1", len(first), len(second))
	}
	if first[0].ID != second[0].ID {
		t.Fatal("uncommitted polls should return the same message")
	}
}

func TestCommitAdvancesOffsetPastAlreadySeen(t *testing.T) {
	ps := New[int](Config{Partitions: 1})
	topic := ps.Topic("t")
	topic.Publish("k", 1)
	topic.Poll("g", 10)
	topic.Commit("g", 1)
	topic.Publish("k", 2)

	msgs := topic.Poll("g", 10)
	if len(msgs) != 1 || msgs[0].Value != 2 {
		t.Fatalf("Poll() after commit = %v, want exactly [2]", msgs)
	}
}

func TestCommitNoOpWhenNotAdvancing(t *testing.T) {
	ps := New[int](Config{Partitions: 1})
	topic := ps.Topic("t")
	topic.Publish("k", 1)
	topic.Publish("k", 2)
	topic.Poll("g", 10)
	topic.Commit("g", 2)

	if got := topic.CommittedOffset("g"); got != 2 {
		t.Fatalf("CommittedOffset() = %d, want 2", got)
	}

	topic.Commit("g", 1) // newOffset <= current: no-op
	if got := topic.CommittedOffset("g"); got != 2 {
		t.Fatalf("CommittedOffset() after no-op Commit = %d, want 2 (unchanged)", got)
	}
	topic.Commit("g", 2) // equal to current: also a no-op
	if got := topic.CommittedOffset("g"); got != 2 {
		t.Fatalf("CommittedOffset() after equal-offset Commit = %d, want 2 (unchanged)", got)
	}
}

func TestIndependentConsumerGroups(t *testing.T) {
	ps := New[int](Config{Partitions: 1})
	topic := ps.Topic("t")
	topic.Publish("k", 1)
	topic.Publish("k", 2)

	topic.Poll("a", 10)
	topic.Commit("a", 2)
	topic.Publish("k", 3)

	gotA := topic.Poll("a", 10)
	gotB := topic.Poll("b", 10)
	if len(gotA) != 1 || gotA[0].Value != 3 {
		t.Fatalf("group a saw %v, want [3]", gotA)
	}
	if len(gotB) != 3 {
		t.Fatalf("group b saw %d messages, want 3 (never committed)", len(gotB))
	}
}

func TestSameKeyPreservesOrderAcrossPartitions(t *testing.T) {
	ps := New[int](Config{Partitions: 8})
	topic := ps.Topic("t")
	for i := 0; i < 50; i++ {
		topic.Publish("same-key", i)
	}
	msgs := topic.Poll("g", 50)
	if len(msgs) != 50 {
		t.Fatalf("Poll() = %d messages, want 50", len(msgs))
	}
	for i, m := range msgs {
		if m.Value != i {
			t.Fatalf("msgs[%d].Value = %d, want %d: same-key messages must stay in order", i, m.Value, i)
		}
	}
}

func TestEmptyKeyIsAcceptedAndOrdered(t *testing.T) {
	ps := New[int](Config{Partitions: 1})
	topic := ps.Topic("t")

	topic.Publish("", 1)
	topic.Publish("", 2)
	topic.Publish("", 3)

	msgs := topic.Poll("g", 10)
	if len(msgs) != 3 {
		t.Fatalf("Poll() = %d messages, want 3", len(msgs))
	}
	for i, m := range msgs {
		if m.Key != "" {
			t.Fatalf("msgs[%d].Key = %q, want empty string", i, m.Key)
		}
		if m.Value != i+1 {
			t.Fatalf("msgs[%d].Value = %d, want %d: empty-key messages must stay in publish order", i, m.Value, i+1)
		}
	}
}

func TestConcurrentPublishPreservesTotalCount(t *testing.T) {
	ps := New[int](Config{Partitions: 4})
	topic := ps.Topic("t")

	const producers = 10
	const perProducer = 200
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				topic.Publish(fmt.Sprintf("producer-%d", p), i)
			}
		}(p)
	}
	wg.Wait()

	if got := topic.Len(); got != producers*perProducer {
		t.Fatalf("Len() = %d, want %d", got, producers*perProducer)
	}

	msgs := topic.Poll("g", producers*perProducer)
	if len(msgs) != producers*perProducer {
		t.Fatalf("Poll() = %d messages, want %d", len(msgs), producers*perProducer)
	}

	perKey := make(map[string][]int)
	for _, m := range msgs {
		perKey[m.Key] = append(perKey[m.Key], m.Value)
	}
	for key, values := range perKey {
		for i, v := range values {
			if v != i {
				t.Fatalf("key %s: values[%d] = %d, want %d", key, i, v, i)
			}
		}
	}
}

func TestCommittedOffsetReflectsCommits(t *testing.T) {
	ps := New[int](Config{Partitions: 2})
	topic := ps.Topic("t")
	for i := 0; i < 10; i++ {
		topic.Publish(fmt.Sprintf("k%d", i), i)
	}
	topic.Poll("g", 10)
	topic.Commit("g", 10)

	if got := topic.CommittedOffset("g"); got != 10 {
		t.Fatalf("CommittedOffset() = %d, want 10", got)
	}
}
