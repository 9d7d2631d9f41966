package session

import (
	"testing"
	"time"

	"chatfmt/internal/model"

	"github.com/google/go-cmp/cmp"
)

func TestAppendDoesNotMutateInput(t *testing.T) {
	base := Append(New("Audit Agent"), model.Message{Role: model.RoleUser, Content: "one"})
	// Leave spare capacity so a careless append would share the array.
	base.Messages = append(make([]model.Message, 0, 8), base.Messages...)

	a := Append(base, model.Message{Role: model.RoleAssistant, Content: "a"})
	b := Append(base, model.Message{Role: model.RoleAssistant, Content: "b"})

	if len(base.Messages) != 1 {
		t.Fatalf("input state changed: %+v", base.Messages)
	}
	if a.Messages[1].Content != "a" || b.Messages[1].Content != "b" {
		t.Fatalf("states share history: a=%+v b=%+v", a.Messages, b.Messages)
	}
}

func TestBeginFinish(t *testing.T) {
	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s0 := New("Audit Agent")

	s1 := Begin(s0, "audit Acme", at)
	if !s1.Busy || s0.Busy {
		t.Fatalf("Begin should mark only the new state busy: s0=%v s1=%v", s0.Busy, s1.Busy)
	}

	reply := model.Message{Role: model.RoleAssistant, Content: "done", Timestamp: at.Add(time.Second)}
	s2 := Finish(s1, reply)
	if s2.Busy {
		t.Fatal("Finish should clear busy")
	}
	want := []model.Message{
		{Role: model.RoleUser, Content: "audit Acme", Timestamp: at},
		reply,
	}
	if diff := cmp.Diff(want, s2.Messages); diff != "" {
		t.Fatalf("unexpected history (-want +got):\n%s", diff)
	}
	if last, ok := s2.Last(); !ok || last.Content != "done" {
		t.Fatalf("unexpected last message %+v", last)
	}
	if _, ok := s0.Last(); ok {
		t.Fatal("initial state should have no messages")
	}
}

func TestWithCustomerCopies(t *testing.T) {
	c := &Customer{Name: "Acme Corp"}
	s := WithCustomer(New(""), c)
	c.Name = "changed"
	if s.Customer.Name != "Acme Corp" {
		t.Fatalf("state aliases caller's customer: %+v", s.Customer)
	}
	if cleared := WithCustomer(s, nil); cleared.Customer != nil || s.Customer == nil {
		t.Fatal("clearing customer should only affect the new state")
	}
}

func TestWithApplicationResetsHistory(t *testing.T) {
	s := WithApplication(New("Risk Agent"), "APP-1")
	s = Append(s, model.Message{Role: model.RoleUser, Content: "hi"})

	same := WithApplication(s, "APP-1")
	if len(same.Messages) != 1 {
		t.Fatal("same application should keep history")
	}
	other := WithApplication(s, "APP-2")
	if len(other.Messages) != 0 || len(s.Messages) != 1 {
		t.Fatalf("switching application should clear only the new state's history")
	}
}

func TestMeta(t *testing.T) {
	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s := WithAgent(WithCustomer(New("a"), &Customer{Name: "Globex"}), "Audit Agent")
	got := s.Meta("s-1", at)
	want := model.Meta{ID: "s-1", Customer: "Globex", Agent: "Audit Agent", StartedAt: at}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected meta (-want +got):\n%s", diff)
	}
}
