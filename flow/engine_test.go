package flow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/m3rciful/logibot/session"
)

type petData struct {
	Name  string
	Breed string
}

func petDefinition(onComplete func(ctx context.Context, actor session.ActorID, data *petData) (string, error)) Definition[petData] {
	if onComplete == nil {
		onComplete = func(_ context.Context, _ session.ActorID, d *petData) (string, error) {
			return "saved " + d.Name, nil
		}
	}
	return Definition[petData]{
		Kind:      KindRegistration,
		Start:     "NAME",
		StartText: "name?",
		Steps: map[Step]Transition[petData]{
			"NAME": func(_ context.Context, _ session.ActorID, d *petData, input string) Outcome {
				if strings.TrimSpace(input) == "" {
					return Reprompt("name required")
				}
				d.Name = input
				return Advance("BREED", "breed?")
			},
			"BREED": func(_ context.Context, _ session.ActorID, d *petData, input string) Outcome {
				if input == "dragon" {
					return Abort("no dragons")
				}
				d.Breed = input
				return Complete()
			},
		},
		CancelText: "cancelled",
		FailText:   "try again later",
		OnComplete: onComplete,
	}
}

func TestEngineAdvanceAndComplete(t *testing.T) {
	eng := New(petDefinition(nil))
	ctx := context.Background()

	reply := eng.Start(ctx, 1)
	if reply.Text != "name?" || reply.ShowMenu {
		t.Fatalf("start reply = %+v", reply)
	}
	if !eng.Active(1) {
		t.Fatal("instance not active after start")
	}

	reply, handled := eng.Process(ctx, 1, "Rex")
	if !handled || reply.Text != "breed?" || reply.ShowMenu {
		t.Fatalf("advance reply = %+v handled=%v", reply, handled)
	}

	reply, handled = eng.Process(ctx, 1, "corgi")
	if !handled || reply.Text != "saved Rex" || !reply.ShowMenu {
		t.Fatalf("complete reply = %+v handled=%v", reply, handled)
	}
	if eng.Active(1) {
		t.Fatal("instance survived completion")
	}
}

func TestEngineRepromptKeepsStep(t *testing.T) {
	eng := New(petDefinition(nil))
	ctx := context.Background()
	eng.Start(ctx, 1)

	reply, handled := eng.Process(ctx, 1, "   ")
	if !handled || reply.Text != "name required" || reply.ShowMenu {
		t.Fatalf("reprompt reply = %+v handled=%v", reply, handled)
	}

	// Still on the first step, a valid value advances.
	reply, _ = eng.Process(ctx, 1, "Rex")
	if reply.Text != "breed?" {
		t.Fatalf("post-reprompt reply = %+v", reply)
	}
}

func TestEngineCancelTokenAtAnyStep(t *testing.T) {
	eng := New(petDefinition(nil))
	ctx := context.Background()
	eng.Start(ctx, 1)
	eng.Process(ctx, 1, "Rex")

	reply, handled := eng.Process(ctx, 1, CancelToken)
	if !handled || reply.Text != "cancelled" || !reply.ShowMenu {
		t.Fatalf("cancel reply = %+v handled=%v", reply, handled)
	}
	if eng.Active(1) {
		t.Fatal("instance survived cancellation")
	}
}

func TestEngineAbortSkipsCompletion(t *testing.T) {
	completed := false
	eng := New(petDefinition(func(_ context.Context, _ session.ActorID, _ *petData) (string, error) {
		completed = true
		return "", nil
	}))
	ctx := context.Background()
	eng.Start(ctx, 1)
	eng.Process(ctx, 1, "Rex")

	reply, _ := eng.Process(ctx, 1, "dragon")
	if reply.Text != "no dragons" || !reply.ShowMenu {
		t.Fatalf("abort reply = %+v", reply)
	}
	if completed {
		t.Fatal("completion side effect ran on abort")
	}
	if eng.Active(1) {
		t.Fatal("instance survived abort")
	}
}

func TestEngineCompletionFailureDiscardsInstance(t *testing.T) {
	eng := New(petDefinition(func(_ context.Context, _ session.ActorID, _ *petData) (string, error) {
		return "", errors.New("store down")
	}))
	ctx := context.Background()
	eng.Start(ctx, 1)
	eng.Process(ctx, 1, "Rex")

	reply, _ := eng.Process(ctx, 1, "corgi")
	if reply.Text != "try again later" || !reply.ShowMenu {
		t.Fatalf("failure reply = %+v", reply)
	}
	if eng.Active(1) {
		t.Fatal("instance survived completion failure")
	}
}

func TestEngineProcessWithoutInstance(t *testing.T) {
	eng := New(petDefinition(nil))
	if _, handled := eng.Process(context.Background(), 1, "anything"); handled {
		t.Fatal("engine consumed input without an instance")
	}
}

func TestEngineStartReplacesInstance(t *testing.T) {
	eng := New(petDefinition(nil))
	ctx := context.Background()
	eng.Start(ctx, 1)
	eng.Process(ctx, 1, "Rex")

	// Restart resets to the first step with empty fields.
	eng.Start(ctx, 1)
	reply, _ := eng.Process(ctx, 1, "Bella")
	if reply.Text != "breed?" {
		t.Fatalf("restarted flow reply = %+v", reply)
	}
}

func TestEngineActorsIndependent(t *testing.T) {
	eng := New(petDefinition(nil))
	ctx := context.Background()
	eng.Start(ctx, 1)
	eng.Start(ctx, 2)

	eng.Process(ctx, 1, "Rex")
	if !eng.Active(2) {
		t.Fatal("actor 2 lost its instance")
	}
	// Actor 2 is still on NAME while actor 1 moved on.
	reply, _ := eng.Process(ctx, 2, "Bella")
	if reply.Text != "breed?" {
		t.Fatalf("actor 2 reply = %+v", reply)
	}
	if reply, _ := eng.Process(ctx, 1, "corgi"); reply.Text != "saved Rex" {
		t.Fatalf("actor 1 reply = %+v", reply)
	}
}
