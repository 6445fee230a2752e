package prompts

import (
	"reflect"
	"strings"
	"testing"

	"github.com/jwebster45206/gptstar/pkg/chat"
)

func TestNew(t *testing.T) {
	builder := New()
	if builder == nil {
		t.Fatal("Expected builder to be created, got nil")
	}
	if builder.ActionCount() != 0 {
		t.Errorf("Expected action count 0, got %d", builder.ActionCount())
	}
}

func TestBuilder_Build_TwoMessages(t *testing.T) {
	messages := New().
		AddObservation("minerals", 50).
		AddAction("wait").
		Build()

	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != chat.ChatRoleSystem {
		t.Errorf("Expected first message to be system, got %s", messages[0].Role)
	}
	if messages[0].Content != SystemPrompt {
		t.Errorf("Expected system prompt, got %q", messages[0].Content)
	}
	if messages[1].Role != chat.ChatRoleUser {
		t.Errorf("Expected second message to be user, got %s", messages[1].Role)
	}
}

func TestBuilder_UserContent(t *testing.T) {
	builder := New().
		AddObservation("game time", "01:30").
		AddObservation("minerals", 75).
		AddObservation("ratio", 1.5).
		AddAction("wait").
		AddAction("train a worker").
		AddAction("attack enemy base")

	expected := "Observations : game time is 01:30, minerals is 75, ratio is 1.5. " +
		"Possible Actions :0) wait. 1) train a worker. 2) attack enemy base. "

	if got := builder.UserContent(); got != expected {
		t.Errorf("Unexpected user content.\nexpected: %q\n     got: %q", expected, got)
	}
}

func TestBuilder_ObservationsJoinedInCallOrder(t *testing.T) {
	names := []string{"minerals", "vespene", "army count", "minerals"}
	builder := New()
	for i, name := range names {
		builder.AddObservation(name, i)
	}

	content := builder.UserContent()
	block := strings.TrimPrefix(content[:strings.Index(content, ". Possible Actions")], "Observations : ")

	parts := strings.Split(block, ", ")
	if len(parts) != len(names) {
		t.Fatalf("Expected %d observations, got %d (%q)", len(names), len(parts), block)
	}
	for i, name := range names {
		want := name + " is " + string(rune('0'+i))
		if parts[i] != want {
			t.Errorf("Observation %d: expected %q, got %q", i, want, parts[i])
		}
	}
	if strings.HasSuffix(block, ", ") {
		t.Errorf("Observation block should not end with a separator: %q", block)
	}
}

func TestBuilder_ActionNumbering(t *testing.T) {
	names := []string{"wait", "train a worker", "build supply depot", "build barracks", "attack enemy base"}
	builder := New()
	for _, name := range names {
		builder.AddAction(name)
	}

	if builder.ActionCount() != len(names) {
		t.Errorf("Expected %d actions, got %d", len(names), builder.ActionCount())
	}

	content := builder.UserContent()
	last := -1
	for i, name := range names {
		token := string(rune('0'+i)) + ") " + name + "."
		idx := strings.Index(content, token)
		if idx < 0 {
			t.Errorf("Expected token %q in %q", token, content)
			continue
		}
		if idx <= last {
			t.Errorf("Token %q is out of order", token)
		}
		last = idx
	}
}

func TestBuilder_NoObservations(t *testing.T) {
	content := New().AddAction("wait").UserContent()
	expected := "Observations :. Possible Actions :0) wait. "
	if content != expected {
		t.Errorf("Expected %q, got %q", expected, content)
	}
}

func TestBuilder_BuildIsIdempotent(t *testing.T) {
	builder := New().
		AddObservation("minerals", 100).
		AddAction("wait").
		AddAction("build barracks")

	first := builder.Build()
	second := builder.Build()

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Build is not idempotent:\n%v\n%v", first, second)
	}
	if builder.ActionCount() != 2 {
		t.Errorf("Build must not change the action counter, got %d", builder.ActionCount())
	}
}

func TestJokeMessages(t *testing.T) {
	messages := JokeMessages()
	if len(messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(messages))
	}
	if messages[0].Role != chat.ChatRoleUser || messages[0].Content != JokePrompt {
		t.Errorf("Unexpected joke message: %+v", messages[0])
	}
}
