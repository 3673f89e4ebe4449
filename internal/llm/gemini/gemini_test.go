package gemini

import (
	"testing"

	"google.golang.org/genai"

	"smartledger/internal/core"
)

func TestToContents(t *testing.T) {
	conv := core.Conversation{
		{Role: core.RoleSystem, Content: "rules"},
		{Role: core.RoleUser, Content: "昨天咖啡 65"},
		{Role: core.RoleAssistant, Content: `{"amount":65}`},
		{Role: core.RoleSystem, Content: "more rules"},
		{Role: core.RoleUser, Content: "午餐 120"},
	}

	system, contents := toContents(conv)
	if system != "rules\n\nmore rules" {
		t.Errorf("system = %q", system)
	}
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}

	wantRoles := []string{string(genai.RoleUser), string(genai.RoleModel), string(genai.RoleUser)}
	for i, c := range contents {
		if c.Role != wantRoles[i] {
			t.Errorf("contents[%d].Role = %q, want %q", i, c.Role, wantRoles[i])
		}
	}
	if got := contents[2].Parts[0].Text; got != "午餐 120" {
		t.Errorf("last text = %q", got)
	}
}
