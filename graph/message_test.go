package graph

import "testing"

func TestMessageConstructors(t *testing.T) {
	cases := []struct {
		name string
		msg  Message
		role string
	}{
		{"system", NewSystemMessage("hi"), RoleSystem},
		{"user", NewUserMessage("hi"), RoleUser},
		{"assistant", NewAssistantMessage("hi"), RoleAssistant},
		{"custom", NewMessage("tool", "hi"), "tool"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.msg.Role != tc.role {
				t.Errorf("expected role %q, got %q", tc.role, tc.msg.Role)
			}
			if tc.msg.Content != "hi" {
				t.Errorf("expected content hi, got %q", tc.msg.Content)
			}
		})
	}
}
