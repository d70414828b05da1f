package chat

import (
	"fmt"
	"testing"
)

func TestTrim_DropsOldest(t *testing.T) {
	var c Conversation
	for i := 0; i < 11; i++ {
		c = c.Append(RoleUser, fmt.Sprint(i))
	}
	got := c.Trim(DefaultMaxHistory)
	if len(got) != 10 {
		t.Fatalf("len: got %d", len(got))
	}
	if got[0].Content != "1" || got[9].Content != "10" {
		t.Fatalf("unexpected window: first=%s last=%s", got[0].Content, got[9].Content)
	}
	if short := c[:3].Trim(10); len(short) != 3 {
		t.Fatalf("short conversation must be unchanged")
	}
	if all := c.Trim(0); len(all) != 11 {
		t.Fatalf("non-positive max keeps everything")
	}
}

func TestFormatPrompt(t *testing.T) {
	conv := Conversation{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleModel, Content: "hello"},
		{Role: "assistant", Content: "legacy"},
		{Role: RoleUser, Content: "squats?"},
	}
	want := "<start_of_turn>system\nbe brief<end_of_turn>\n\n" +
		"<start_of_turn>user\nhi<end_of_turn>\n\n" +
		"<start_of_turn>model\nhello<end_of_turn>\n\n" +
		"<start_of_turn>model\nlegacy<end_of_turn>\n\n" +
		"<start_of_turn>user\nsquats?<end_of_turn>\n\n" +
		"<start_of_turn>model\n"
	if got := FormatPrompt("be brief", conv); got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
	if FormatPrompt("x", nil) != "" {
		t.Fatalf("empty conversation must format to empty prompt")
	}
}

func TestFormatPrompt_LastTurnAlwaysUser(t *testing.T) {
	got := FormatPrompt("s", Conversation{{Role: RoleModel, Content: "m"}})
	want := "<start_of_turn>system\ns<end_of_turn>\n\n<start_of_turn>user\nm<end_of_turn>\n\n<start_of_turn>model\n"
	if got != want {
		t.Fatalf("got %q", got)
	}
}
