package terminal

import (
	"bytes"
	"testing"
)

func TestPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	if p.Styled() {
		t.Fatal("buffer output should not be styled")
	}
	p.Field("id", 6, "0x1200003")
	p.Ok("owned %s", "clipboard")
	p.Header("windows")
	want := "id     0x1200003\nowned clipboard\nwindows\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
