// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"encoding/json"
	"fmt"
	"testing"
)

func TestSecretRedactionAndJSON(t *testing.T) {
	s := FromString("123456")
	for _, verb := range []string{"%v", "%s", "%#v", "%q", "%x"} {
		if got := fmt.Sprintf(verb, s); got != "[SECRET]" {
			t.Fatalf("%s: unexpected fmt output %q", verb, got)
		}
	}
	b, err := json.Marshal(map[string]any{"pin": s})
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}
	if string(b) != `{"pin":"[SECRET]"}` {
		t.Fatalf("unexpected json marshal: %s", string(b))
	}
}

func TestSecretZero(t *testing.T) {
	s := FromString("abc123")
	(&s).Zero()
	for i, c := range s {
		if c != 0 {
			t.Fatalf("expected zeroed byte at index %d, got %d", i, c)
		}
	}
}

func TestSecretEqual(t *testing.T) {
	s := FromString("token")
	if !s.Equal([]byte("token")) {
		t.Fatalf("expected equal")
	}
	if s.Equal([]byte("tokem")) || s.Equal([]byte("tok")) {
		t.Fatalf("expected mismatch")
	}
}

func TestSecretRuneCount(t *testing.T) {
	cases := map[string]int{"": 0, "1234": 4, "日本": 2, "ääää": 4}
	for in, want := range cases {
		if got := FromString(in).RuneCount(); got != want {
			t.Fatalf("RuneCount(%q) = %d, want %d", in, got, want)
		}
	}
}
