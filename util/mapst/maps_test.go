// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

package mapst

import (
	"reflect"
	"testing"
)

func TestSortedKeys(t *testing.T) {
	got := SortedKeys(map[string]int{"os": 1, "hostname": 2, "arch": 3})
	if !reflect.DeepEqual(got, []string{"arch", "hostname", "os"}) {
		t.Fatalf("SortedKeys = %v", got)
	}
	if got := SortedKeys(map[string]int(nil)); len(got) != 0 {
		t.Fatalf("SortedKeys(nil) = %v", got)
	}
}
