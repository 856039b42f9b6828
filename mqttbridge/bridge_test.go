package mqttbridge

import (
	"fmt"
	"testing"
)

// TestChangeDetectionLogic exercises the same identical/different/unset cache
// logic Publish relies on, without requiring a live broker connection.
func TestChangeDetectionLogic(t *testing.T) {
	cache := make(map[string]interface{})
	cache["compactlogix/Main.Temp"] = int64(100)

	t.Run("identical value does not republish", func(t *testing.T) {
		last, seen := cache["compactlogix/Main.Temp"]
		changed := !seen || fmt.Sprintf("%v", last) != fmt.Sprintf("%v", int64(100))
		if changed {
			t.Error("identical value should not be flagged as changed")
		}
	})

	t.Run("different value republishes", func(t *testing.T) {
		last, seen := cache["compactlogix/Main.Temp"]
		changed := !seen || fmt.Sprintf("%v", last) != fmt.Sprintf("%v", int64(101))
		if !changed {
			t.Error("different value should be flagged as changed")
		}
	})

	t.Run("unseen key always republishes", func(t *testing.T) {
		_, seen := cache["compactlogix/Main.NewTag"]
		if seen {
			t.Error("expected key to be absent")
		}
	})
}
