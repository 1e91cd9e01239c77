package rbac

import (
	"context"
	"testing"

	"pbx-connector/internal/directory"
)

func TestRoleChecker_ReceiveIncomingCalls(t *testing.T) {
	dir := directory.NewMemoryDirectory()
	dir.PutUser(directory.User{ID: "1", Role: RoleAgent})
	dir.PutUser(directory.User{ID: "2", Role: RoleViewer})
	dir.PutUser(directory.User{ID: "3", Role: "contractor"})
	c := NewRoleChecker(dir)
	ctx := context.Background()

	cases := map[string]bool{"1": true, "2": false, "3": false, "missing": false}
	for id, want := range cases {
		got, err := c.HasPermission(ctx, id, PermReceiveIncomingCalls)
		if err != nil {
			t.Fatalf("unexpected err for %s: %v", id, err)
		}
		if got != want {
			t.Fatalf("user %s: got %v, want %v", id, got, want)
		}
	}
}
