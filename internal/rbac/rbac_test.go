package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		allow  bool
	}{
		{name: "visitor read", role: RoleVisitor, action: ActionRead, allow: true},
		{name: "visitor export", role: RoleVisitor, action: ActionExport, allow: true},
		{name: "visitor write", role: RoleVisitor, action: ActionWrite, allow: false},
		{name: "visitor upload", role: RoleVisitor, action: ActionUpload, allow: false},
		{name: "visitor history", role: RoleVisitor, action: ActionHistory, allow: false},
		{name: "admin write", role: RoleAdmin, action: ActionWrite, allow: true},
		{name: "admin upload", role: RoleAdmin, action: ActionUpload, allow: true},
		{name: "unknown role", role: Role("ghost"), action: ActionRead, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.role, tc.action); got != tc.allow {
				t.Fatalf("Can(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.allow)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("admin") != RoleAdmin {
		t.Fatal("admin not preserved")
	}
	if Normalize("editor") != RoleVisitor || Normalize("") != RoleVisitor {
		t.Fatal("unknown roles should fall back to visitor")
	}
}
