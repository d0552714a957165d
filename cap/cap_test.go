package cap

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Cap
		ok   bool
	}{
		{"CAP_CHOWN", CHOWN, true},
		{"cap_chown", CHOWN, true},
		{"CHOWN", CHOWN, true},
		{"chown", CHOWN, true},
		{"  sys_admin  ", SYS_ADMIN, true},
		{"CAP_SETFCAP", SETFCAP, true},
		{"NOT_A_CAP", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.ok && err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.in, err)
			}
			if !tt.ok && err == nil {
				t.Fatalf("Parse(%q) expected error, got %v", tt.in, got)
			}
			if tt.ok && got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestName(t *testing.T) {
	if CHOWN.Name() != "CAP_CHOWN" {
		t.Errorf("CHOWN.Name() = %q", CHOWN.Name())
	}
	if SYS_ADMIN.Name() != "CAP_SYS_ADMIN" {
		t.Errorf("SYS_ADMIN.Name() = %q", SYS_ADMIN.Name())
	}
}

func TestParseSet_All(t *testing.T) {
	s, err := ParseSet([]string{"ALL"})
	if err != nil {
		t.Fatalf("ParseSet(ALL) error: %v", err)
	}
	if s.Len() != len(All()) {
		t.Errorf("ParseSet(ALL) len = %d, want %d", s.Len(), len(All()))
	}
	if !s.Contains(SYS_ADMIN) {
		t.Error("ALL set should contain SYS_ADMIN")
	}
}

func TestParseSet_Mixed(t *testing.T) {
	s, err := ParseSet([]string{"CAP_CHOWN", "net_bind_service"})
	if err != nil {
		t.Fatalf("ParseSet error: %v", err)
	}
	if s.Len() != 2 || !s.Contains(CHOWN) || !s.Contains(NET_BIND_SERVICE) {
		t.Errorf("ParseSet mixed = %v", s.Names())
	}
}

func TestParseSet_Unknown(t *testing.T) {
	if _, err := ParseSet([]string{"CAP_BOGUS"}); err == nil {
		t.Error("expected error for unknown capability")
	}
}

func TestSetAlgebra(t *testing.T) {
	a := NewSet(CHOWN, SETUID, SETGID)
	b := NewSet(SETUID, SYS_ADMIN)

	union := a.Union(b)
	if union.Len() != 4 {
		t.Errorf("Union len = %d, want 4", union.Len())
	}

	inter := a.Intersect(b)
	if inter.Len() != 1 || !inter.Contains(SETUID) {
		t.Errorf("Intersect = %v, want {SETUID}", inter.Names())
	}

	sub := a.Subtract(b)
	if sub.Len() != 2 || sub.Contains(SETUID) {
		t.Errorf("Subtract = %v", sub.Names())
	}
}

func TestComplement(t *testing.T) {
	s := NewSet(CHOWN)
	comp := s.Complement()
	if comp.Contains(CHOWN) {
		t.Error("complement should not contain CHOWN")
	}
	if comp.Len() != len(All())-1 {
		t.Errorf("complement len = %d, want %d", comp.Len(), len(All())-1)
	}
}

func TestBitmaskRoundTrip(t *testing.T) {
	orig := NewSet(CHOWN, SETUID, SYS_ADMIN)
	mask := orig.Bitmask()

	decoded, truncated := FromBitmask(mask)
	if truncated {
		t.Error("unexpected truncation")
	}
	if decoded.Len() != orig.Len() {
		t.Errorf("round trip len = %d, want %d", decoded.Len(), orig.Len())
	}
	for _, c := range orig.Slice() {
		if !decoded.Contains(c) {
			t.Errorf("round trip missing %v", c)
		}
	}
}

func TestFromBitmask_TruncatesOutOfUniverse(t *testing.T) {
	mask := uint64(1) << 62
	decoded, truncated := FromBitmask(mask)
	if !truncated {
		t.Error("expected truncation for out-of-universe bit")
	}
	if decoded.Len() != 0 {
		t.Errorf("decoded should be empty, got %v", decoded.Names())
	}
}

func TestUniverseContainsAllKnown(t *testing.T) {
	u := Universe()
	for _, c := range All() {
		if !u.Contains(c) {
			t.Errorf("universe missing %v", c)
		}
	}
}

func TestNamesSorted(t *testing.T) {
	s := NewSet(SYS_ADMIN, CHOWN, SETUID)
	names := s.Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("Names() not sorted: %v", names)
		}
	}
}
