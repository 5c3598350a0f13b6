package pathutil

import "testing"

func TestToRelative(t *testing.T) {
	cases := []struct {
		name, abs, root, want string
	}{
		{"inside root", "/save/ab/cdef.mp4", "/save", "ab/cdef.mp4"},
		{"outside root", "/other/location/file.go", "/save", "/other/location/file.go"},
		{"already relative", "ab/cdef.mp4", "/save", "ab/cdef.mp4"},
		{"empty abs", "", "/save", ""},
		{"empty root", "/save/ab/cdef.mp4", "", "/save/ab/cdef.mp4"},
		{"exact root", "/save", "/save", "."},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ToRelative(c.abs, c.root); got != c.want {
				t.Errorf("ToRelative(%q, %q) = %q, want %q", c.abs, c.root, got, c.want)
			}
		})
	}
}

func TestShard(t *testing.T) {
	dir, rest := Shard("deadbeefcafe")
	if dir != "de" || rest != "adbeefcafe" {
		t.Errorf("Shard = (%q, %q), want (\"de\", \"adbeefcafe\")", dir, rest)
	}

	dir, rest = Shard("a")
	if dir != "a" || rest != "" {
		t.Errorf("Shard(short) = (%q, %q), want (\"a\", \"\")", dir, rest)
	}
}

func TestRealPathMissing(t *testing.T) {
	const missing = "/no/such/path/at/all"
	if got := RealPath(missing); got != missing {
		t.Errorf("RealPath(missing) = %q, want unchanged %q", got, missing)
	}
}
