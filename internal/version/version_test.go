package version

import (
	"errors"
	"testing"

	"shipwright/internal/services"
)

func TestParseAcceptsReleaseTags(t *testing.T) {
	tests := []struct {
		in         string
		number     string
		major      int
		minor      int
		patch      int
		prerelease string
	}{
		{"v0.0.1", "0.0.1", 0, 0, 1, ""},
		{"v1.1.0", "1.1.0", 1, 1, 0, ""},
		{"v10.20.300", "10.20.300", 10, 20, 300, ""},
		{"v1.2.3-rc1", "1.2.3-rc1", 1, 2, 3, "rc1"},
		{"v1.2.3-beta.2", "1.2.3-beta.2", 1, 2, 3, "beta.2"},
		{"v2.0.0-0.3.7", "2.0.0-0.3.7", 2, 0, 0, "0.3.7"},
	}
	for _, tc := range tests {
		v, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", tc.in, err)
		}
		if v.Tag() != tc.in {
			t.Fatalf("Parse(%q).Tag() = %q", tc.in, v.Tag())
		}
		if v.Number() != tc.number {
			t.Fatalf("Parse(%q).Number() = %q, want %q", tc.in, v.Number(), tc.number)
		}
		if v.Major() != tc.major || v.Minor() != tc.minor || v.Patch() != tc.patch {
			t.Fatalf("Parse(%q) components = %d.%d.%d", tc.in, v.Major(), v.Minor(), v.Patch())
		}
		if v.Prerelease() != tc.prerelease {
			t.Fatalf("Parse(%q).Prerelease() = %q, want %q", tc.in, v.Prerelease(), tc.prerelease)
		}
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, in := range []string{
		"",
		"1.2.3",
		"V1.2.3",
		"v1.2",
		"v1.2.3.4",
		"v1.x.3",
		"va.b.c",
		"v1.2.3-",
		"v1.2.3-rc_1",
		"v1.2.3-rc 1",
		"v1.2.3+build",
		"vv1.2.3",
		"v-1.2.3",
		"release-v1.2.3",
	} {
		_, err := Parse(in)
		if err == nil {
			t.Fatalf("expected Parse(%q) to fail", in)
		}
		if !errors.Is(err, ErrInvalidFormat) {
			t.Fatalf("expected ErrInvalidFormat for %q, got %v", in, err)
		}
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("expected validation marker for %q, got %v", in, err)
		}
	}
}

func TestParseRequiresExactMatch(t *testing.T) {
	for _, in := range []string{" v1.0.0", "v1.0.0\n", "  v1.0.0\n", "\tv1.0.0"} {
		if _, err := Parse(in); !errors.Is(err, ErrInvalidFormat) {
			t.Fatalf("expected Parse(%q) to fail, got %v", in, err)
		}
	}
}

func TestZeroVersionIsNotTheSentinel(t *testing.T) {
	v, err := Parse("v0.0.0")
	if err != nil {
		t.Fatalf("Parse(v0.0.0): %v", err)
	}
	if v.IsNone() {
		t.Fatal("parsed v0.0.0 must not be the no-prior-release sentinel")
	}
	if !None.IsNone() || !(Version{}).IsNone() {
		t.Fatal("sentinel and zero value must report IsNone")
	}
	if None.Tag() != "v0.0.0" || v.Compare(None) != 0 {
		t.Fatalf("sentinel should print and order as v0.0.0, got %s", None.Tag())
	}
}

func TestNoneSentinel(t *testing.T) {
	if !None.IsNone() {
		t.Fatal("expected None to report IsNone")
	}
	if None.Tag() != "v0.0.0" || None.Number() != "0.0.0" {
		t.Fatalf("unexpected sentinel: %q %q", None.Tag(), None.Number())
	}
	if !(Version{}).IsNone() {
		t.Fatal("expected zero value to report IsNone")
	}
	if MustParse("v1.0.0").IsNone() {
		t.Fatal("expected parsed version not to be None")
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"v1.0.0", "v1.0.0", 0},
		{"v1.0.0", "v1.1.0", -1},
		{"v2.0.0", "v1.9.9", 1},
		{"v1.0.0-rc1", "v1.0.0", -1},
		{"v1.0.0", "v1.0.0-rc1", 1},
		{"v1.0.0-alpha", "v1.0.0-beta", -1},
	}
	for _, tc := range tests {
		if got := MustParse(tc.a).Compare(MustParse(tc.b)); got != tc.want {
			t.Fatalf("Compare(%s, %s) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
