package simhash

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFingerprintZero(t *testing.T) {
	for _, in := range []string{"", "   \t\n  ", "-- ... !!"} {
		if fp := Fingerprint(in); fp != 0 {
			t.Errorf("Fingerprint(%q) = %064b, want 0", in, fp)
		}
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	for _, in := range []string{"hello", "the quick brown fox jumps over the lazy dog"} {
		fp := Fingerprint(in)
		if fp == 0 {
			t.Errorf("Fingerprint(%q) = 0", in)
		}
		if again := Fingerprint(in); again != fp {
			t.Errorf("Fingerprint(%q) not deterministic: %d vs %d", in, fp, again)
		}
	}
}

func TestFingerprintDistance(t *testing.T) {
	base := "the quick brown fox jumps over the lazy dog"

	// One word changed stays close.
	if d := Distance(Fingerprint(base), Fingerprint("the quick brown fox leaps over the lazy dog")); d > 10 {
		t.Errorf("near text distance = %d, want <= 10", d)
	}
	// Unrelated text lands far away.
	if d := Distance(Fingerprint(base), Fingerprint("completely unrelated content about quantum physics and mathematics")); d < 5 {
		t.Errorf("unrelated text distance = %d, want >= 5", d)
	}
}

func TestFingerprintFoldsCaseAndPunctuation(t *testing.T) {
	want := Fingerprint("pad thai")
	for _, in := range []string{"Pad Thai,", "PAD  thai!", "pad - thai", "(pad) thai"} {
		if got := Fingerprint(in); got != want {
			t.Errorf("Fingerprint(%q) = %064b, want %064b", in, got, want)
		}
	}
}

func TestFingerprintFields(t *testing.T) {
	if fp := FingerprintFields("", " ", ""); fp != 0 {
		t.Errorf("empty fields should produce fingerprint 0, got: %064b", fp)
	}
	if FingerprintFields("thai", "") == FingerprintFields("", "thai") {
		t.Error("the same word in different fields should fingerprint differently")
	}

	a := FingerprintFields("Chicken Pad Thai", "Rice noodles with chicken", "https://img/1.jpg")
	b := FingerprintFields("chicken pad thai", "rice noodles with chicken", "https://img/1.jpg")
	if a != b {
		t.Errorf("case-only differences should not change the fingerprint, distance: %d", Distance(a, b))
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
		want int
	}{
		{"identical", 0xFF, 0xFF, 0},
		{"all different", 0, ^uint64(0), 64},
		{"one bit", 0, 1, 1},
		{"two bits", 0, 3, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.a, tt.b); got != tt.want {
				t.Errorf("Distance(%#x, %#x) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSimilarThreshold(t *testing.T) {
	a := Fingerprint("the quick brown fox")
	b := Fingerprint("a completely different text about nothing related")
	d := Distance(a, b)

	if !Similar(a, a, 0) {
		t.Error("a fingerprint should be similar to itself at threshold 0")
	}
	if Similar(a, b, d-1) {
		t.Errorf("similar at threshold %d with distance %d", d-1, d)
	}
	if !Similar(a, b, d) {
		t.Errorf("not similar at threshold equal to distance %d", d)
	}
}

func TestFingerprintDOM(t *testing.T) {
	tests := []struct {
		name   string
		a, b   string
		same   bool
		minGap int
	}{
		{
			name: "text ignored",
			a:    `<html><head><title>Page 1</title></head><body><div><h1>Hello</h1><p>World</p></div></body></html>`,
			b:    `<html><head><title>Page 2</title></head><body><div><h1>Hi</h1><p>Earth</p></div></body></html>`,
			same: true,
		},
		{
			name:   "different layout",
			a:      `<html><body><div><h1>Title</h1><p>Text</p><p>More text</p></div></body></html>`,
			b:      `<html><body><table><tr><td>A</td><td>B</td></tr><tr><td>C</td><td>D</td></tr></table></body></html>`,
			minGap: 3,
		},
		{
			name:   "nesting depth",
			a:      `<div><div><div><p>Deep</p></div></div></div>`,
			b:      `<div><p>Shallow</p></div>`,
			minGap: 1,
		},
		{
			name:   "different item mounted",
			a:      `<div data-testid="item-1"><p>x</p><img src="a.jpg"></div>`,
			b:      `<div data-testid="item-9"><p>x</p><img src="a.jpg"></div>`,
			minGap: 1,
		},
		{
			name:   "image gained a source",
			a:      `<div><img></div>`,
			b:      `<div><img src="thumb.jpg"></div>`,
			minGap: 1,
		},
		{
			name: "source value ignored",
			a:    `<div><img src="thumb.jpg"></div>`,
			b:    `<div><img src="other.jpg"></div>`,
			same: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Distance(FingerprintDOM(tt.a), FingerprintDOM(tt.b))
			if tt.same && d != 0 {
				t.Errorf("distance = %d, want 0", d)
			}
			if !tt.same && d < tt.minGap {
				t.Errorf("distance = %d, want >= %d", d, tt.minGap)
			}
		})
	}
}

func TestFingerprintDOMEdges(t *testing.T) {
	if fp := FingerprintDOM(""); fp != 0 {
		t.Errorf("empty HTML: got %064b, want 0", fp)
	}
	if fp := FingerprintDOM("just some plain text with no tags"); fp != 0 {
		t.Errorf("plain text: got %064b, want 0", fp)
	}
	if FingerprintDOM("<br/>") == 0 {
		t.Error("a single tag should produce a non-zero fingerprint")
	}
}

func TestStructureTokens(t *testing.T) {
	got := structureTokens(`<div data-testid="grid"><img src="a.jpg"><img><span data-testid="">x</span><br/></div>`)
	want := []string{"div#grid", "img+src", "img", "span", "br"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestMakeShingles(t *testing.T) {
	if diff := cmp.Diff([]string{"a_b_c", "b_c_d"}, makeShingles([]string{"a", "b", "c", "d"}, 3)); diff != "" {
		t.Errorf("shingles mismatch (-want +got):\n%s", diff)
	}
	if got := makeShingles([]string{"a", "b"}, 3); got != nil {
		t.Errorf("fewer tokens than n: got %v, want nil", got)
	}
}
