package tracker

import "testing"

func TestClassifierMatch(t *testing.T) {
	t.Parallel()
	c := NewClassifier(nil)

	tests := []struct {
		name string
		d    *Descriptor
		want bool
	}{
		{name: "nil descriptor", d: nil, want: false},
		{name: "empty name", d: &Descriptor{}, want: false},
		{name: "blank name", d: &Descriptor{Name: "   "}, want: false},
		{name: "exact", d: &Descriptor{Name: "league of legends"}, want: true},
		{name: "abbreviation", d: &Descriptor{Name: "lol"}, want: true},
		{name: "mixed case", d: &Descriptor{Name: "LeAgUe of LEGENDS"}, want: true},
		{name: "padded", d: &Descriptor{Name: "  LoL  "}, want: true},
		{name: "other game", d: &Descriptor{Name: "dota 2"}, want: false},
		{name: "substring does not match", d: &Descriptor{Name: "league of legends: wild rift"}, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Match(tt.d); got != tt.want {
				t.Fatalf("Match(%v) = %v, want %v", tt.d, got, tt.want)
			}
		})
	}
}

func TestClassifierCustomAliases(t *testing.T) {
	t.Parallel()
	c := NewClassifier([]string{"Teamfight Tactics", " tft "})

	if !c.Match(&Descriptor{Name: "teamfight tactics"}) {
		t.Fatal("expected custom alias to match")
	}
	if !c.Match(&Descriptor{Name: "TFT"}) {
		t.Fatal("expected trimmed custom alias to match")
	}
	if c.Match(&Descriptor{Name: "league of legends"}) {
		t.Fatal("defaults must not apply when aliases are supplied")
	}
}

func TestClassifierNilReceiver(t *testing.T) {
	t.Parallel()
	var c *Classifier
	if c.Match(&Descriptor{Name: "lol"}) {
		t.Fatal("nil classifier must not match")
	}
}
