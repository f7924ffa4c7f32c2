package strip

import (
	"slices"
	"testing"
)

func TestBlend_EmptyFrameListIsIdentity(t *testing.T) {
	base := State{Red, Green, Blue}

	got := Blend(base)

	if !slices.Equal(got, base) {
		t.Errorf("Blend(base) = %v, want %v", got, base)
	}
	got[0] = White
	if base[0] != Red {
		t.Error("Blend must not alias base")
	}
}

func TestBlend_LastSetPixelWins(t *testing.T) {
	tests := []struct {
		name   string
		base   State
		frames []Frame
		want   State
	}{
		{
			name:   "unset never overwrites",
			base:   State{Red, Red, Red},
			frames: []Frame{{Unset, Unset, Unset}},
			want:   State{Red, Red, Red},
		},
		{
			name:   "later frame wins at shared positions",
			base:   State{Black, Black, Black},
			frames: []Frame{{Px(Red), Px(Red), Unset}, {Unset, Px(Blue), Unset}},
			want:   State{Red, Blue, Black},
		},
		{
			name:   "earlier frame shows through later unset",
			base:   State{Black, Black},
			frames: []Frame{{Px(Green), Px(Green)}, {Px(Blue), Unset}},
			want:   State{Blue, Green},
		},
		{
			name:   "set black overwrites",
			base:   State{White},
			frames: []Frame{{Px(Black)}},
			want:   State{Black},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Blend(tt.base, tt.frames...)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Blend() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFrame_Reversed(t *testing.T) {
	f := Frame{Px(Red), Unset, Px(Blue)}

	got := f.Reversed()

	want := Frame{Px(Blue), Unset, Px(Red)}
	if !got.Equal(want) {
		t.Errorf("Reversed() = %v, want %v", got, want)
	}
	if f[0] != Px(Red) {
		t.Error("Reversed must not modify the receiver")
	}
}

func TestFrame_IsEmpty(t *testing.T) {
	if !NewFrame(4).IsEmpty() {
		t.Error("new frame should be all Unset")
	}
	if (Frame{Unset, Px(Black)}).IsEmpty() {
		t.Error("frame with a set black pixel is not empty")
	}
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		want    Color
		wantErr bool
	}{
		{"#ff0000", Red, false},
		{"0000ff", Blue, false},
		{"#fff", White, false},
		{"not-a-color", Color{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHex(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHex(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseHex(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLerpEndpoints(t *testing.T) {
	if got := Lerp(Red, Blue, 0); got != Red {
		t.Errorf("Lerp(t=0) = %v, want %v", got, Red)
	}
	if got := Lerp(Red, Blue, 1); got != Blue {
		t.Errorf("Lerp(t=1) = %v, want %v", got, Blue)
	}
}

func TestScale(t *testing.T) {
	c := Color{R: 200, G: 100, B: 50}
	if got := c.Scale(0.5); got != (Color{R: 100, G: 50, B: 25}) {
		t.Errorf("Scale(0.5) = %v", got)
	}
	if got := c.Scale(0); got != Black {
		t.Errorf("Scale(0) = %v, want black", got)
	}
}

func TestHSV_PrimaryHues(t *testing.T) {
	if got := HSV(0, 1, 1); got != Red {
		t.Errorf("HSV(0,1,1) = %v, want red", got)
	}
	if got := HSV(240, 1, 1); got != Blue {
		t.Errorf("HSV(240,1,1) = %v, want blue", got)
	}
}
