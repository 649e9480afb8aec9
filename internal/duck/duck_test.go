package duck

import (
	"errors"
	"testing"
)

func TestParseVolume(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    int
		wantErr bool
	}{
		{
			name:   "typical stereo output",
			output: "Volume: front-left: 49152 /  75% / -7.50 dB,   front-right: 49152 /  75% / -7.50 dB",
			want:   75,
		},
		{
			name:   "full volume",
			output: "Volume: front-left: 65536 / 100% / 0.00 dB,   front-right: 65536 / 100% / 0.00 dB",
			want:   100,
		},
		{
			name:   "muted to zero",
			output: "Volume: front-left: 0 /   0% / -inf dB,   front-right: 0 /   0% / -inf dB",
			want:   0,
		},
		{
			name:    "no percentage at all",
			output:  "Volume: something unexpected",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseVolume(tc.output)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("parseVolume(%q) = %d, want error", tc.output, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseVolume(%q): %v", tc.output, err)
			}
			if got != tc.want {
				t.Errorf("parseVolume(%q) = %d, want %d", tc.output, got, tc.want)
			}
		})
	}
}

func TestDuckAndRestore(t *testing.T) {
	var set []int
	d := &Ducker{
		getOutput: func() (string, error) {
			return "Volume: front-left: 49152 / 75% / -7.50 dB", nil
		},
		setVolume: func(p int) error { set = append(set, p); return nil },
		saved:     -1,
	}

	if !d.Duck(30) {
		t.Fatal("Duck failed with readable volume")
	}
	d.Restore()

	if len(set) != 2 || set[0] != 30 || set[1] != 75 {
		t.Errorf("volume changes = %v, want [30 75]", set)
	}
}

func TestDoubleDuckKeepsOriginalVolume(t *testing.T) {
	volumes := []string{
		"Volume: front-left: 49152 / 75% / -7.50 dB",
		"Volume: front-left: 19660 / 30% / -31.37 dB",
	}
	var set []int
	call := 0
	d := &Ducker{
		getOutput: func() (string, error) {
			out := volumes[call]
			if call < len(volumes)-1 {
				call++
			}
			return out, nil
		},
		setVolume: func(p int) error { set = append(set, p); return nil },
		saved:     -1,
	}

	d.Duck(30)
	d.Duck(30) // second session start without restore in between
	d.Restore()

	if got := set[len(set)-1]; got != 75 {
		t.Errorf("restored volume = %d, want the pre-duck 75", got)
	}
}

func TestDuckDegradesWithoutPactl(t *testing.T) {
	d := &Ducker{
		getOutput: func() (string, error) { return "", errors.New("pactl missing") },
		setVolume: func(int) error { t.Fatal("setVolume called"); return nil },
		saved:     -1,
	}

	if d.Duck(30) {
		t.Error("Duck succeeded without a readable volume")
	}
	d.Restore() // must be a no-op, setVolume would t.Fatal
}
