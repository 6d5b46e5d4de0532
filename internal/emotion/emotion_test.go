package emotion

import (
	"errors"
	"math"
	"testing"
)

func TestResolve(t *testing.T) {
	presets := Default()
	cases := []struct {
		name     string
		settings Settings
		want     float64
	}{
		{"angry clamps strength", Settings{Emotion: "angry", Strength: 2.0}, 1.56},
		{"defaults to friendly", Settings{}, 1.0},
		{"calm at base", Settings{Emotion: "calm", Strength: 1.0}, 0.75},
		{"explicit speed wins over preset", Settings{Emotion: "storytelling", Strength: 0.5, Speed: 1.6}, 0.8},
		{"strength under cap is kept", Settings{Emotion: "robot", Strength: 1.1}, 1.155},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := presets.Resolve(tc.settings)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestResolveAngryStaysWithinSpeedRange(t *testing.T) {
	got, err := Default().Resolve(Settings{Emotion: "angry", Strength: 2.0})
	if err != nil {
		t.Fatal(err)
	}
	if got < MinSpeed || got > MaxSpeed {
		t.Fatalf("effective speed %v outside [%v, %v]", got, MinSpeed, MaxSpeed)
	}
}

func TestResolveErrors(t *testing.T) {
	presets := Default()
	cases := []struct {
		name     string
		settings Settings
		want     error
	}{
		{"unknown", Settings{Emotion: "sarcastic"}, ErrUnknownEmotion},
		{"strength low", Settings{Strength: 0.1}, ErrStrengthRange},
		{"strength high", Settings{Strength: 2.5}, ErrStrengthRange},
		{"speed low", Settings{Speed: 0.2}, ErrSpeedRange},
		{"speed high", Settings{Speed: 1.7}, ErrSpeedRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := presets.Resolve(tc.settings); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestNewCopiesInput(t *testing.T) {
	speeds := map[string]float64{"calm": 0.75}
	presets := New(speeds, 0)
	speeds["calm"] = 1.5

	if got, _ := presets.BaseSpeed("calm"); got != 0.75 {
		t.Fatalf("expected presets to be isolated from caller map, got %v", got)
	}
	if presets.maxStrength != DefaultMaxStrength {
		t.Fatalf("expected default max strength, got %v", presets.maxStrength)
	}
}

func TestListSorted(t *testing.T) {
	list := Default().List()
	if len(list) != 5 {
		t.Fatalf("expected 5 presets, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].Name > list[i].Name {
			t.Fatalf("presets not sorted: %v", list)
		}
	}
}
