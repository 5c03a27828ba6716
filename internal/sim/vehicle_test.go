package sim

import (
	"testing"
)

func TestParseDirection(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Direction
		wantErr bool
	}{
		{"north", "north", North, false},
		{"east", "east", East, false},
		{"south", "south", South, false},
		{"west", "west", West, false},
		{"empty", "", 0, true},
		{"uppercase", "North", 0, true}, // Case-sensitive
		{"garbage", "up", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDirection(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDirection(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseDirection(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDirectionRoundTrip(t *testing.T) {
	for d := North; d <= West; d++ {
		got, err := ParseDirection(d.String())
		if err != nil {
			t.Fatalf("ParseDirection(%q): %v", d.String(), err)
		}
		if got != d {
			t.Errorf("round trip %v = %v", d, got)
		}
	}
}

func TestClassSpecBounds(t *testing.T) {
	// Out-of-range classes fall back to the car spec rather than panic.
	if got := Class(-1).Spec(); got != ClassCar.Spec() {
		t.Errorf("Class(-1).Spec() = %+v, want car spec", got)
	}
	if got := Class(99).Spec(); got != ClassCar.Spec() {
		t.Errorf("Class(99).Spec() = %+v, want car spec", got)
	}
}

func TestNewVehicle(t *testing.T) {
	v := NewVehicle(ClassBus, East, 2, -150)
	if v.ID == "" {
		t.Error("vehicle has no id")
	}
	if v.Speed != 0 {
		t.Errorf("initial speed = %v, want 0", v.Speed)
	}
	if v.TargetSpeed != ClassBus.Spec().Cruise {
		t.Errorf("target speed = %v, want %v", v.TargetSpeed, ClassBus.Spec().Cruise)
	}
	if v.Accel != ClassBus.Spec().Accel {
		t.Errorf("accel = %v, want %v", v.Accel, ClassBus.Spec().Accel)
	}
}

func TestLeader(t *testing.T) {
	a := NewVehicle(ClassCar, North, 1, -100)
	b := NewVehicle(ClassCar, North, 1, -40)
	c := NewVehicle(ClassCar, North, 1, 20)
	otherLane := NewVehicle(ClassCar, North, 2, -50)
	otherDir := NewVehicle(ClassCar, South, 1, -50)
	all := []*Vehicle{c, otherDir, a, otherLane, b}

	tests := []struct {
		name string
		v    *Vehicle
		want *Vehicle
	}{
		{"nearest ahead wins", a, b},
		{"skips same position lane mates in other lanes", b, c},
		{"front of queue has no leader", c, nil},
		{"empty other lane", otherLane, nil},
		{"other direction isolated", otherDir, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Leader(tt.v, all); got != tt.want {
				t.Errorf("Leader = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGap(t *testing.T) {
	rear := NewVehicle(ClassCar, North, 1, -100)
	front := NewVehicle(ClassCar, North, 1, -40) // car length 30

	if got := Gap(rear, front); got != 30 {
		t.Errorf("Gap = %v, want 30", got)
	}

	// Overlapping vehicles report a negative gap.
	front.Position = -90
	if got := Gap(rear, front); got != -20 {
		t.Errorf("Gap = %v, want -20", got)
	}
}
