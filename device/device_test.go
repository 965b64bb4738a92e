package device

import (
	"errors"
	"testing"
)

func TestQuantize(t *testing.T) {
	carrier := Param{Name: "carrier", Min: 1, Max: 11, Steps: 11}
	index := Param{Name: "index", Min: 0, Max: 10}

	tests := []struct {
		name string
		p    Param
		in   float64
		want float64
	}{
		{"snap down", carrier, 3.4, 3},
		{"snap up", carrier, 3.6, 4},
		{"clamp low", carrier, -5, 1},
		{"clamp high", carrier, 40, 11},
		{"continuous", index, 4.25, 4.25},
		{"continuous clamp", index, 12, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Quantize(tt.in); got != tt.want {
				t.Errorf("Quantize(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParamSet(t *testing.T) {
	s := NewParamSet(
		Param{Name: "modulator", Min: 1, Max: 4, Steps: 4, Value: 1},
		Param{Name: "carrier", Min: 1, Max: 11, Steps: 11, Value: 2.2},
	)

	list := s.List()
	if len(list) != 2 || list[0].Name != "modulator" || list[1].Name != "carrier" {
		t.Fatalf("List() = %+v, want definition order", list)
	}
	if list[1].Value != 2 {
		t.Errorf("initial carrier = %v, want quantized 2", list[1].Value)
	}

	var seen []Param
	s.Subscribe(func(p Param) { seen = append(seen, p) })

	p, err := s.Set("modulator", 2.9)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if p.Value != 3 {
		t.Errorf("Set returned %v, want 3", p.Value)
	}
	if len(seen) != 1 || seen[0].Value != 3 {
		t.Errorf("subscriber saw %+v", seen)
	}

	if _, err := s.Set("nope", 1); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("Set(nope) err = %v, want ErrUnknownParam", err)
	}
}
