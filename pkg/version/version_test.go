package version

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  []int
	}{
		{"1.2.3", []int{1, 2, 3}},
		{"1.2.0", []int{1, 2}},
		{"1.0.0", []int{1}},
		{"0.0.0", []int{}},
		{"", nil},
		{"1.2.3-beta", []int{1, 2}},
		{"v1.2", []int{2}},
		{"1..2", []int{1, 2}},
		{"10.04", []int{10, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Parse(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		a    string
		b    string
		want bool
	}{
		{"2.0.0", "1.9.9", true},
		{"1.9.9", "2.0.0", false},
		{"1.10", "1.2", true},
		{"1.2", "1.10", false},
		{"1.2.1", "1.2", true},
		{"1.2", "1.2.1", false},
		{"1.2.0", "1.2", false},
		{"1.2", "1.2.0", false},
		{"1.2.3", "1.2.3", false},
		{"", "1.0", false},
		{"1.0", "", true},
		{"garbage", "1.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			if got := IsNewer(tt.a, tt.b); got != tt.want {
				t.Errorf("IsNewer(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		a    string
		b    string
		want bool
	}{
		{"1.2", "1.2.0", true},
		{"1.2.0.0", "1.2", true},
		{"1.2", "1.2.1", false},
		{"", "0.0.0", true},
	}

	for _, tt := range tests {
		if got := Equal(tt.a, tt.b); got != tt.want {
			t.Errorf("Equal(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
