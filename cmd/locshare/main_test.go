package main

import (
	"context"
	"strings"
	"testing"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/sharing"
)

func TestParseFix(t *testing.T) {
	tests := []struct {
		line    string
		want    sharing.Fix
		wantErr bool
	}{
		{"23.7279,90.3984", sharing.Fix{Latitude: 23.7279, Longitude: 90.3984}, false},
		{"  -33.9 , 151.2 ", sharing.Fix{Latitude: -33.9, Longitude: 151.2}, false},
		{"23.7", sharing.Fix{}, true},
		{"north,90", sharing.Fix{}, true},
		{"91,0", sharing.Fix{}, true},
		{"0,181", sharing.Fix{}, true},
		{"NaN,0", sharing.Fix{}, true},
		{"0,nan", sharing.Fix{}, true},
		{"+Inf,0", sharing.Fix{}, true},
	}
	for _, tt := range tests {
		got, err := parseFix(tt.line)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseFix(%q) err = %v, wantErr %v", tt.line, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseFix(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
	}
}

func TestReadFixesSkipsBadLines(t *testing.T) {
	out := make(chan sharing.Fix, 4)
	readFixes(context.Background(), strings.NewReader("1,2\nbad\n3,4\n"), out)

	var got []sharing.Fix
	for fix := range out {
		got = append(got, fix)
	}
	if len(got) != 2 || got[1].Latitude != 3 {
		t.Errorf("fixes = %+v", got)
	}
}
