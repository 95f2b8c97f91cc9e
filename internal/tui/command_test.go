package tui

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{"quit", Command{Name: "quit"}},
		{"  Search  edinburgh castle ", Command{Name: "search", Args: "edinburgh castle"}},
		{"PLATFORM line", Command{Name: "platform", Args: "line"}},
		{"", Command{}},
	}
	for _, tt := range tests {
		if got := ParseCommand(tt.in); got != tt.want {
			t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseNear(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		rng     int
		query   string
		wantErr bool
	}{
		{"valid", "3 rent due", 3, "rent due", false},
		{"extra spaces", " 10   pay me back ", 10, "pay me back", false},
		{"negative range passes through", "-1 rent", -1, "rent", false},
		{"missing query", "3", 0, "", true},
		{"non numeric", "three rent", 0, "", true},
		{"empty", "", 0, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng, q, err := parseNear(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.args)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rng != tt.rng || q != tt.query {
				t.Errorf("got (%d, %q), want (%d, %q)", rng, q, tt.rng, tt.query)
			}
		})
	}
}
