package utils

import "testing"

func TestGetStringPayload(t *testing.T) {
	payload := map[string]any{"name": "recon.pdf", "count": 3}

	if v, err := GetStringPayload(payload, "name"); err != nil || v != "recon.pdf" {
		t.Errorf("GetStringPayload(name) = (%q, %v)", v, err)
	}
	if _, err := GetStringPayload(payload, "count"); err == nil {
		t.Errorf("expected a type error for a non-string value")
	}
	if _, err := GetStringPayload(payload, "missing"); err == nil {
		t.Errorf("expected an error for a missing key")
	}
}

func TestGetBoolPayload(t *testing.T) {
	testCases := []struct {
		name      string
		payload   map[string]any
		want      bool
		expectErr bool
	}{
		{name: "Native bool", payload: map[string]any{"v": true}, want: true},
		{name: "String true", payload: map[string]any{"v": "true"}, want: true},
		{name: "String false with spaces", payload: map[string]any{"v": " false "}, want: false},
		{name: "Unparseable string", payload: map[string]any{"v": "maybe"}, expectErr: true},
		{name: "Wrong type", payload: map[string]any{"v": 1.5}, expectErr: true},
		{name: "Missing key", payload: map[string]any{}, expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := GetBoolPayload(tc.payload, "v")
			if (err != nil) != tc.expectErr {
				t.Fatalf("err = %v, expectErr = %v", err, tc.expectErr)
			}
			if err == nil && got != tc.want {
				t.Errorf("GetBoolPayload = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGetFloatPayload(t *testing.T) {
	testCases := []struct {
		name      string
		payload   map[string]any
		want      float64
		expectErr bool
	}{
		{name: "Float64", payload: map[string]any{"v": 0.75}, want: 0.75},
		{name: "Int", payload: map[string]any{"v": 3}, want: 3},
		{name: "Numeric string", payload: map[string]any{"v": "0.5"}, want: 0.5},
		{name: "Unparseable string", payload: map[string]any{"v": "high"}, expectErr: true},
		{name: "Missing key", payload: map[string]any{}, expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := GetFloatPayload(tc.payload, "v")
			if (err != nil) != tc.expectErr {
				t.Fatalf("err = %v, expectErr = %v", err, tc.expectErr)
			}
			if err == nil && got != tc.want {
				t.Errorf("GetFloatPayload = %v, want %v", got, tc.want)
			}
		})
	}
}
