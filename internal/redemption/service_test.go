package redemption

import "testing"

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		valid bool
	}{
		{"well formed", "VERTX-TRAD-AB12-CD34-30", true},
		{"all letters", "VERTX-TRAD-ABCD-EFGH-30", true},
		{"all digits", "VERTX-TRAD-1234-5678-30", true},
		{"empty", "", false},
		{"lowercase groups", "VERTX-TRAD-ab12-cd34-30", false},
		{"wrong prefix", "VORTX-TRAD-AB12-CD34-30", false},
		{"short group", "VERTX-TRAD-AB1-CD34-30", false},
		{"long group", "VERTX-TRAD-AB123-CD34-30", false},
		{"wrong duration", "VERTX-TRAD-AB12-CD34-60", false},
		{"missing duration", "VERTX-TRAD-AB12-CD34", false},
		{"trailing garbage", "VERTX-TRAD-AB12-CD34-30X", false},
		{"special characters", "VERTX-TRAD-AB!2-CD34-30", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFormat(tt.code)
			if tt.valid && err != nil {
				t.Errorf("ValidateFormat(%q) = %v, want nil", tt.code, err)
			}
			if !tt.valid && err != ErrInvalidFormat {
				t.Errorf("ValidateFormat(%q) = %v, want ErrInvalidFormat", tt.code, err)
			}
		})
	}
}

func TestGenerateCodeWellFormed(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		if err := ValidateFormat(code); err != nil {
			t.Fatalf("generated code %q fails format validation", code)
		}
		seen[code] = true
	}

	// 50 draws from a 36^8 space colliding would point at a broken generator
	if len(seen) < 45 {
		t.Errorf("expected distinct codes, got %d unique out of 50", len(seen))
	}
}
