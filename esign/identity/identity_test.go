package identity

import "testing"

func TestDecodeQualifier(t *testing.T) {
	tests := []struct {
		name      string
		qualifier string
		wantYear  string
		wantGen   string
	}{
		{"empty", "", NA, NA},
		{"blank", "   ", NA, NA},
		{"too short for year", "199", NA, NA},
		{"year only", "1990", "1990", NA},
		{"year and female", "1990F56789", "1990", "F"},
		{"year and male", "1985M", "1985", "M"},
		{"year and transgender", "1979T12", "1979", "T"},
		{"lowercase gender normalized", "1990f5678", "1990", "F"},
		{"invalid gender letter", "1990X5678", "1990", NA},
		{"year at boundary rejected", "1900M", NA, "M"},
		{"year below boundary", "1899F", NA, "F"},
		{"non-numeric year keeps gender", "abcdM123", NA, "M"},
		{"four chars no gender", "1992", "1992", NA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			year, gender := DecodeQualifier(tt.qualifier)
			if year != tt.wantYear {
				t.Errorf("year = %q, want %q", year, tt.wantYear)
			}
			if gender != tt.wantGen {
				t.Errorf("gender = %q, want %q", gender, tt.wantGen)
			}
		})
	}
}

func TestDecodePostalCode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid pincode", "560001", "560001"},
		{"zero", "0", NA},
		{"negative", "-5", NA},
		{"non-numeric", "abc", NA},
		{"empty", "", NA},
		{"small positive", "1", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodePostalCode(tt.input); got != tt.want {
				t.Errorf("DecodePostalCode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestQualifying(t *testing.T) {
	blank := &Record{
		SignerName: "CA Authority", Tpin: NA, State: NA, Gender: NA,
		YearOfBirth: NA, PostalCode: NA,
	}
	if blank.Qualifying() {
		t.Error("record with no personal fields should not qualify")
	}

	withTpin := &Record{Tpin: "ABCD1234", Gender: NA, YearOfBirth: NA, PostalCode: NA}
	if !withTpin.Qualifying() {
		t.Error("record with tpin should qualify")
	}

	withGender := &Record{Tpin: NA, Gender: "F", YearOfBirth: NA, PostalCode: NA}
	if !withGender.Qualifying() {
		t.Error("record with gender should qualify")
	}

	var nilRecord *Record
	if nilRecord.Qualifying() {
		t.Error("nil record should not qualify")
	}
}
