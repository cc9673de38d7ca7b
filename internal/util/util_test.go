package util

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Electronics", "electronics"},
		{"Home & Garden", "home-garden"},
		{"  Café  Crème ", "cafe-creme"},
		{"iPhone 15 Pro-Max!!", "iphone-15-pro-max"},
		{"Ångström", "angstrom"},
		{"日本", ""},
		{"---", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSlugBase_FitsColumnAfterFolding(t *testing.T) {
	// Each ligature folds to three letters.
	name := strings.Repeat("ﬃ", 120)
	if got := len(Slugify(name)); got != 360 {
		t.Fatalf("expected folding to expand to 360 chars, got %d", got)
	}

	base := SlugBase(name, 140)
	if len(base) != 133 {
		t.Errorf("expected base of 133 chars, got %d", len(base))
	}
	if suffixed := SlugWithSuffix(base); len(suffixed) > 140 {
		t.Errorf("suffixed slug has %d chars, exceeds 140", len(suffixed))
	}
}

func TestTruncateSlug(t *testing.T) {
	tests := []struct {
		slug string
		max  int
		want string
	}{
		{"running-shoes", 20, "running-shoes"},
		{"running-shoes", 8, "running"},
		{"running-shoes", 7, "running"},
		{"running-shoes", 3, "run"},
		{"running-shoes", 0, ""},
	}

	for _, tt := range tests {
		if got := TruncateSlug(tt.slug, tt.max); got != tt.want {
			t.Errorf("TruncateSlug(%q, %d) = %q, want %q", tt.slug, tt.max, got, tt.want)
		}
	}
}

func TestSlugWithSuffix(t *testing.T) {
	got := SlugWithSuffix("phones")
	if !regexp.MustCompile(`^phones-[0-9a-z]{6}$`).MatchString(got) {
		t.Errorf("unexpected slug %q", got)
	}
	if len(SlugWithSuffix("")) != 6 {
		t.Error("empty base should yield the bare suffix")
	}
}

func TestGenerateShortCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := GenerateShortCode(8)
		if len(code) != 8 || strings.ToLower(code) != code {
			t.Fatalf("bad code %q", code)
		}
		seen[code] = true
	}
	if len(seen) < 95 {
		t.Errorf("codes are not random enough: %d distinct of 100", len(seen))
	}
}

func TestEmployeeCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z]{3}-[A-Z]{3}-[A-Z]-[1-9]\d{3}$`)

	tests := []struct {
		department, designation, gender string
		prefix                          string
	}{
		{"Engineering", "Software Engineer", "male", "ENG-SOF-M-"},
		{"HR", "Recruiter", "female", "HRX-REC-F-"},
		{"R&D", "QA", "other", "RDX-QAX-O-"},
		{"", "", "", "XXX-XXX-X-"},
	}

	for _, tt := range tests {
		code := EmployeeCode(tt.department, tt.designation, tt.gender)
		if !pattern.MatchString(code) || !strings.HasPrefix(code, tt.prefix) {
			t.Errorf("EmployeeCode(%q, %q, %q) = %q, want prefix %q", tt.department, tt.designation, tt.gender, code, tt.prefix)
		}
	}
}

func TestEmployeeCode_SerialRange(t *testing.T) {
	for i := 0; i < 2000; i++ {
		code := EmployeeCode("Logistics", "Packer", "male")
		serial, err := strconv.Atoi(code[len(code)-4:])
		if err != nil || serial < 1000 || serial > 9999 {
			t.Fatalf("serial of %q outside 1000-9999", code)
		}
	}
}

func TestRandomInt(t *testing.T) {
	seen := map[int64]bool{}
	for i := 0; i < 500; i++ {
		n := RandomInt(3, 5)
		if n < 3 || n > 5 {
			t.Fatalf("RandomInt(3, 5) = %d", n)
		}
		seen[n] = true
	}
	if len(seen) != 3 {
		t.Errorf("expected every value in range, saw %v", seen)
	}
}

func TestQRCodePNG(t *testing.T) {
	png, err := QRCodePNG("https://shop.example.com/products/iphone-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")) {
		t.Error("output is not a PNG")
	}
}
