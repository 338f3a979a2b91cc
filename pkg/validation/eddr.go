package validation

import (
	"regexp"
	"strings"
	"time"
)

var eddrPattern = regexp.MustCompile(`^\d{8}-\d{5}$`)

var eddrWeights = [12]int{7, 3, 1, 7, 3, 1, 7, 3, 1, 7, 3, 1}

const eddrDateLayout = "20060102"

// ValidEddrShape reports whether eddr is exactly 8 digits, a dash and 5 digits.
func ValidEddrShape(eddr string) bool {
	return eddrPattern.MatchString(eddr)
}

// ValidEddrDate reports whether the first 8 characters of eddr form a real
// YYYYMMDD calendar date whose year lies strictly between 1900 and the
// current year.
func ValidEddrDate(eddr string) bool {
	return validEddrDateAt(eddr, time.Now())
}

func validEddrDateAt(eddr string, now time.Time) bool {
	if len(eddr) < 8 {
		return false
	}
	prefix := eddr[:8]
	born, err := time.Parse(eddrDateLayout, prefix)
	if err != nil {
		return false
	}
	year := born.Year()
	return year > 1900 && year < now.Year()
}

// EddrControlDigit computes the control digit for the 12 digits that
// precede it: each digit is multiplied by the cyclic weights 7,3,1 and the
// sum is taken mod 10.
func EddrControlDigit(digits string) (int, bool) {
	if len(digits) != len(eddrWeights) {
		return 0, false
	}
	sum := 0
	for i, w := range eddrWeights {
		c := digits[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		sum += int(c-'0') * w
	}
	return sum % 10, true
}

// ValidEddrChecksum compares the final digit of eddr with the control digit
// computed from the digits before it.
func ValidEddrChecksum(eddr string) bool {
	digits := strings.Replace(eddr, "-", "", 1)
	if len(digits) != len(eddrWeights)+1 {
		return false
	}
	want, ok := EddrControlDigit(digits[:len(eddrWeights)])
	if !ok {
		return false
	}
	last := digits[len(digits)-1]
	return last >= '0' && last <= '9' && int(last-'0') == want
}

// ValidEddr combines the shape, date and checksum predicates.
func ValidEddr(eddr string) bool {
	return ValidEddrShape(eddr) && ValidEddrDate(eddr) && ValidEddrChecksum(eddr)
}
