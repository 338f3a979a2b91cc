package validation

import (
	"testing"
	"time"

	"mq-pipeline-bench/pkg/commtypes"

	"github.com/stretchr/testify/assert"
)

func validRecord() commtypes.Record {
	return commtypes.Record{
		Name:  "Andrew Zaika",
		Eddr:  "19760506-26583",
		Count: 10,
		Date:  commtypes.Today(),
	}
}

func TestValidEddr(t *testing.T) {
	valid := []string{"19760506-26583", "19760329-99102", "19910428-67856", "19670727-73375", "19751006-23893"}
	for _, s := range valid {
		assert.True(t, ValidEddr(s), s)
	}
	invalid := []string{"19690304-90994", "20050407-18286", "20040731-20888", "19830213-67306", "19810426-17833"}
	for _, s := range invalid {
		assert.False(t, ValidEddr(s), s)
	}
}

func TestValidEddrShape(t *testing.T) {
	assert.True(t, ValidEddrShape("19760506-26583"))
	assert.False(t, ValidEddrShape("19760506-2650583"))
	assert.False(t, ValidEddrShape("1976050626583"))
	assert.False(t, ValidEddrShape("19760506_26583"))
	assert.False(t, ValidEddrShape(" 19760506-26583"))
	assert.False(t, ValidEddrShape(""))
	assert.False(t, ValidEddr("19760506-2650583"))
}

func TestValidEddrChecksum(t *testing.T) {
	assert.True(t, ValidEddrChecksum("19760506-26583"))
	assert.False(t, ValidEddrChecksum("19760506-26580"))
	assert.False(t, ValidEddrChecksum("19760506-2658"))
	assert.False(t, ValidEddrChecksum("1976O506-26583"))
}

func TestValidEddrDate(t *testing.T) {
	assert.True(t, ValidEddrDate("19760506-26583"))
	assert.False(t, ValidEddrDate("05200412-26583"))
	assert.False(t, ValidEddrDate("19761306-26583"))
	assert.False(t, ValidEddrDate("19770229-26583"))
	assert.False(t, ValidEddrDate("19000101-00000"))
	assert.False(t, ValidEddrDate("1976"))

	now := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, validEddrDateAt("20230101-00000", now))
	assert.False(t, validEddrDateAt("20240101-00000", now))
	assert.True(t, validEddrDateAt("19010101-00000", now))
}

func TestDateFailureIgnoresChecksum(t *testing.T) {
	eddr := "05200412-26581"
	assert.True(t, ValidEddrShape(eddr))
	assert.True(t, ValidEddrChecksum(eddr))
	assert.False(t, ValidEddrDate(eddr))
	assert.False(t, ValidEddr(eddr))
}

func TestValidName(t *testing.T) {
	assert.False(t, ValidName("Andrew"))
	assert.False(t, validNameLength("Andrew"))
	assert.False(t, ValidName("Коля Колян"))
	assert.False(t, containsLetterA("Коля Колян"))
	assert.True(t, ValidName("Andrew Zaika"))
	assert.True(t, ValidName("Андрій Заїка"))
	assert.True(t, ValidName("ANDREW ZIKO"))
	// six runes, twelve bytes
	assert.False(t, validNameLength("Андрій"))
}

func TestValidCount(t *testing.T) {
	assert.False(t, ValidCount(5))
	assert.True(t, ValidCount(10))
	assert.False(t, ValidCount(9))
	assert.False(t, ValidCount(-10))
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(validRecord()))
	assert.Empty(t, Violations(validRecord()))

	r := validRecord()
	r.Date = commtypes.Date{}
	assert.False(t, IsValid(r))

	r = validRecord()
	r.Eddr = "19760506-26585"
	assert.False(t, IsValid(r))
	vs := Violations(r)
	assert.Len(t, vs, 1)
	assert.Equal(t, MsgEddr, vs[0].Message)
}

func TestViolations(t *testing.T) {
	r := commtypes.Record{Name: "Коля", Eddr: "oops", Count: 5}
	vs := Violations(r)
	msgs := make([]string, 0, len(vs))
	for _, v := range vs {
		msgs = append(msgs, v.Message)
	}
	assert.Equal(t, []string{MsgNameLength, MsgNameLetter, MsgEddr, MsgCount, MsgDate}, msgs)
}

func TestEddrControlDigit(t *testing.T) {
	d, ok := EddrControlDigit("197605062658")
	assert.True(t, ok)
	assert.Equal(t, 3, d)
	_, ok = EddrControlDigit("19760506265")
	assert.False(t, ok)
	_, ok = EddrControlDigit("19760506265x")
	assert.False(t, ok)
}
