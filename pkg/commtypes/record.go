//go:generate msgp
//msgp:ignore RecordJSONSerdeG RecordMsgpSerdeG
//msgp:shim Date as:string using:dateToString/dateFromString mode:convert
package commtypes

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day without time of day or zone. The zero value stands
// for a missing date.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func Today() Date {
	y, m, d := time.Now().Date()
	return NewDate(y, m, d)
}

func ParseDate(s string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t: t}, nil
}

func (d Date) IsZero() bool {
	return d.t.IsZero()
}

func (d Date) Year() int {
	return d.t.Year()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("date must be a JSON string, got %s", b)
	}
	parsed, err := ParseDate(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func dateToString(d Date) (string, error) {
	return d.String(), nil
}

func dateFromString(s string) (Date, error) {
	return ParseDate(s)
}

// Record is the synthetic payload pushed through the pipeline. Field order
// is part of the wire and sink contract.
type Record struct {
	Name  string `json:"name" msg:"name"`
	Eddr  string `json:"eddr" msg:"eddr"`
	Count int    `json:"count" msg:"count"`
	Date  Date   `json:"date" msg:"date"`
}

func (r Record) String() string {
	return fmt.Sprintf("Record{name='%s', eddr='%s', count=%d, date=%s}", r.Name, r.Eddr, r.Count, r.Date)
}

// Fields returns the record in sink column order.
func (r Record) Fields() []string {
	return []string{r.Name, r.Eddr, strconv.Itoa(r.Count), r.Date.String()}
}

var RecordHeader = []string{"name", "eddr", "count", "date"}
