package generator

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"mq-pipeline-bench/pkg/commtypes"
	"mq-pipeline-bench/pkg/validation"
)

const (
	MAX_COUNT      = 999
	MIN_BIRTH_YEAR = 1930
)

var (
	LAST_NAMES  = [12]string{"Шевченко", "Коваленко", "Бондаренко", "Ткачук", "Олійник", "Федоришин", "Мельник", "Кравчук", "Лисенко", "Гончар", "Лук'янчук", "Зінчук"}
	FIRST_NAMES = [12]string{"Андрій", "Олена", "Тарас", "Оксана", "Буревіст", "Ірина", "Богдан", "Марія", "Юрій", "Світлана", "Петро", "Назар"}
	PATRONYMICS = [8]string{"Сергійович", "Іванівна", "Петрович", "Олегівна", "Юрійович", "Богданівна", "Миколайович", "Тарасівна"}
)

// RecordGenerator produces synthetic records. It is not safe for concurrent
// use; every producer worker owns one.
type RecordGenerator struct {
	random *rand.Rand
	now    func() time.Time
}

func NewRecordGenerator(seed int64) *RecordGenerator {
	return &RecordGenerator{
		random: rand.New(rand.NewSource(seed)),
		now:    time.Now,
	}
}

func (g *RecordGenerator) Generate() commtypes.Record {
	return commtypes.Record{
		Name:  g.nextName(),
		Eddr:  g.nextEddr(),
		Count: g.random.Intn(MAX_COUNT),
		Date:  commtypes.Today(),
	}
}

func (g *RecordGenerator) nextName() string {
	parts := []string{
		LAST_NAMES[g.random.Intn(len(LAST_NAMES))],
		FIRST_NAMES[g.random.Intn(len(FIRST_NAMES))],
	}
	if g.random.Intn(2) == 0 {
		parts = append(parts, PATRONYMICS[g.random.Intn(len(PATRONYMICS))])
	}
	if g.random.Intn(8) == 0 {
		// short names exercise the length predicate
		return parts[1]
	}
	return strings.Join(parts, " ")
}

// nextEddr returns a well-checksummed identifier half of the time and a
// corrupted one otherwise.
func (g *RecordGenerator) nextEddr() string {
	if g.random.Intn(2) == 0 {
		return g.nextValidEddr()
	}
	return g.nextInvalidEddr()
}

func (g *RecordGenerator) nextBirthDate() time.Time {
	lastYear := g.now().Year() - 1
	start := time.Date(MIN_BIRTH_YEAR, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(lastYear, time.December, 31, 0, 0, 0, 0, time.UTC)
	days := int(end.Sub(start).Hours() / 24)
	return start.AddDate(0, 0, g.random.Intn(days+1))
}

func (g *RecordGenerator) nextDigits12() string {
	return g.nextBirthDate().Format("20060102") + fmt.Sprintf("%04d", g.random.Intn(10000))
}

func (g *RecordGenerator) nextValidEddr() string {
	digits := g.nextDigits12()
	control, _ := validation.EddrControlDigit(digits)
	return fmt.Sprintf("%s-%s%d", digits[:8], digits[8:], control)
}

func (g *RecordGenerator) nextInvalidEddr() string {
	digits := g.nextDigits12()
	control, _ := validation.EddrControlDigit(digits)
	wrong := (control + 1 + g.random.Intn(9)) % 10
	return fmt.Sprintf("%s-%s%d", digits[:8], digits[8:], wrong)
}
