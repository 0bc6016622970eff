package sales

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "30к", FormatAmount(30000))
	assert.Equal(t, "2.5к", FormatAmount(2500))
	assert.Equal(t, "1к", FormatAmount(1000))
	assert.Equal(t, "999", FormatAmount(999))
	assert.Equal(t, "500", FormatAmount(500))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "2 100", FormatNumber(2100))
	assert.Equal(t, "12 345", FormatNumber(12345))
	assert.Equal(t, "1 234 567", FormatNumber(1234567))
	assert.Equal(t, "999", FormatNumber(999))
	assert.Equal(t, "0", FormatNumber(0))
}

func TestIsFeminineName(t *testing.T) {
	assert.True(t, IsFeminineName("Мария"))
	assert.True(t, IsFeminineName("Ольга"))
	assert.False(t, IsFeminineName("Иван"))
	assert.False(t, IsFeminineName("Олег"))
}

func TestSummaryFullyPaidStarter(t *testing.T) {
	d := Draft{
		ClientName:     "Мария",
		MasterName:     "Ольга",
		PackageType:    PackageStarter,
		PracticesCount: 4,
		TotalAmount:    30000,
		PaidAmount:     30000,
	}
	msg := Summary(d)

	assert.Contains(t, msg, "Новая продажа!🗝️")
	assert.Contains(t, msg, "Набор «стартовый набор» из 4 практик")
	assert.Contains(t, msg, "Вела её Ольга 👏🏼")
	assert.Contains(t, msg, "Сейчас Мария отправила по факту 30к , это один полный перевод за 4 практик")
	assert.Contains(t, msg, "это 2 100 р")
	assert.Contains(t, msg, "Остаток 0.")
	assert.Contains(t, msg, "Пошли абонементы!")
	assert.NotContains(t, msg, "•")
}

func TestSummaryUnscheduledRemainder(t *testing.T) {
	d := Draft{
		ClientName:     "Иван",
		MasterName:     "Олег",
		PackageType:    PackageScale,
		PracticesCount: 8,
		TotalAmount:    50000,
		PaidAmount:     20000,
	}
	msg := Summary(d)

	assert.Contains(t, msg, "Вел его Олег 👏🏼")
	assert.Contains(t, msg, "Сейчас Иван отправил по факту 20к , это один перевод")
	assert.Contains(t, msg, "Остаток 30к.")
	assert.Contains(t, msg, "Жмём пружину на вершину!")
}

func TestSummaryScheduledTranches(t *testing.T) {
	d := Draft{
		ClientName:     "Мария",
		MasterName:     "Ольга",
		PackageType:    PackageExpansion,
		PracticesCount: 6,
		TotalAmount:    40000,
		PaidAmount:     10000,
		Tranches: []Tranche{
			{Amount: 15000, DueDate: "15.10.2026"},
			{Amount: 15000, DueDate: "15.11.2026"},
		},
	}
	msg := Summary(d)

	assert.Contains(t, msg, "Остаток 30к:")
	assert.Contains(t, msg, "• 15к до 15.10.2026")
	assert.Contains(t, msg, "• 15к до 15.11.2026")
	// Expansion trailer only applies when nothing is left to pay.
	assert.NotContains(t, msg, "Ну если только ещё")
}

func TestSummaryExpansionFullyPaidTrailer(t *testing.T) {
	d := Draft{
		ClientName:     "Анна",
		MasterName:     "Вера",
		PackageType:    PackageExpansion,
		PracticesCount: 6,
		TotalAmount:    20000,
		PaidAmount:     20000,
	}
	msg := Summary(d)
	assert.Contains(t, msg, "Остаток 0.")
	assert.Contains(t, msg, "Ну если только ещё не решит практики делать")
}

func TestSummaryDeterministic(t *testing.T) {
	d := Draft{
		ClientName:     "Мария",
		MasterName:     "Ольга",
		PackageType:    PackageStarter,
		PracticesCount: 4,
		TotalAmount:    30000,
		PaidAmount:     30000,
	}
	assert.Equal(t, Summary(d), Summary(d))
	assert.False(t, strings.Contains(Summary(d), "%!"))
}
