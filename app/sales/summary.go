package sales

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatAmount renders a currency amount, abbreviating values from 1000 up
// by dividing by 1000 and appending "к" (30000 -> "30к", 2500 -> "2.5к").
func FormatAmount(amount float64) string {
	if amount >= 1000 {
		return strconv.FormatFloat(amount/1000, 'f', -1, 64) + "к"
	}
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

// FormatNumber groups thousands of an integer with spaces (12345 -> "12 345").
func FormatNumber(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// IsFeminineName infers grammatical gender from the final letter of a name.
// Names ending in "а" or "я" take feminine agreement. Purely cosmetic; a
// classification rule, not a dictionary.
func IsFeminineName(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.HasSuffix(lower, "а") || strings.HasSuffix(lower, "я")
}

// Summary renders the final sale announcement for a completed draft.
// Deterministic given identical input.
func Summary(d Draft) string {
	info, _ := RateFor(d.PackageType)
	pct := d.PackageType.Percent()
	commission := Commission(d.PaidAmount, d.PackageType)
	remainder := d.Remainder()

	paymentDescription := "это один перевод"
	if d.PaidAmount >= d.TotalAmount {
		paymentDescription = fmt.Sprintf("это один полный перевод за %d практик", d.PracticesCount)
	}

	clientFem := IsFeminineName(d.ClientName)
	masterFem := IsFeminineName(d.MasterName)

	ledSuffix := ""
	if masterFem {
		ledSuffix = "а"
	}
	clientPronoun := "его"
	if clientFem {
		clientPronoun = "её"
	}
	sentSuffix := ""
	if clientFem {
		sentSuffix = "а"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Новая продажа!🗝️\n%s.\nНабор «%s» из %d практик\n\n", d.ClientName, info.DisplayName, d.PracticesCount)
	fmt.Fprintf(&b, "Вел%s %s %s 👏🏼\n\n", ledSuffix, clientPronoun, d.MasterName)
	fmt.Fprintf(&b, "Сейчас %s отправил%s по факту %s , %s\n\n", d.ClientName, sentSuffix, FormatAmount(d.PaidAmount), paymentDescription)
	fmt.Fprintf(&b, "За ведение человека до результата – %d%% мастеров поддержки (так как набор %s)\n\n", pct, info.DisplayName)
	fmt.Fprintf(&b, "Сейчас с %s - %d%% - это %s р", FormatAmount(d.PaidAmount), pct, FormatNumber(commission))

	if remainder > 0 {
		if len(d.Tranches) > 0 {
			fmt.Fprintf(&b, "\nОстаток %s:", FormatAmount(remainder))
			for _, t := range d.Tranches {
				fmt.Fprintf(&b, "\n• %s до %s", FormatAmount(t.Amount), t.DueDate)
			}
		} else {
			fmt.Fprintf(&b, "\nОстаток %s.", FormatAmount(remainder))
		}
	} else {
		b.WriteString("\nОстаток 0.")
		if d.PackageType == PackageExpansion {
			b.WriteString("\nНу если только ещё не решит практики делать😊 думаю, что ещё захочет ещё)")
		}
	}

	switch d.PackageType {
	case PackageStarter:
		b.WriteString("\n\nПошли абонементы! Мы с вами вместе укрепили этот формат 👏🏼")
	case PackageScale:
		b.WriteString("\n\nЖмём пружину на вершину!")
	}

	return b.String()
}
