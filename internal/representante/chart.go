package representante

import (
	"strings"
	"time"
)

const chartLabelLayout = "2006-01-02"

// ChartData alimenta os gráficos do dashboard.
type ChartData struct {
	MsgLabels            []string `json:"msg_chart_labels"`
	MsgValues            []int    `json:"msg_chart_values"`
	StudentLabels        []string `json:"student_chart_labels"`
	StudentValues        []int    `json:"student_chart_values"`
	NewStudentsLast7Days int      `json:"new_students_last_7_days"`
}

// Layouts aceitos na leitura; frações de segundo são aceitas em todos.
// Gravações usam sempre RFC 3339.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
}

// ParseTimestamp interpreta datas gravadas em qualquer formato aceito.
// Datas sem fuso são lidas como UTC.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// BuildChartData agrega mensagens e alunos por dia, da criação do
// representante até now, e conta alunos novos nos últimos 7 dias.
// Os dias são contados no fuso de now, qualquer que seja o fuso gravado.
func BuildChartData(rep *Representante, now time.Time) ChartData {
	loc := now.Location()
	parse := func(value string) (time.Time, bool) {
		t, ok := ParseTimestamp(value)
		return t.In(loc), ok
	}

	start := now
	if t, ok := parse(rep.CriadoEm); ok {
		start = t
	}

	labels := dateRange(calendarDate(start), calendarDate(now))
	index := make(map[string]int, len(labels))
	for i, label := range labels {
		index[label] = i
	}

	msgValues := make([]int, len(labels))
	for _, m := range rep.Mensagens {
		t, ok := parse(m.Data)
		if !ok {
			continue
		}
		if i, found := index[t.Format(chartLabelLayout)]; found {
			msgValues[i]++
		}
	}

	studentValues := make([]int, len(labels))
	threshold := now.Add(-7 * 24 * time.Hour)
	newStudents := 0
	for _, a := range rep.Alunos {
		t, ok := parse(a.DataAdicionado)
		if !ok {
			continue
		}
		if i, found := index[t.Format(chartLabelLayout)]; found {
			studentValues[i]++
		}
		if !t.Before(threshold) {
			newStudents++
		}
	}

	return ChartData{
		MsgLabels:            labels,
		MsgValues:            msgValues,
		StudentLabels:        append([]string(nil), labels...),
		StudentValues:        studentValues,
		NewStudentsLast7Days: newStudents,
	}
}

// calendarDate descarta o horário de t, que já deve estar no fuso de now.
func calendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dateRange(start, end time.Time) []string {
	var out []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(chartLabelLayout))
	}
	if len(out) == 0 {
		out = append(out, end.Format(chartLabelLayout))
	}
	return out
}
