package report

import (
	"bytes"
	"embed"
	"html/template"
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rxtech-lab/twstock-scanner/internal/types"
	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var reportTemplate = template.Must(template.New("report.html.tmpl").Funcs(template.FuncMap{
	"money": func(v float64) string {
		return formatNumber(v, 0)
	},
	"price": func(v float64) string {
		return formatNumber(v, 2)
	},
	"pct": func(v float64) string {
		return formatNumber(v, 2) + "%"
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}

		return t.Format(time.DateOnly)
	},
	"signed": func(v float64) string {
		switch {
		case v > 0:
			return "gain"
		case v < 0:
			return "loss"
		default:
			return ""
		}
	},
}).ParseFS(templateFS, "templates/report.html.tmpl"))

type htmlView struct {
	*types.Report
	LogTail []string
}

// RenderHTML renders the static report page.
func RenderHTML(report *types.Report, logTail []string) ([]byte, error) {
	var buf bytes.Buffer

	if err := reportTemplate.Execute(&buf, htmlView{Report: report, LogTail: logTail}); err != nil {
		return nil, errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to render html report", err)
	}

	return buf.Bytes(), nil
}

var printer = message.NewPrinter(language.English)

// formatNumber renders v with thousands separators and either zero or two
// decimals.
func formatNumber(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return types.Metric(v).String()
	}

	if decimals == 0 {
		return printer.Sprintf("%.0f", v)
	}

	return printer.Sprintf("%.2f", v)
}
