package dashboard

import (
	"embed"
	"html/template"
	"io"
	"time"

	"github.com/couchcryptid/covid-severity-etl/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Sidebar is the dataset description shown beside every page. From and To
// are empty when no snapshot is available.
type Sidebar struct {
	From       string
	To         string
	WindowDays int
	InfoURL    string
}

// Page is the view model of the dashboard.
type Page struct {
	Sidebar
	Version     string
	Sections    []Section
	Skipped     int
	GeneratedAt time.Time
}

// NewPage builds the page for a snapshot. infoURL points at the dataset's
// documentation.
func NewPage(snap domain.Snapshot, infoURL string) Page {
	from, to := snap.Earliest(), snap.Latest()
	return Page{
		Sidebar: Sidebar{
			From:       from.Short(),
			To:         to.Short(),
			WindowDays: len(snap.Dates),
			InfoURL:    infoURL,
		},
		Version:     snap.Day.String(),
		Sections:    Sections(from, to),
		Skipped:     snap.Skipped,
		GeneratedAt: snap.GeneratedAt,
	}
}

// ErrorPage is shown when no snapshot can be produced.
type ErrorPage struct {
	Sidebar
	Message string
}

// Render writes the dashboard HTML.
func Render(w io.Writer, p Page) error {
	return templates.ExecuteTemplate(w, "dashboard.html", p)
}

// RenderError writes the failure page.
func RenderError(w io.Writer, p ErrorPage) error {
	return templates.ExecuteTemplate(w, "error.html", p)
}
