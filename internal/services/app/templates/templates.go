// Package templates renders the server-side pages for the tracker app.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/torchlightrpg/torchlight/internal/services/app/storage"
)

// AppName is the branding shown in page titles.
const AppName = "Torchlight"

// layout wraps body content in the shared page shell.
func layout(title string, body func(w io.Writer) error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w,
			"<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\"><title>%s · %s</title></head><body>",
			templ.EscapeString(title), AppName,
		); err != nil {
			return err
		}
		if err := body(w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</body></html>")
		return err
	})
}

// MaintenancePage is the holding page shown while the site is gated.
func MaintenancePage() templ.Component {
	return layout("Maintenance", func(w io.Writer) error {
		_, err := io.WriteString(w,
			"<main><h1>Down for maintenance</h1>"+
				"<p>The tavern is closed while we restock. Check back soon.</p></main>")
		return err
	})
}

// HomePage is the minimal landing shell.
func HomePage() templ.Component {
	return layout("Home", func(w io.Writer) error {
		_, err := io.WriteString(w,
			"<main><h1>"+AppName+"</h1>"+
				"<p>Track campaigns, encounters, and initiative at the table.</p></main>")
		return err
	})
}

// SharePage renders a shared encounter snapshot for browser visits.
func SharePage(snapshot storage.EncounterSnapshot) templ.Component {
	return layout(snapshot.Encounter.Title, func(w io.Writer) error {
		if _, err := fmt.Fprintf(w,
			"<main><h1>%s</h1><p>Campaign: %s · Round %d</p>",
			templ.EscapeString(snapshot.Encounter.Title),
			templ.EscapeString(snapshot.Campaign.Name),
			snapshot.Encounter.Round,
		); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<ol>"); err != nil {
			return err
		}
		for i, combatant := range snapshot.Encounter.Combatants {
			marker := ""
			if i == snapshot.Encounter.Turn {
				marker = " (acting)"
			}
			if _, err := fmt.Fprintf(w,
				"<li>%s — initiative %d, AC %d, HP %d/%d%s</li>",
				templ.EscapeString(combatant.Name),
				combatant.Initiative, combatant.ArmorClass,
				combatant.HitPoints, combatant.MaxHP, marker,
			); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</ol></main>")
		return err
	})
}

// ErrorPage renders a terse error page for HTML flows.
func ErrorPage(title, detail string) templ.Component {
	return layout(title, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "<main><h1>%s</h1><p>%s</p></main>",
			templ.EscapeString(title), templ.EscapeString(detail))
		return err
	})
}
