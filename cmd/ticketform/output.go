package main

import (
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-ticketform/pkg/model"
)

type ticketView struct {
	TicketID string        `json:"ticketId" yaml:"ticketId"`
	Category string        `json:"category" yaml:"category"`
	Sections []sectionView `json:"sections" yaml:"sections"`
}

type sectionView struct {
	Section string      `json:"section" yaml:"section"`
	Group   string      `json:"group" yaml:"group"`
	Name    string      `json:"name" yaml:"name"`
	Fields  []fieldView `json:"fields" yaml:"fields"`
}

type fieldView struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Value any    `json:"value" yaml:"value"`
}

func newTicketView(doc model.Document) ticketView {
	view := ticketView{TicketID: doc.TicketID, Category: doc.Category}
	for _, sec := range doc.Sections {
		sv := sectionView{Section: sec.SectionID, Group: sec.DuplicateGroupID, Name: sec.Name}
		for _, f := range sec.Fields {
			sv.Fields = append(sv.Fields, fieldView{ID: f.FieldID, Name: f.Name, Value: f.Response})
		}
		view.Sections = append(view.Sections, sv)
	}
	return view
}

func writeTicket(w io.Writer, doc model.Document, format string) error {
	view := newTicketView(doc)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		raw, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(raw))
		return err
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return err
		}
		return enc.Close()
	case "", "text":
		fmt.Fprintf(w, "Ticket %s (%s)\n", view.TicketID, view.Category)
		for _, sec := range view.Sections {
			fmt.Fprintf(w, "\n%s\n", sec.Name)
			for _, f := range sec.Fields {
				fmt.Fprintf(w, "  %s: %s\n", f.Name, strings.Join(model.StringValues(f.Value), ", "))
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}
