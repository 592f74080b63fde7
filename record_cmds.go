package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"checkin/calendar"
	"checkin/models"
	"checkin/repository"
)

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q, want RFC3339 or YYYY-MM-DD[ HH:MM]", models.ErrValidation, s)
}

// warnDegraded reports a failed read whose empty fallback is still printed.
func warnDegraded(w io.Writer, err error) {
	if err != nil {
		fmt.Fprintf(w, "warning: showing empty result, %v\n", err)
	}
}

func stringFlag(c *cli.Context, name string) *string {
	if !c.IsSet(name) {
		return nil
	}
	v := c.String(name)
	return &v
}

func (st *appState) eventsCommand() *cli.Command {
	eventFlags := func(required bool) []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "title", Required: required},
			&cli.StringFlag{Name: "date", Usage: "RFC3339 or YYYY-MM-DD[ HH:MM]; defaults to now"},
			&cli.StringFlag{Name: "location"},
			&cli.StringFlag{Name: "description"},
		}
	}
	patchFrom := func(c *cli.Context) (models.EventPatch, error) {
		p := models.EventPatch{
			Title:       stringFlag(c, "title"),
			Location:    stringFlag(c, "location"),
			Description: stringFlag(c, "description"),
		}
		if c.IsSet("date") {
			d, err := parseDate(c.String("date"))
			if err != nil {
				return p, err
			}
			p.Date = &d
		}
		return p, nil
	}

	return &cli.Command{
		Name:  "events",
		Usage: "List and edit events.",
		Subcommands: []*cli.Command{
			{
				Name: "list",
				Action: st.withUser(func(c *cli.Context, b *backend) error {
					events, err := b.repo.ListEvents(c.Context)
					warnDegraded(c.App.ErrWriter, err)
					tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tDATE\tTITLE\tLOCATION")
					for _, e := range events {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, e.Date.Local().Format("2006-01-02 15:04"), e.Title, e.Location)
					}
					return tw.Flush()
				}),
			},
			{
				Name:  "add",
				Flags: eventFlags(true),
				Action: st.withUser(func(c *cli.Context, b *backend) error {
					p, err := patchFrom(c)
					if err != nil {
						return err
					}
					e, err := b.repo.SaveEvent(c.Context, p)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "created event %s\n", e.ID)
					return nil
				}),
			},
			{
				Name:  "edit",
				Flags: append(eventFlags(false), &cli.StringFlag{Name: "id", Required: true}),
				Action: st.withUser(func(c *cli.Context, b *backend) error {
					p, err := patchFrom(c)
					if err != nil {
						return err
					}
					if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
						return fmt.Errorf("%w: title cannot be empty", models.ErrValidation)
					}
					p.ID = c.String("id")
					e, err := b.repo.SaveEvent(c.Context, p)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "updated event %s\n", e.ID)
					return nil
				}),
			},
			{
				Name:  "rm",
				Flags: []cli.Flag{&cli.StringFlag{Name: "id", Required: true}},
				Action: st.withUser(func(c *cli.Context, b *backend) error {
					if err := b.repo.DeleteEvent(c.Context, c.String("id")); err != nil {
						if errors.Is(err, models.ErrUnsupported) {
							return fmt.Errorf("%w (events can only be deleted on the remote backend)", err)
						}
						return err
					}
					fmt.Fprintf(c.App.Writer, "deleted event %s\n", c.String("id"))
					return nil
				}),
			},
			{
				Name:  "export",
				Usage: "Write events with their attendees as iCalendar.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "one event; all when empty"},
					&cli.StringFlag{Name: "out", Usage: "file; stdout when empty"},
				},
				Action: st.withUser(func(c *cli.Context, b *backend) error {
					events, people, err := exportSet(c.Context, b.repo, c.String("id"))
					if err != nil {
						return err
					}
					w := c.App.Writer
					if path := c.String("out"); path != "" {
						f, err := os.Create(path)
						if err != nil {
							return err
						}
						defer f.Close()
						w = f
					}
					return calendar.Write(w, time.Now(), events, people)
				}),
			},
		},
	}
}

// exportSet collects what an export needs. Unlike listing, a failed read
// aborts: a silently empty calendar file is worse than an error.
func exportSet(ctx context.Context, repo *repository.Repository, id string) ([]models.Event, []models.Person, error) {
	var events []models.Event
	if id != "" {
		e, found, err := repo.GetEvent(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if !found {
			return nil, nil, fmt.Errorf("event %s: %w", id, models.ErrNotFound)
		}
		events = []models.Event{e}
	} else {
		var err error
		if events, err = repo.ListEvents(ctx); err != nil {
			return nil, nil, err
		}
	}
	people, err := repo.ListPeople(ctx)
	if err != nil {
		return nil, nil, err
	}
	return events, people, nil
}

func (st *appState) peopleCommand() *cli.Command {
	personFlags := func(required bool) []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "name", Required: required},
			&cli.StringFlag{Name: "email"},
			&cli.StringFlag{Name: "phone"},
			&cli.StringFlag{Name: "event", Usage: "event id; empty leaves the person unassigned"},
		}
	}
	patchFrom := func(c *cli.Context) models.PersonPatch {
		return models.PersonPatch{
			Name:    stringFlag(c, "name"),
			Email:   stringFlag(c, "email"),
			Phone:   stringFlag(c, "phone"),
			EventID: stringFlag(c, "event"),
		}
	}

	return &cli.Command{
		Name:  "people",
		Usage: "List and edit people.",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Flags: []cli.Flag{&cli.StringFlag{Name: "event"}},
				Action: st.withUser(func(c *cli.Context, b *backend) error {
					var (
						people []models.Person
						err    error
					)
					if c.IsSet("event") {
						people, err = b.repo.ListPeopleByEvent(c.Context, c.String("event"))
					} else {
						people, err = b.repo.ListPeople(c.Context)
					}
					warnDegraded(c.App.ErrWriter, err)
					tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPHONE\tEVENT")
					for _, p := range people {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Email, p.Phone, p.EventID)
					}
					return tw.Flush()
				}),
			},
			{
				Name:  "add",
				Flags: personFlags(true),
				Action: st.withUser(func(c *cli.Context, b *backend) error {
					p, err := b.repo.SavePerson(c.Context, patchFrom(c))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "created person %s\n", p.ID)
					return nil
				}),
			},
			{
				Name:  "edit",
				Flags: append(personFlags(false), &cli.StringFlag{Name: "id", Required: true}),
				Action: st.withUser(func(c *cli.Context, b *backend) error {
					patch := patchFrom(c)
					patch.ID = c.String("id")
					p, err := b.repo.SavePerson(c.Context, patch)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "updated person %s\n", p.ID)
					return nil
				}),
			},
		},
	}
}

func (st *appState) attendCommand() *cli.Command {
	return &cli.Command{
		Name:  "attend",
		Usage: "Mark a person present (or --absent) at an event.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "event", Required: true},
			&cli.StringFlag{Name: "person", Required: true},
			&cli.BoolFlag{Name: "absent"},
		},
		Action: st.withUser(func(c *cli.Context, b *backend) error {
			a, err := b.repo.SetPresence(c.Context, c.String("event"), c.String("person"), !c.Bool("absent"))
			if err != nil {
				return err
			}
			state := "absent"
			if a.Present {
				state = "present"
			}
			fmt.Fprintf(c.App.Writer, "%s is %s\n", a.PersonID, state)
			return nil
		}),
	}
}

func (st *appState) rosterCommand() *cli.Command {
	return &cli.Command{
		Name:  "roster",
		Usage: "Interactive check-in for one event.",
		Flags: []cli.Flag{&cli.StringFlag{Name: "event", Required: true}},
		Action: st.withUser(func(c *cli.Context, b *backend) error {
			return runRoster(c.Context, os.Stdin, c.App.Writer, b.repo, c.String("event"))
		}),
	}
}

// withUser is withBackend for commands that need a signed-in account.
func (st *appState) withUser(fn func(*cli.Context, *backend) error) cli.ActionFunc {
	return st.withBackend(func(c *cli.Context, b *backend) error {
		if _, err := b.requireUser(); err != nil {
			return err
		}
		return fn(c, b)
	})
}
