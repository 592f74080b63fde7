package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"checkin/models"
	"checkin/repository"
)

// runRoster is the attendance screen: it lists the people of an event and
// toggles presence by number until the input ends or the user quits.
func runRoster(ctx context.Context, in io.Reader, out io.Writer, repo *repository.Repository, eventID string) error {
	board, err := repo.OpenBoard(ctx, eventID)
	if err != nil {
		fmt.Fprintf(out, "warning: could not load attendance, %v\n", err)
	}
	scanner := bufio.NewScanner(in)

	for {
		people, err := repo.ListPeopleByEvent(ctx, eventID)
		if err != nil {
			fmt.Fprintf(out, "warning: could not load people, %v\n", err)
		}
		printRoster(out, people, board)

		fmt.Fprint(out, "\nToggle # | r reload | q quit: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		cmd := strings.TrimSpace(scanner.Text())

		switch cmd {
		case "":
		case "q":
			return nil
		case "r":
			if err := board.Reload(ctx); err != nil {
				fmt.Fprintf(out, "reload failed: %v\n", err)
			}
		default:
			n, err := strconv.Atoi(cmd)
			if err != nil || n < 1 || n > len(people) {
				fmt.Fprintln(out, "Invalid choice.")
				continue
			}
			toggle(ctx, out, board, people[n-1])
		}
	}
}

func toggle(ctx context.Context, out io.Writer, board *repository.Board, p models.Person) {
	next := !board.Present(p.ID)
	if err := board.Toggle(ctx, p.ID, next); err != nil {
		fmt.Fprintf(out, "could not save %s, press r to reload: %v\n", p.Name, err)
		return
	}
	if next {
		fmt.Fprintf(out, "%s checked in\n", p.Name)
	} else {
		fmt.Fprintf(out, "%s checked out\n", p.Name)
	}
}

func printRoster(out io.Writer, people []models.Person, board *repository.Board) {
	if len(people) == 0 {
		fmt.Fprintln(out, "\nNo people assigned to this event.")
		return
	}
	stale := map[string]bool{}
	for _, id := range board.Stale() {
		stale[id] = true
	}

	present := 0
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("-", 40))
	for i, p := range people {
		mark := "[ ]"
		if board.Present(p.ID) {
			mark = "[x]"
			present++
		}
		suffix := ""
		if stale[p.ID] {
			suffix = "  (not saved)"
		}
		fmt.Fprintf(out, "%2d. %s %s%s\n", i+1, mark, p.Name, suffix)
	}
	fmt.Fprintln(out, strings.Repeat("-", 40))
	fmt.Fprintf(out, "%d/%d present\n", present, len(people))
}
