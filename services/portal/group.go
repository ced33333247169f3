package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fydp-portal/internal/config"
	"github.com/fydp-portal/internal/groupform"
	"github.com/fydp-portal/internal/model"
)

const groupHelp = `commands:
  list                       show the current page
  page N                     go to page N
  search TEXT                filter by name (empty to clear)
  status all|free|invited|in_my_group|in_other_group
  sort a-z|z-a
  invite ID                  invite a free student
  cancel ID                  cancel a pending invite
  finalize                   lock the group (irreversible)
  group                      show invited students and members
  reload                     reload from the server
  quit
`

func runGroup(ctx context.Context, backend groupform.Backend, cfg *config.Config, in io.Reader, out io.Writer) error {
	w := groupform.New(backend, cfg.MinGroupInvites, cfg.PageSize)
	fmt.Fprintln(out, "loading students...")
	if err := w.Load(ctx); err != nil {
		return errors.New(w.Err())
	}
	q := groupform.Query{Status: groupform.FilterAll, Sort: groupform.SortAZ, Page: 1}
	printGroupSummary(out, w)
	printPage(out, w, w.View(q))
	fmt.Fprint(out, groupHelp)

	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "group> ")
		if !sc.Scan() {
			return sc.Err()
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(sc.Text()), " ")
		arg = strings.TrimSpace(arg)
		switch cmd {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "help":
			fmt.Fprint(out, groupHelp)
		case "list":
			printPage(out, w, w.View(q))
		case "page":
			n, err := strconv.Atoi(arg)
			if err != nil {
				fmt.Fprintln(out, "page expects a number")
				continue
			}
			q.Page = n
			printPage(out, w, w.View(q))
		case "search":
			q.Search, q.Page = arg, 1
			printPage(out, w, w.View(q))
		case "status":
			q.Status, q.Page = groupform.StatusFilter(arg), 1
			printPage(out, w, w.View(q))
		case "sort":
			q.Sort = groupform.SortOrder(arg)
			printPage(out, w, w.View(q))
		case "invite":
			if err := w.Invite(ctx, arg); err != nil {
				fmt.Fprintln(out, "error:", w.Err())
				continue
			}
			fmt.Fprintf(out, "invited %s\n", studentName(w, arg))
			printGroupSummary(out, w)
		case "cancel":
			if err := w.CancelInvite(ctx, arg); err != nil {
				fmt.Fprintln(out, "error:", w.Err())
				continue
			}
			fmt.Fprintf(out, "cancelled invite for %s\n", studentName(w, arg))
			printGroupSummary(out, w)
		case "finalize":
			g, err := w.FinalizeGroup(ctx)
			if err != nil {
				fmt.Fprintln(out, "error:", w.Err())
				continue
			}
			fmt.Fprintf(out, "group %s finalized with %d members\n", g.ID, len(g.Members))
			printGroupSummary(out, w)
		case "group":
			printGroupSummary(out, w)
		case "reload":
			if err := w.Load(ctx); err != nil {
				fmt.Fprintln(out, "error:", w.Err())
				continue
			}
			printPage(out, w, w.View(q))
		default:
			fmt.Fprintln(out, "unknown command, help for the list")
		}
	}
}

func studentName(w *groupform.Workflow, id string) string {
	if s, ok := w.Student(id); ok {
		return s.Name
	}
	return id
}

func printPage(out io.Writer, w *groupform.Workflow, p groupform.Page) {
	if p.Total == 0 {
		fmt.Fprintln(out, "no students match")
		return
	}
	for _, s := range p.Students {
		state := string(s.DisplayState())
		if w.Pending(s.ID) {
			state += " (pending)"
		}
		fmt.Fprintf(out, "  %-12s %-24s %-36s %s\n", s.ID, s.Name, s.Email, state)
	}
	fmt.Fprintf(out, "page %d/%d, %d students\n", p.Page, p.TotalPages, p.Total)
}

func printGroupSummary(out io.Writer, w *groupform.Workflow) {
	if w.IsFinalized() {
		fmt.Fprintln(out, "group is finalized, members:")
		for _, s := range w.Members() {
			fmt.Fprintf(out, "  %s %s\n", s.ID, s.Name)
		}
		return
	}
	invited := w.Invited()
	fmt.Fprintf(out, "invited: %d", len(invited))
	if need := w.MembersNeeded(); need > 0 {
		fmt.Fprintf(out, " (invite %d more to finalize)", need)
	}
	fmt.Fprintln(out)
	for _, s := range invited {
		fmt.Fprintf(out, "  %s %s [%s]\n", s.ID, s.Name, model.DisplayInvited)
	}
}
