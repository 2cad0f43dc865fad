package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/petsitter-tools/visitdesk/internal/commit"
	"github.com/petsitter-tools/visitdesk/internal/config"
	"github.com/petsitter-tools/visitdesk/internal/customer"
	"github.com/petsitter-tools/visitdesk/internal/draft"
	"github.com/petsitter-tools/visitdesk/internal/gateway"
	"github.com/petsitter-tools/visitdesk/internal/interpret"
	"github.com/petsitter-tools/visitdesk/internal/journal"
	"github.com/petsitter-tools/visitdesk/internal/refdata"
	"github.com/petsitter-tools/visitdesk/internal/registration"
	"log/slog"
)

var (
	registerHint      string
	registerStaffID   string
	registerStaffName string
	registerYes       bool
	registerNoEdit    bool
)

func newRegisterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register [email-file]",
		Short: "Interpret a customer email and commit the resulting visits",
		Long: `Register visits from a customer email.

Reads the email text from the given file (or stdin), sends it to the
interpreter, resolves the customer, and opens the review loop. Nothing is
persisted until you confirm the commit.`,
		Args: cobra.MaximumNArgs(1),
		RunE: registerCommandE,
	}

	cmd.Flags().StringVar(&registerHint, "hint", "", "Disambiguation hint for customer search (a district, phone fragment, ...)")
	cmd.Flags().StringVar(&registerStaffID, "staff-id", "", "Target staff id (admin only; default: your own)")
	cmd.Flags().StringVar(&registerStaffName, "staff-name", "", "Target staff name (admin only)")
	cmd.Flags().BoolVarP(&registerYes, "yes", "y", false, "Skip the interactive commit confirmation")
	cmd.Flags().BoolVar(&registerNoEdit, "no-edit", false, "Skip the review/edit loop")

	return cmd
}

func registerCommandE(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	emailText, err := readEmailText(args)
	if err != nil {
		return err
	}

	gw := gateway.New(gateway.Options{Endpoint: cfg.Endpoints.Gateway, Token: cfg.Token})
	interpreter := interpret.New(interpret.Options{Endpoint: cfg.Endpoints.Interpreter, Token: cfg.Token})
	controller := commit.NewController(gw, "email_interpret")
	sess := registration.NewSession(interpreter, controller)
	labelCache := refdata.NewCache(gw)

	ctx := cmd.Context()

	labels, err := labelCache.Labels(ctx)
	if err != nil {
		// Reference data only affects display; keep going with raw keys.
		slog.Warn("reference data unavailable", "error", err)
	}

	cons := buildConstraints(cfg)

	fmt.Println("Interpreting email...")
	d, err := sess.Start(ctx, emailText, time.Now(), cfg.Timezone, cons)
	if err != nil {
		return err
	}
	renderDraft(os.Stdout, d, labels)

	if err := resolveCustomer(ctx, cfg, gw, sess, d); err != nil {
		return err
	}
	cust := sess.Customer()
	fmt.Printf("Customer: %s (%s)\n", cust.Name, cust.CustomerID)

	if !registerNoEdit {
		if err := reviewLoop(sess, labels); err != nil {
			return err
		}
	}

	confirm := func(p *commit.Pending) bool {
		if registerYes {
			return true
		}
		return promptConfirm(os.Stdin, os.Stdout,
			fmt.Sprintf("Commit %d visits for %s? This cannot be undone.", len(p.Visits), cust.Name))
	}

	res, err := sess.Commit(ctx, confirm)
	writeJournal(cfg.JournalDir, sess, res, err)
	if err != nil {
		var ve *commit.ValidationError
		if errors.As(err, &ve) {
			fmt.Println(ve.Reason)
			if ve.Reason == "commit cancelled" {
				return nil
			}
		}
		return err
	}

	renderCommitResult(os.Stdout, res)
	if !res.Success {
		return &CommitFailedError{Message: "the backend declined one or more visits"}
	}
	return nil
}

func readEmailText(args []string) (string, error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("reading email file: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading email text from stdin: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("no email text: pass a file or pipe the text on stdin")
	}
	return string(data), nil
}

func buildConstraints(cfg *config.Config) interpret.Constraints {
	cons := interpret.Constraints{
		LatestEndTime:         cfg.Constraints.LatestEndTime,
		SlideLimitUnspecified: cfg.Constraints.SlideLimitUnspecified,
		SlotMinutes:           cfg.Constraints.SlotMinutes,
		StaffID:               cfg.Staff.ID,
		StaffName:             cfg.Staff.Name,
	}
	if cfg.Staff.Admin {
		// Admins may retarget another staff member, or leave both blank to
		// defer assignment to the backend.
		cons.StaffID = registerStaffID
		cons.StaffName = registerStaffName
	}
	return cons
}

// resolveCustomer runs the debounced search until a customer is bound:
// auto-bind on a single hit, interactive pick on several, re-entered name on
// none.
func resolveCustomer(ctx context.Context, cfg *config.Config, gw *gateway.Client, sess *registration.Session, d *draft.Draft) error {
	searcher := customer.NewSearcher(gw)
	results := make(chan customer.Result, 1)
	resolver := customer.NewResolver(searcher.Search,
		time.Duration(cfg.DebounceMS)*time.Millisecond,
		func(r customer.Result) { results <- r })
	defer resolver.Stop()

	name := d.FirstCustomerName()
	for {
		if name == "" {
			entered, err := promptInput(os.Stdin, os.Stdout, "Customer name to search for", "")
			if err != nil {
				return err
			}
			name = entered
		}

		resolver.NameChanged(ctx, name, registerHint)
		res := <-results

		if res.Err != nil {
			fmt.Printf("Search failed: %v\n", res.Err)
			if !promptConfirm(os.Stdin, os.Stdout, "Retry the customer search?") {
				return res.Err
			}
			continue
		}

		if sess.ApplySearchResult(res) {
			return nil
		}

		switch len(res.Candidates) {
		case 0:
			fmt.Printf("No customer matches %q.\n", name)
			name = ""
		default:
			renderCandidates(os.Stdout, res.Candidates)
			labels := make([]string, len(res.Candidates))
			for i, c := range res.Candidates {
				labels[i] = fmt.Sprintf("%s (%s)", c.Name, c.Kana)
			}
			idx, err := promptSelect(os.Stdin, os.Stdout, "Which customer?", labels)
			if err != nil {
				return err
			}
			sess.Bind(res.Candidates[idx])
			return nil
		}
	}
}

// reviewLoop lets the user adjust the draft until they choose to commit.
func reviewLoop(sess *registration.Session, labels refdata.Labels) error {
	for {
		action, err := promptSelect(os.Stdin, os.Stdout, "Draft review", []string{
			"Commit now",
			"Show draft",
			"Edit a row",
			"Duplicate a row",
			"Delete a row",
			"Abort without committing",
		})
		if err != nil {
			return err
		}

		switch action {
		case 0:
			return nil
		case 1:
			renderDraft(os.Stdout, sess.Draft(), labels)
		case 2:
			err = editRow(sess)
		case 3:
			err = withRow(sess, "Duplicate which row?", sess.Duplicate)
		case 4:
			err = withRow(sess, "Delete which row?", sess.Delete)
		case 5:
			return fmt.Errorf("registration aborted")
		}
		if err != nil {
			fmt.Println(err)
		}
	}
}

func withRow(sess *registration.Session, title string, op func(int) error) error {
	d := sess.Draft()
	labels := make([]string, len(d.Visits))
	for i, v := range d.Visits {
		labels[i] = fmt.Sprintf("row %d: %s %s", v.RowNum, v.Date, v.StartTime)
	}
	idx, err := promptSelect(os.Stdin, os.Stdout, title, labels)
	if err != nil {
		return err
	}
	return op(idx)
}

func editRow(sess *registration.Session) error {
	fields := []draft.Field{
		draft.FieldStartTime,
		draft.FieldEndTime,
		draft.FieldCourse,
		draft.FieldVisitType,
		draft.FieldMemo,
	}

	var index int
	err := withRow(sess, "Edit which row?", func(i int) error {
		index = i
		return nil
	})
	if err != nil {
		return err
	}

	fieldLabels := make([]string, len(fields))
	for i, f := range fields {
		fieldLabels[i] = string(f)
	}
	fi, err := promptSelect(os.Stdin, os.Stdout, "Which field?", fieldLabels)
	if err != nil {
		return err
	}

	current := currentFieldValue(sess.Draft().Visits[index], fields[fi])
	value, err := promptInput(os.Stdin, os.Stdout, fmt.Sprintf("New value for %s", fields[fi]), current)
	if err != nil {
		return err
	}
	return sess.EditField(index, fields[fi], value)
}

func currentFieldValue(v draft.VisitCandidate, f draft.Field) string {
	switch f {
	case draft.FieldStartTime:
		return v.StartTime
	case draft.FieldEndTime:
		return v.EndTime
	case draft.FieldCourse:
		return v.Course
	case draft.FieldVisitType:
		return string(v.VisitType)
	case draft.FieldMemo:
		return v.Memo
	}
	return ""
}

// writeJournal records the commit attempt locally. Journal failures are
// logged, never fatal.
func writeJournal(dir string, sess *registration.Session, res *commit.Result, commitErr error) {
	d := sess.Draft()
	if d == nil {
		return
	}
	e := &journal.Entry{
		Source:      "email_interpret",
		Visits:      d.Visits,
		AttemptedAt: time.Now(),
	}
	if cust := sess.Customer(); cust != nil {
		e.CustomerID = cust.CustomerID
		e.CustomerName = cust.Name
	}
	if res != nil {
		e.RequestID = res.RequestID
		e.ContentHash = res.ContentHash
		e.Committed = res.Success
		e.Rows = res.PerItem
	}
	if commitErr != nil {
		e.Error = commitErr.Error()
	}
	if _, err := journal.Write(dir, e); err != nil {
		slog.Warn("could not write journal entry", "error", err)
	}
}
