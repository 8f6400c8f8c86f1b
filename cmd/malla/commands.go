package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/notegood/malla/internal/catalog"
	"github.com/notegood/malla/internal/model"
	"github.com/notegood/malla/internal/progress"
	"github.com/notegood/malla/internal/stats"
	"github.com/notegood/malla/internal/statsui"
	"github.com/notegood/malla/internal/view"
)

var (
	resetYes       bool
	listQuery      string
	listSemester   int
	listStatus     string
	statsSemesters bool
	statsAreas     bool
	statsColor     bool
	statsTUI       bool
)

type progressCommand func(*view.Adapter, context.Context, string) (progress.Change, error)

func newApproveCmd() *cobra.Command {
	return newProgressCmd("approve <id>...", "Mark courses as approved", "approved", (*view.Adapter).Approve)
}

func newTakeCmd() *cobra.Command {
	return newProgressCmd("take <id>...", "Mark courses as in progress", "taking", (*view.Adapter).Take)
}

func newClearCmd() *cobra.Command {
	return newProgressCmd("clear <id>...", "Remove courses from progress", "cleared", (*view.Adapter).Clear)
}

func newProgressCmd(use, short, verb string, apply progressCommand) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, a *view.Adapter) error {
				out := cmd.OutOrStdout()
				for _, id := range args {
					change, err := apply(a, ctx, id)
					if err != nil {
						return err
					}
					if !change.Persisted {
						return fmt.Errorf("failed to save progress for %s", change.ID)
					}
					if _, err := fmt.Fprintf(out, "%s %s (%s)\n", verb, change.ID, a.Catalog().DisplayName(change.ID)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear all progress",
		Args:  cobra.NoArgs,
		RunE:  runResetCmd,
	}
	cmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func runResetCmd(cmd *cobra.Command, _ []string) error {
	if !resetYes {
		ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Reset all progress? [y/N] ")
		if err != nil {
			return err
		}
		if !ok {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Nothing changed.")
			return err
		}
	}
	return withSession(cmd, func(ctx context.Context, a *view.Adapter) error {
		if change := a.Reset(ctx); !change.Persisted {
			return fmt.Errorf("failed to reset progress")
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "Progress reset.")
		return err
	})
}

func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	if _, err := fmt.Fprint(out, prompt); err != nil {
		return false, err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "s", "si", "sí":
		return true, nil
	}
	return false, nil
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [id]",
		Short: "Show overall completion or one course",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(_ context.Context, a *view.Adapter) error {
				if len(args) == 0 {
					return stats.RenderSummary(cmd.OutOrStdout(), a.Report(), stats.RenderOptions{})
				}
				detail, err := a.Detail(args[0])
				if err != nil {
					return err
				}
				return writeDetail(cmd.OutOrStdout(), detail)
			})
		},
	}
}

func writeDetail(w io.Writer, d view.Detail) error {
	c := d.Course
	lines := []string{
		fmt.Sprintf("%s  %s", c.ID, c.Name),
		"Area: " + d.AreaName,
		"Semester: " + c.Semester.Title(),
		"Credits: " + formatCredits(c.Credits),
		"Status: " + string(d.Status),
		"Prerequisites: " + joinOrNone(d.Prerequisites),
		"Missing: " + joinOrNone(d.Missing),
		"Unlocks: " + joinOrNone(d.Unlocks),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func newMissingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "missing <id>",
		Short: "List prerequisites still pending for a course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(_ context.Context, a *view.Adapter) error {
				missing, err := a.Requirements(args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(missing) == 0 {
					_, err := fmt.Fprintln(out, "No pending prerequisites.")
					return err
				}
				for _, name := range missing {
					if _, err := fmt.Fprintln(out, name); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the curriculum grid as text",
		Args:  cobra.NoArgs,
		RunE:  runListCmd,
	}
	cmd.Flags().StringVarP(&listQuery, "query", "q", "", "only courses whose name or id contains this text")
	cmd.Flags().IntVarP(&listSemester, "semester", "s", 0, "only this semester (9 for extras)")
	cmd.Flags().StringVar(&listStatus, "status", "", "only courses with this status: approved, taking, unlocked, locked")
	return cmd
}

func runListCmd(cmd *cobra.Command, _ []string) error {
	status := model.Status(strings.TrimSpace(listStatus))
	switch status {
	case "", model.StatusApproved, model.StatusTaking, model.StatusUnlocked, model.StatusLocked:
	default:
		return fmt.Errorf("--status must be one of: approved, taking, unlocked, locked")
	}
	if listSemester != 0 && (listSemester < int(model.FirstSemester) || listSemester > int(model.SemesterExtra)) {
		return fmt.Errorf("--semester must be between %d and %d", model.FirstSemester, model.SemesterExtra)
	}
	return withSession(cmd, func(_ context.Context, a *view.Adapter) error {
		columns := a.Grid(view.Filter{Query: listQuery, ShowLocked: true, ShowTaking: true})
		return writeGrid(cmd.OutOrStdout(), columns, model.Semester(listSemester), status)
	})
}

func writeGrid(w io.Writer, columns []view.Column, semester model.Semester, status model.Status) error {
	nameWidth := 0
	for _, col := range columns {
		for _, card := range col.Cards {
			nameWidth = max(nameWidth, runewidth.StringWidth(card.Course.Name))
		}
	}
	printed := 0
	for _, col := range columns {
		if semester != 0 && col.Semester != semester {
			continue
		}
		var rows []string
		for _, card := range col.Cards {
			if status != "" && card.Status != status {
				continue
			}
			row := fmt.Sprintf("  %s %-8s %s  %s", statusMark(card.Status), card.Course.ID,
				runewidth.FillRight(card.Course.Name, nameWidth), card.AreaName)
			if card.Course.Credits > 0 {
				row += "  " + formatCredits(card.Course.Credits) + " cr"
			}
			rows = append(rows, strings.TrimRight(row, " "))
		}
		if len(rows) == 0 {
			continue
		}
		if printed > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s (%d)\n", col.Title, len(rows)); err != nil {
			return err
		}
		for _, row := range rows {
			if _, err := fmt.Fprintln(w, row); err != nil {
				return err
			}
		}
		printed++
	}
	if printed == 0 {
		_, err := fmt.Fprintln(w, "No courses found.")
		return err
	}
	return nil
}

func statusMark(s model.Status) string {
	switch s {
	case model.StatusApproved:
		return "[x]"
	case model.StatusTaking:
		return "[~]"
	case model.StatusLocked:
		return "[-]"
	default:
		return "[ ]"
	}
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show completion by semester and area",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(_ context.Context, a *view.Adapter) error {
				if statsTUI {
					program := tea.NewProgram(statsui.NewModel(a), tea.WithAltScreen())
					if _, err := program.Run(); err != nil {
						return fmt.Errorf("failed to run stats TUI: %w", err)
					}
					return nil
				}
				return stats.WriteReport(cmd.OutOrStdout(), a.Report(), stats.RenderOptions{
					ForceColor: statsColor,
					Semesters:  statsSemesters,
					Areas:      statsAreas,
				})
			})
		},
	}
	cmd.Flags().BoolVar(&statsSemesters, "semesters", true, "show the per-semester table")
	cmd.Flags().BoolVar(&statsAreas, "areas", true, "show the per-area table")
	cmd.Flags().BoolVar(&statsColor, "color", false, "force colored bars")
	cmd.Flags().BoolVar(&statsTUI, "tui", false, "open the interactive dashboard")
	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace progress with an exported JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, a *view.Adapter) error {
				change, err := a.Import(ctx, data)
				if err != nil {
					return err
				}
				if !change.Persisted {
					logErrln("warning: imported progress could not be saved")
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d approved, %d taking.\n",
					len(change.Progress.Approved()), len(change.Progress.Taking()))
				return err
			})
		},
	}
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write progress as JSON to a file or stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(_ context.Context, a *view.Adapter) error {
				data, err := json.MarshalIndent(a.Export(), "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode progress: %w", err)
				}
				data = append(data, '\n')
				if len(args) == 0 || args[0] == "-" {
					_, err := cmd.OutOrStdout().Write(data)
					return err
				}
				if err := writeFileAtomic(args[0], data); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Exported progress to %s\n", args[0])
				return err
			})
		},
	}
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, "malla-export-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp export: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close export: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := resolveSettings(cmd)
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cmd.Context(), settings.CatalogPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "%d courses, %d areas\n", cat.Len(), len(cat.Areas())); err != nil {
				return err
			}
			problems := catalog.Validate(cat)
			for _, p := range problems {
				if _, err := fmt.Fprintln(out, p.String()); err != nil {
					return err
				}
			}
			if len(problems) > 0 {
				return fmt.Errorf("catalog has %d problem(s)", len(problems))
			}
			_, err = fmt.Fprintln(out, "OK")
			return err
		},
	}
}

// withSession resolves settings, opens the catalog and progress backend and
// runs fn against the adapter.
func withSession(cmd *cobra.Command, fn func(context.Context, *view.Adapter) error) error {
	settings, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sess, err := openSession(ctx, settings)
	if err != nil {
		return err
	}
	defer sess.close()
	return fn(ctx, sess.adapter)
}

func formatCredits(credits float64) string {
	return strconv.FormatFloat(credits, 'f', -1, 64)
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
