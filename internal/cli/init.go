package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/headline-goat/sigtable/internal/plan"
)

const scaffoldQuery = `SELECT type, COUNT(*) AS count
FROM {{events_table}}
WHERE experiment_id = '{{experiment_id}}'
  AND event IN {{event_string}}
  AND day BETWEEN '{{start_date}}' AND '{{end_date}}'
GROUP BY client_id, type`

type scaffoldOptions struct {
	ExperimentID string
	StartDate    string
	TableTitle   string
	DataSourceID int
}

var (
	initOutput string
	initForce  bool
	initOpts   scaffoldOptions
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an experiment plan",
	Long: `Create a starter experiment plan file.

Values not given as flags are asked for interactively. The generated plan
has one table with one query template over the default engagement events;
edit the query to match your events schema.

Example:
  sigt init
  sigt init --experiment exp-42 --start 2024-03-01 --title Engagement`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	f := initCmd.Flags()
	f.StringVarP(&initOutput, "output", "o", "plan.yaml", "plan file to write")
	f.BoolVar(&initForce, "force", false, "overwrite an existing plan file")
	f.StringVar(&initOpts.ExperimentID, "experiment", "", "experiment id")
	f.StringVar(&initOpts.StartDate, "start", "", "first day of the experiment (YYYY-MM-DD)")
	f.StringVar(&initOpts.TableTitle, "title", "", "title of the first table")
	f.IntVar(&initOpts.DataSourceID, "data-source", 1, "data source id the query runs against")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if !initForce {
		if _, err := os.Stat(initOutput); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", initOutput)
		}
	}

	opts := initOpts
	if err := promptMissing(&opts); err != nil {
		if errors.Is(err, promptui.ErrInterrupt) {
			return nil
		}
		return err
	}

	p := scaffoldPlan(opts)
	if err := p.Validate(); err != nil {
		return err
	}

	data, err := plan.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	if err := os.WriteFile(initOutput, data, 0644); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s\n", initOutput)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Add a data source to .sigtable.yaml:")
	fmt.Fprintln(out, "       data-sources:")
	fmt.Fprintf(out, "         - {id: %d, driver: postgres, dsn: \"postgres://...\"}\n", opts.DataSourceID)
	fmt.Fprintf(out, "  2. Adjust the query in %s to your events schema\n", initOutput)
	fmt.Fprintf(out, "  3. sigt run --plan %s\n", initOutput)
	return nil
}

// scaffoldPlan builds a one-table plan over the default events.
func scaffoldPlan(opts scaffoldOptions) *plan.Plan {
	return &plan.Plan{
		ExperimentID: opts.ExperimentID,
		StartDate:    opts.StartDate,
		EndDate:      time.Now().Format("2006-01-02"),
		EventsTable:  plan.DefaultEventsTable,
		Tables: []plan.Table{{
			Title: opts.TableTitle,
			Templates: []plan.Template{{
				Name:         opts.TableTitle + ": Event Rate",
				Description:  "Number of event interactions per client",
				Query:        scaffoldQuery,
				DataSourceID: opts.DataSourceID,
				Column:       plan.DefaultColumn,
			}},
		}},
	}
}

func promptMissing(opts *scaffoldOptions) error {
	if opts.ExperimentID != "" && opts.StartDate != "" && opts.TableTitle != "" {
		return nil
	}
	if !isTerminal(os.Stdin) {
		return errors.New("--experiment, --start and --title are required when not running in a terminal")
	}

	required := func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New("required")
		}
		return nil
	}

	fields := []struct {
		target *string
		prompt promptui.Prompt
	}{
		{&opts.ExperimentID, promptui.Prompt{Label: "Experiment id", Validate: required}},
		{&opts.StartDate, promptui.Prompt{
			Label:    "Start date",
			Default:  time.Now().AddDate(0, 0, -14).Format("2006-01-02"),
			Validate: validateDate,
		}},
		{&opts.TableTitle, promptui.Prompt{Label: "Table title", Default: "Engagement", Validate: required}},
	}

	for _, f := range fields {
		if *f.target != "" {
			continue
		}
		value, err := f.prompt.Run()
		if err != nil {
			return err
		}
		*f.target = strings.TrimSpace(value)
	}
	return nil
}

func validateDate(s string) error {
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return errors.New("use YYYY-MM-DD")
	}
	return nil
}

