package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/LexCite/internal/application/labeling"
	"github.com/turtacn/LexCite/internal/domain/citation"
)

// NewAbbreviationsCmd returns the abbreviations command group.
func NewAbbreviationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "abbreviations",
		Short: "Inspect the statute abbreviation table",
	}
	cmd.AddCommand(newAbbreviationsCheckCmd())
	return cmd
}

func newAbbreviationsCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "List abbreviations that name more than one statute",
		Long: "Load the abbreviation table with the configured canton selection and list every\n" +
			"(language, abbreviation) pair mapping to several SR numbers. Exits non-zero\n" +
			"when the table is ambiguous.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			deps, err := openSources(ctx, cliCtx.Config, cliCtx.Logger)
			if err != nil {
				return err
			}
			defer deps.Close()

			svc := labeling.NewService(serviceConfig(cliCtx.Config, false, true), nil, deps.abbreviations, cliCtx.Logger)
			table, err := svc.LoadTable(ctx)
			if err != nil {
				return err
			}

			report := &AmbiguityReport{Rows: table.Len(), Ambiguities: table.Ambiguities()}
			if report.Ambiguities == nil {
				report.Ambiguities = []citation.Ambiguity{}
			}
			if err := PrintResult(cmd, report); err != nil {
				return err
			}
			if n := len(report.Ambiguities); n > 0 {
				return citation.ErrAmbiguousAbbreviation.WithDetailf("%d ambiguous abbreviations", n)
			}
			return nil
		},
	}
}

// AmbiguityReport is the printed result of abbreviations check.
type AmbiguityReport struct {
	Rows        int                  `json:"rows"`
	Ambiguities []citation.Ambiguity `json:"ambiguities"`
}

func (r *AmbiguityReport) String() string {
	if len(r.Ambiguities) == 0 {
		return fmt.Sprintf("%d abbreviation rows, no ambiguities", r.Rows)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d abbreviation rows, %d ambiguities:", r.Rows, len(r.Ambiguities))
	for _, a := range r.Ambiguities {
		fmt.Fprintf(&sb, "\n  %s %s: SR %s", a.Language, a.Abbreviation, strings.Join(a.SRNumbers, ", "))
	}
	return sb.String()
}

// TableHeaders implements the table output.
func (r *AmbiguityReport) TableHeaders() []string {
	return []string{"LANGUAGE", "ABBREVIATION", "SR NUMBERS"}
}

// TableRows implements the table output.
func (r *AmbiguityReport) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Ambiguities))
	for _, a := range r.Ambiguities {
		rows = append(rows, []string{a.Language, a.Abbreviation, strings.Join(a.SRNumbers, ", ")})
	}
	return rows
}
