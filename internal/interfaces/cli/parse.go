package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/LexCite/internal/application/labeling"
	"github.com/turtacn/LexCite/internal/config"
	"github.com/turtacn/LexCite/internal/domain/citation"
	"github.com/turtacn/LexCite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LexCite/pkg/errors"
)

// NewParseCmd returns the parse command.
func NewParseCmd() *cobra.Command {
	var language string

	cmd := &cobra.Command{
		Use:   "parse <laws|rulings> <text>",
		Short: "Parse a single citation mention",
		Long: "Parse one law or ruling mention against the configured abbreviation table\n" +
			"and print its canonical form.",
		Example: `  lexcite parse laws "Art. 7a Abs. 2 OR" --language de
  lexcite parse rulings "BGE 121 III 38 E. 2b" -o json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			t, err := citation.ParseType(args[0])
			if err != nil {
				return err
			}
			parser, err := loadParser(cmd.Context(), cliCtx.Config, cliCtx.Logger, t == citation.TypeRuling)
			if err != nil {
				return err
			}
			c, err := parser.Parse(t, args[1], language)
			if err != nil {
				return err
			}
			return PrintResult(cmd, newParsedCitation(c))
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "de", "language of the mention (de, fr, it)")
	return cmd
}

// loadParser builds a parser over the configured abbreviation table and,
// when withRulings is set, the optional ruling corpus.
func loadParser(ctx context.Context, cfg *config.Config, logger logging.Logger, withRulings bool) (*citation.Parser, error) {
	deps, err := openSources(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer deps.Close()

	svc := labeling.NewService(serviceConfig(cfg, false, true), nil, deps.abbreviations, logger)
	table, err := svc.LoadTable(ctx)
	if err != nil {
		return nil, err
	}

	var opts []citation.ParserOption
	if withRulings && deps.rulings != nil {
		keys, err := deps.rulings.Rulings(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatasetLoadFailed, "load ruling index")
		}
		opts = append(opts, citation.WithRulingIndex(citation.NewRulingIndex(keys)))
	}
	return citation.NewParser(table, opts...), nil
}

// ParsedCitation is the printed form of a parsed mention.
type ParsedCitation struct {
	Type      string `json:"type"`
	Key       string `json:"key"`
	Citation  string `json:"citation"`
	Literal   string `json:"literal"`
	Hash      string `json:"hash"`
	SRNumber  string `json:"sr_number,omitempty"`
	Article   string `json:"article,omitempty"`
	Paragraph *int   `json:"paragraph,omitempty"`
	Numeral   *int   `json:"numeral,omitempty"`
	Volume    int    `json:"volume,omitempty"`
	Part      string `json:"part,omitempty"`
	Page      int    `json:"page,omitempty"`
	Year      int    `json:"year,omitempty"`
}

func newParsedCitation(c citation.Citation) *ParsedCitation {
	p := &ParsedCitation{
		Type:     string(c.Type()),
		Key:      c.Key().String(),
		Citation: c.String(),
		Literal:  c.Literal(),
		Hash:     fmt.Sprintf("%016x", c.Hash()),
	}
	switch v := c.(type) {
	case *citation.LawCitation:
		p.SRNumber = v.Law.SRNumber
		p.Article = v.Article
		p.Paragraph = v.Paragraph
		p.Numeral = v.Numeral
	case *citation.RulingCitation:
		p.Volume = v.Volume
		p.Part = v.Part
		p.Page = v.Page
		p.Year = v.Year()
	}
	return p
}

func (p *ParsedCitation) String() string {
	return fmt.Sprintf("%s -> %s (%s)", p.Literal, p.Key, p.Citation)
}

// TableHeaders implements the table output.
func (p *ParsedCitation) TableHeaders() []string { return []string{"FIELD", "VALUE"} }

// TableRows implements the table output.
func (p *ParsedCitation) TableRows() [][]string {
	rows := [][]string{
		{"type", p.Type},
		{"key", p.Key},
		{"citation", p.Citation},
		{"literal", p.Literal},
	}
	if p.SRNumber != "" {
		rows = append(rows, []string{"sr_number", p.SRNumber}, []string{"article", p.Article})
		if p.Paragraph != nil {
			rows = append(rows, []string{"paragraph", strconv.Itoa(*p.Paragraph)})
		}
		if p.Numeral != nil {
			rows = append(rows, []string{"numeral", strconv.Itoa(*p.Numeral)})
		}
	}
	if p.Volume != 0 {
		rows = append(rows,
			[]string{"volume", strconv.Itoa(p.Volume)},
			[]string{"part", p.Part},
			[]string{"page", strconv.Itoa(p.Page)},
			[]string{"year", strconv.Itoa(p.Year)},
		)
	}
	return append(rows, []string{"hash", p.Hash})
}
