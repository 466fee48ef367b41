package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/docquery"
	"github.com/hupe1980/docquery/index"
	"github.com/hupe1980/docquery/value"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// windowFlags adds --skip and --limit to cmd.
func windowFlags(cmd *cobra.Command) {
	cmd.Flags().Int("skip", 0, "documents to skip; negative keeps only the last -skip")
	cmd.Flags().Uint("limit", 0, "maximum number of documents, 0 for no limit")
}

func window(cmd *cobra.Command) (skip int, limit uint) {
	skip, _ = cmd.Flags().GetInt("skip")
	limit, _ = cmd.Flags().GetUint("limit")
	if limit == 0 {
		limit = docquery.NoLimit
	}
	return skip, limit
}

// indexFlag adds --id to cmd.
func indexFlag(cmd *cobra.Command, usage string) {
	cmd.Flags().Uint64("id", 0, usage)
}

// indexID returns the --id flag if set, otherwise the first index
// accepted by want.
func indexID(cmd *cobra.Command, coll *docquery.Collection, want func(index.Kind) bool) (index.Descriptor, error) {
	if cmd.Flags().Changed("id") {
		id, _ := cmd.Flags().GetUint64("id")
		return coll.Index(index.ID(id))
	}
	for _, d := range coll.Indexes() {
		if want(d.Kind) {
			return d, nil
		}
	}
	return index.Descriptor{}, fmt.Errorf("%w: declare one with --index", docquery.ErrNoIndex)
}

func isKind(kinds ...index.Kind) func(index.Kind) bool {
	return func(k index.Kind) bool {
		for _, want := range kinds {
			if k == want {
				return true
			}
		}
		return false
	}
}

func newIndexesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "List the indexes of the loaded collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, err := a.collection(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tKIND\tFIELDS\tUNIQUE")
			for _, d := range coll.Indexes() {
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%t\n", d.ID, d.Kind, strings.Join(d.Fields, ","), d.Unique)
			}
			return tw.Flush()
		},
	}
}

func parseQuery(arg string) (docquery.Query, error) {
	var q docquery.Query
	if err := json.Unmarshal([]byte(arg), &q); err != nil {
		return q, fmt.Errorf("%w: query: %w", docquery.ErrBadParameter, err)
	}
	return q, nil
}

func newExplainCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <query-json>",
		Short: "Show the plan of a query",
		Long: `Show the plan of a query. The query is a JSON object:

  {"variable": "u", "filter": <expression>, "sort": [{"attribute": "age"}], "skip": 0, "limit": 10}

Expressions use the interchange form, e.g.
  {"type": ">", "subNodes": [{"type": "attribute access", "name": "age",
    "subNodes": [{"type": "reference", "name": "u"}]}, {"type": "value", "value": 18}]}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseQuery(args[0])
			if err != nil {
				return err
			}
			coll, err := a.collection(cmd.Context())
			if err != nil {
				return err
			}
			p, err := coll.Explain(cmd.Context(), q)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), p.String())
			return err
		},
	}
}

func newExecuteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "execute <query-json>",
		Short: "Plan and run a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseQuery(args[0])
			if err != nil {
				return err
			}
			coll, err := a.collection(cmd.Context())
			if err != nil {
				return err
			}
			res, err := coll.Execute(cmd.Context(), q)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func newExampleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "example <example-json>",
		Short: "Find documents matching an example object",
		Long: `Find documents whose attributes equal every attribute of the example.
Without --id the collection is scanned; with --id the example is looked up
in that hash, skiplist or bitarray index.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			example, err := value.ParseDocument([]byte(args[0]))
			if err != nil {
				return fmt.Errorf("%w: example: %w", docquery.ErrBadParameter, err)
			}
			coll, err := a.collection(cmd.Context())
			if err != nil {
				return err
			}
			skip, limit := window(cmd)
			ctx := cmd.Context()

			var res *docquery.Result
			if !cmd.Flags().Changed("id") {
				res, err = coll.ByExample(ctx, example, skip, limit)
			} else {
				var d index.Descriptor
				if d, err = indexID(cmd, coll, nil); err != nil {
					return err
				}
				switch d.Kind {
				case index.KindPrimary, index.KindHash:
					res, err = coll.ByExampleHash(ctx, d.ID, example, skip, limit)
				case index.KindSkiplist:
					res, err = coll.ByExampleSkiplist(ctx, d.ID, example, skip, limit)
				case index.KindBitarray:
					res, err = coll.ByExampleBitarray(ctx, d.ID, example, skip, limit)
				default:
					err = fmt.Errorf("%w: %s cannot answer examples", docquery.ErrNoIndex, d)
				}
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	windowFlags(cmd)
	indexFlag(cmd, "hash, skiplist or bitarray index to use")
	return cmd
}

func newConditionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "condition <condition-json>",
		Short: "Run a skiplist or bitarray condition",
		Long: `Run a condition against a skiplist or bitarray index. Skiplist conditions
map fields to comparison lists, {"a": [["==", 1]], "b": [[">", 2]]}; bitarray
conditions nest operators, {"or": [{"==": {"x": 1}}, {"!=": {"y": "a"}}]}.
Without --id the first skiplist or bitarray index is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cond, err := value.Parse([]byte(args[0]))
			if err != nil {
				return fmt.Errorf("%w: condition: %w", docquery.ErrBadParameter, err)
			}
			coll, err := a.collection(cmd.Context())
			if err != nil {
				return err
			}
			d, err := indexID(cmd, coll, isKind(index.KindSkiplist, index.KindBitarray))
			if err != nil {
				return err
			}
			skip, limit := window(cmd)

			var res *docquery.Result
			switch d.Kind {
			case index.KindSkiplist:
				res, err = coll.ByConditionSkiplist(cmd.Context(), d.ID, cond, skip, limit)
			case index.KindBitarray:
				res, err = coll.ByConditionBitarray(cmd.Context(), d.ID, cond, skip, limit)
			default:
				err = fmt.Errorf("%w: %s cannot answer conditions", docquery.ErrNoIndex, d)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	windowFlags(cmd)
	indexFlag(cmd, "skiplist or bitarray index to use")
	return cmd
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, s := range args {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", docquery.ErrBadParameter, s)
		}
		out[i] = f
	}
	return out, nil
}

// coordinateArgs stops flag parsing at the first positional argument so
// negative coordinates such as -0.12 are not read as shorthand flags.
// Flags must come before the coordinates.
func coordinateArgs(cmd *cobra.Command) {
	cmd.Flags().SetInterspersed(false)
}

func newNearCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "near [flags] <lat> <lon>",
		Short: "Find the documents closest to a point",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coords, err := parseFloats(args)
			if err != nil {
				return err
			}
			coll, err := a.collection(cmd.Context())
			if err != nil {
				return err
			}
			d, err := indexID(cmd, coll, index.Kind.IsGeo)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			res, err := coll.Near(cmd.Context(), d.ID, coords[0], coords[1], limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().Int("limit", 100, "number of documents to return")
	indexFlag(cmd, "geo index to use")
	coordinateArgs(cmd)
	return cmd
}

func newWithinCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "within [flags] <lat> <lon> <radius-metres>",
		Short: "Find the documents within a radius of a point",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			nums, err := parseFloats(args)
			if err != nil {
				return err
			}
			coll, err := a.collection(cmd.Context())
			if err != nil {
				return err
			}
			d, err := indexID(cmd, coll, index.Kind.IsGeo)
			if err != nil {
				return err
			}
			res, err := coll.Within(cmd.Context(), d.ID, nums[0], nums[1], nums[2])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	indexFlag(cmd, "geo index to use")
	coordinateArgs(cmd)
	return cmd
}

func newFulltextCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fulltext <query>",
		Short: "Run a fulltext query such as prefix:data,base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, err := a.collection(cmd.Context())
			if err != nil {
				return err
			}
			d, err := indexID(cmd, coll, isKind(index.KindFulltext))
			if err != nil {
				return err
			}
			res, err := coll.Fulltext(cmd.Context(), d.ID, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	indexFlag(cmd, "fulltext index to use")
	return cmd
}
