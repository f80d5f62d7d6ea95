package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wiring-tracer/internal/circuit"
	"wiring-tracer/internal/query"
)

type queryFlags struct {
	pageFlags
	kinds []string
	save  string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	f.pageFlags.register(cmd)
	cmd.Flags().StringSliceVar(&f.kinds, "kind", nil, "restrict matches to node kinds (component, port, junction)")
	cmd.Flags().StringVar(&f.save, "save", "", "also save the result under this query name")
}

func (f *queryFlags) nodeKinds() []circuit.Kind {
	out := make([]circuit.Kind, len(f.kinds))
	for i, k := range f.kinds {
		out[i] = circuit.Kind(k)
	}
	return out
}

// emit prints v as JSON and optionally saves it next to the page's records.
func (f *queryFlags) emit(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	if f.save == "" {
		return nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path, err := query.Save(layoutOf(cfg), f.pdf, f.page, f.save, v)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "saved %s\n", path)
	return nil
}

func loadGraph(f pageFlags) (*circuit.Graph, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return query.Load(layoutOf(cfg), f.pdf, f.page)
}

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Search the page graph",
		Long:  `Queries run against the refined graph of a page when present, else the base graph.`,
	}

	var find queryFlags
	findCmd := &cobra.Command{
		Use:   "find <pattern>",
		Short: "Find nodes whose labels or type match a regex",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGraph(find.pageFlags)
			if err != nil {
				return err
			}
			matches, err := query.FindByText(g, args[0], find.nodeKinds()...)
			if err != nil {
				return err
			}
			return find.emit(matches)
		},
	}
	find.register(findCmd)

	var (
		pathF    queryFlags
		from, to string
	)
	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Shortest path between nodes matching two patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGraph(pathF.pageFlags)
			if err != nil {
				return err
			}
			res, err := query.ShortestPath(g, from, to, pathF.nodeKinds()...)
			if err != nil {
				return err
			}
			return pathF.emit(res)
		},
	}
	pathF.register(pathCmd)
	pathCmd.Flags().StringVar(&from, "from", "", "source pattern")
	pathCmd.Flags().StringVar(&to, "to", "", "destination pattern")
	_ = pathCmd.MarkFlagRequired("from")
	_ = pathCmd.MarkFlagRequired("to")

	var (
		sub  queryFlags
		hops int
	)
	subCmd := &cobra.Command{
		Use:   "subgraph <node-id>",
		Short: "Nodes within a number of hops of a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGraph(sub.pageFlags)
			if err != nil {
				return err
			}
			return sub.emit(query.Subgraph(g, args[0], hops))
		},
	}
	sub.register(subCmd)
	subCmd.Flags().IntVar(&hops, "hops", 2, "neighbourhood radius in edges")

	cmd.AddCommand(findCmd, pathCmd, subCmd)
	return cmd
}

func init() {
	rootCmd.AddCommand(newQueryCmd())
}
