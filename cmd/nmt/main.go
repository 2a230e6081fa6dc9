package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/CopikProjeckId/nmt-system-sub000/internal/config"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/engine"
	"github.com/CopikProjeckId/nmt-system-sub000/internal/neuron"
)

const version = "0.1.0"

// cli holds flags shared across subcommands, mirroring the teacher's
// cmd/qubicdb/main.go CLI-overrides-over-config-hierarchy pattern.
type cli struct {
	dataDir    string
	topK       int
	tags       string
	sourceType string
	content    string
	jsonOut    bool
}

func main() {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:     "nmt",
		Short:   "nmt — verifiable semantic knowledge graph engine",
		Long:    "A content-addressed, Merkle-verified knowledge graph: ingest text, embed it, index it for approximate nearest-neighbor search, and connect it into a Hebbian-learned neuron graph.",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVar(&c.dataDir, "data-dir", "./data", "Data directory")
	rootCmd.PersistentFlags().IntVar(&c.topK, "top-k", 10, "Number of results to return")
	rootCmd.PersistentFlags().StringVar(&c.tags, "tags", "", "Comma-separated tags")
	rootCmd.PersistentFlags().StringVar(&c.sourceType, "source-type", "text", "Source type recorded on ingested neurons")
	rootCmd.PersistentFlags().StringVar(&c.content, "content", "", "Inline text content (used by ingest-text when no positional arg is given)")
	rootCmd.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "Emit machine-readable JSON instead of plain text")
	rootCmd.SetVersionTemplate("nmt version {{.Version}}\n")
	rootCmd.Flags().BoolP("version", "v", false, "Print the version and exit")

	rootCmd.AddCommand(
		c.initCmd(),
		c.ingestCmd(),
		c.ingestTextCmd(),
		c.searchCmd(),
		c.verifyCmd(),
		c.listCmd(),
		c.getCmd(),
		c.statsCmd(),
		c.connectCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "nmt:", err)
		os.Exit(1)
	}
}

func (c *cli) tagList() []string {
	if strings.TrimSpace(c.tags) == "" {
		return nil
	}
	parts := strings.Split(c.tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (c *cli) open() (*engine.Engine, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	cfg.Storage.DataPath = c.dataDir
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	if c.jsonOut {
		log = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return engine.Open(cfg, "cli", log)
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ── init ──────────────────────────────────────────────────────────────

func (c *cli) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.open()
			if err != nil {
				return err
			}
			defer e.Close()
			fmt.Printf("initialized data directory %s\n", c.dataDir)
			return nil
		},
	}
}

// ── ingest <file> ───────────────────────────────────────────────────────

func (c *cli) ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a text file as a new neuron",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			e, err := c.open()
			if err != nil {
				return err
			}
			defer e.Close()
			n, dup, err := e.Ingest(cmd.Context(), string(data), c.tagList())
			if err != nil {
				return err
			}
			return c.printNeuronResult(n, dup)
		},
	}
}

// ── ingest-text <text> ──────────────────────────────────────────────────

func (c *cli) ingestTextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest-text [text]",
		Short: "Ingest inline text as a new neuron",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := c.content
			if len(args) == 1 {
				text = args[0]
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("ingest-text: no content given (pass as an argument or --content)")
			}
			e, err := c.open()
			if err != nil {
				return err
			}
			defer e.Close()
			n, dup, err := e.Ingest(cmd.Context(), text, c.tagList())
			if err != nil {
				return err
			}
			return c.printNeuronResult(n, dup)
		},
	}
}

func (c *cli) printNeuronResult(n *neuron.Neuron, dup bool) error {
	if c.jsonOut {
		return c.printJSON(map[string]any{"id": string(n.ID), "duplicate": dup, "chunkCount": len(n.ChunkHashes)})
	}
	status := "created"
	if dup {
		status = "duplicate (already ingested)"
	}
	fmt.Printf("%s: %s (%d chunks)\n", status, n.ID, len(n.ChunkHashes))
	return nil
}

// ── search <query> ───────────────────────────────────────────────────────

func (c *cli) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search the knowledge graph by semantic similarity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.open()
			if err != nil {
				return err
			}
			defer e.Close()
			results, err := e.Search(cmd.Context(), args[0], c.topK)
			if err != nil {
				return err
			}
			if c.jsonOut {
				type jsonResult struct {
					ID         string  `json:"id"`
					Similarity float64 `json:"similarity"`
					Score      float64 `json:"score"`
					Content    string  `json:"content"`
				}
				out := make([]jsonResult, len(results))
				for i, r := range results {
					out[i] = jsonResult{ID: string(r.Neuron.ID), Similarity: r.Similarity, Score: r.Score, Content: r.Content}
				}
				return c.printJSON(out)
			}
			for _, r := range results {
				fmt.Printf("%.4f  %s  %s\n", r.Score, r.Neuron.ID, truncate(r.Content, 120))
			}
			if len(results) == 0 {
				fmt.Println("no results")
			}
			return nil
		},
	}
}

// ── verify [id] ──────────────────────────────────────────────────────────

func (c *cli) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [id]",
		Short: "Verify the Merkle root of one neuron, or every neuron if id is omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.open()
			if err != nil {
				return err
			}
			defer e.Close()

			ids := []neuron.ID{}
			if len(args) == 1 {
				ids = append(ids, neuron.ID(args[0]))
			} else {
				ids = e.ListNeurons()
			}

			var failed int
			for _, id := range ids {
				ok, err := e.VerifyMerkleRoot(id)
				if err != nil {
					fmt.Fprintf(os.Stderr, "verify %s: %v\n", id, err)
					failed++
					continue
				}
				if !ok {
					fmt.Printf("FAIL %s\n", id)
					failed++
				} else if !c.jsonOut {
					fmt.Printf("OK   %s\n", id)
				}
			}
			fmt.Printf("verified %d, failed %d\n", len(ids)-failed, failed)
			if failed > 0 {
				return fmt.Errorf("%d neuron(s) failed verification", failed)
			}
			return nil
		},
	}
}

// ── list ──────────────────────────────────────────────────────────────

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every neuron id",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.open()
			if err != nil {
				return err
			}
			defer e.Close()
			ids := e.ListNeurons()
			if c.jsonOut {
				strs := make([]string, len(ids))
				for i, id := range ids {
					strs[i] = string(id)
				}
				return c.printJSON(strs)
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
}

// ── get <id> ──────────────────────────────────────────────────────────

func (c *cli) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Fetch one neuron by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.open()
			if err != nil {
				return err
			}
			defer e.Close()
			n, err := e.GetNeuron(neuron.ID(args[0]))
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(map[string]any{
					"id":         string(n.ID),
					"merkleRoot": n.MerkleRoot.Hex(),
					"sourceType": n.Metadata.SourceType,
					"tags":       n.Metadata.Tags,
					"chunkCount": len(n.ChunkHashes),
					"createdAt":  n.Metadata.CreatedAt,
				})
			}
			fmt.Printf("id:          %s\n", n.ID)
			fmt.Printf("merkleRoot:  %s\n", n.MerkleRoot.Hex())
			fmt.Printf("sourceType:  %s\n", n.Metadata.SourceType)
			fmt.Printf("tags:        %s\n", strings.Join(n.Metadata.Tags, ","))
			fmt.Printf("chunkCount:  %d\n", len(n.ChunkHashes))
			fmt.Printf("createdAt:   %s\n", n.Metadata.CreatedAt.Format(time.RFC3339))
			return nil
		},
	}
}

// ── stats ─────────────────────────────────────────────────────────────

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show engine-wide counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.open()
			if err != nil {
				return err
			}
			defer e.Close()
			s := e.Stats()
			if c.jsonOut {
				return c.printJSON(s)
			}
			fmt.Printf("neurons:    %d\n", s.Neurons)
			fmt.Printf("chunks:     %d\n", s.Chunks)
			fmt.Printf("tombstones: %d\n", s.Tombstones)
			fmt.Printf("sequence:   %d\n", s.Sequence)
			return nil
		},
	}
}

// ── connect <fromId> <toId> ──────────────────────────────────────────────

func (c *cli) connectCmd() *cobra.Command {
	var synType string
	var weight float64
	var bidirectional bool

	cmd := &cobra.Command{
		Use:   "connect <fromId> <toId>",
		Short: "Manually form a synapse between two existing neurons",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.open()
			if err != nil {
				return err
			}
			defer e.Close()
			typ, err := parseSynapseType(synType)
			if err != nil {
				return err
			}
			from, to := neuron.ID(args[0]), neuron.ID(args[1])
			if err := e.Connect(from, to, typ, weight, bidirectional); err != nil {
				return err
			}
			fmt.Printf("connected %s -> %s (%s, weight=%.3f)\n", from, to, typ, weight)
			return nil
		},
	}
	cmd.Flags().StringVar(&synType, "type", "SEMANTIC", "Synapse type: SEMANTIC|CAUSAL|TEMPORAL|ASSOCIATIVE|INHIBITORY")
	cmd.Flags().Float64Var(&weight, "weight", 0.5, "Synapse weight")
	cmd.Flags().BoolVar(&bidirectional, "bidirectional", true, "Form the synapse as bidirectional")
	return cmd
}

func parseSynapseType(s string) (neuron.SynapseType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SEMANTIC":
		return neuron.SynapseSemantic, nil
	case "CAUSAL":
		return neuron.SynapseCausal, nil
	case "TEMPORAL":
		return neuron.SynapseTemporal, nil
	case "ASSOCIATIVE":
		return neuron.SynapseAssociative, nil
	case "INHIBITORY":
		return neuron.SynapseInhibitory, nil
	default:
		return "", fmt.Errorf("unknown synapse type %q", s)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
