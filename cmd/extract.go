package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/ymm-sync/internal/extract"
	"github.com/JakeFAU/ymm-sync/internal/fitment"
)

type extractFlags struct {
	html       bool
	title      string
	id         string
	noFallback bool
}

func newExtractCmd() *cobra.Command {
	var flags extractFlags

	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Prints the fitment tuples extracted from a product payload",
		Long: `Reads a product webhook payload from file (or stdin when omitted),
runs the extractor and prints the result as JSON. Nothing is written to the
fitment table. With --html the input is treated as a raw product description.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			product, err := productFromInput(raw, flags)
			if err != nil {
				return err
			}
			e := extract.New(extract.Options{LowConfidenceFallback: !flags.noFallback}, nil)
			res := e.Extract(product)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&flags.html, "html", false, "treat input as a description HTML fragment")
	cmd.Flags().StringVar(&flags.title, "title", "", "product title used with --html")
	cmd.Flags().StringVar(&flags.id, "id", "cli", "product id used with --html")
	cmd.Flags().BoolVar(&flags.noFallback, "no-fallback", false, "disable the leading-words heuristic")

	return cmd
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", args[0], err)
	}
	return raw, nil
}

func productFromInput(raw []byte, flags extractFlags) (fitment.Product, error) {
	if flags.html {
		return fitment.Product{
			ID:       fitment.FlexString(flags.id),
			Title:    flags.title,
			BodyHTML: string(raw),
		}, nil
	}
	var p fitment.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return fitment.Product{}, fmt.Errorf("decode product: %w", err)
	}
	return p, nil
}
