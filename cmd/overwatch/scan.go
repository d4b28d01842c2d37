package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alyahmed89/overwatch/directive"
)

var scanCmd = &cobra.Command{
	Use:   "scan [text]",
	Short: "Scan text for a stop directive and print the extraction as JSON",
	Long: `Runs the stop-directive extractor over the given text (or stdin when no
argument is given). Exits non-zero when the marker is present but the
directive is malformed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	var text string
	if len(args) == 1 {
		text = args[0]
	} else {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = strings.TrimRight(string(raw), "\n")
	}

	d, err := directive.Scan(text)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
