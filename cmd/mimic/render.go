package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chosenoffset/mimic/pkg/mimic/svgdom"
	"github.com/chosenoffset/mimic/pkg/mimic/telemetry"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Apply telemetry to the drawing and write the result",
	Long: `Render loads the drawing, applies every batch of the --batches file in ` +
		`order and writes the resulting SVG, or an XHTML page hosting it with --page.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		controller := cfg.Controller(logger)
		if err := controller.Initialise(cmd.Context()); err != nil {
			return err
		}
		defer controller.Dispose()

		if path, _ := cmd.Flags().GetString("batches"); path != "" {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			batches, err := telemetry.ReadBatches(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			var failures []error
			for _, b := range batches {
				if err := controller.Update(b); err != nil {
					failures = append(failures, err)
				}
			}
			if err := errors.Join(failures...); err != nil {
				logger.Warn("Some rules failed", "error", err)
			}
		}

		out, err := controller.Render()
		if err != nil {
			return err
		}
		if page, _ := cmd.Flags().GetBool("page"); page {
			title, _ := cmd.Flags().GetString("title")
			if out, err = svgdom.Page(title, out); err != nil {
				return err
			}
		}

		if output, _ := cmd.Flags().GetString("output"); output != "" && output != "-" {
			return os.WriteFile(output, out, 0o644)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	renderCmd.Flags().StringP("batches", "b", "", "JSON-lines telemetry batches to apply")
	renderCmd.Flags().StringP("output", "o", "-", "output file")
	renderCmd.Flags().Bool("page", false, "wrap the drawing in an XHTML host page")
	renderCmd.Flags().String("title", "Mimic", "page title for --page")
	rootCmd.AddCommand(renderCmd)
}
