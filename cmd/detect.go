package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"attest-cli/detection"
)

func newDetectCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run the detection service without touching the chain",
	}
	cmd.AddCommand(newDetectTextCommand(a), newDetectImageCommand(a), newDetectStatusCommand(a))
	return cmd
}

func newDetectTextCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "text [text]",
		Short: "Detect whether text was AI generated. Reads stdin when no text is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			if len(args) == 1 {
				text = args[0]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = string(data)
			}

			result, err := a.detectionClient().DetectText(cmd.Context(), text)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(a.out, result)
			}

			fmt.Fprintln(a.out, titleStyle.Render("Text detection"))
			printField(a.out, "Classification:", result.Classification)
			printField(a.out, "AI probability:", fmt.Sprintf("%.2f%%", result.AiProbability))
			printField(a.out, "Confidence:", fmt.Sprintf("%.2f%%", result.Confidence))
			printField(a.out, "Model:", result.DetectionModel)
			printField(a.out, "Content hash:", result.ContentHash)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newDetectImageCommand(a *app) *cobra.Command {
	var (
		detectionType string
		asJSON        bool
	)

	cmd := &cobra.Command{
		Use:   "image <path>",
		Short: "Detect whether an image is a deepfake or AI generated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dt, err := detection.ParseDetectionType(detectionType)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			result, err := a.detectionClient().DetectImage(cmd.Context(), filepath.Base(args[0]), f, dt)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(a.out, result)
			}

			fmt.Fprintln(a.out, titleStyle.Render("Image detection"))
			printField(a.out, "Classification:", result.Classification)
			printField(a.out, "AI probability:", fmt.Sprintf("%.2f%%", result.AiProbability))
			printField(a.out, "Confidence:", fmt.Sprintf("%.2f%%", result.Confidence))
			printField(a.out, "Model:", result.DetectionModel)
			printField(a.out, "Content hash:", result.ContentHash)
			return nil
		},
	}
	cmd.Flags().StringVar(&detectionType, "type", "", "ai, deepfake or both (default both)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newDetectStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which detection models the service has loaded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := a.detectionClient().Status(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(a.out, titleStyle.Render("Detection service: "+status.Status))
			names := make([]string, 0, len(status.Services))
			for name := range status.Services {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				printField(a.out, strings.ReplaceAll(name, "_", " ")+":", status.Services[name])
			}
			return nil
		},
	}
}
