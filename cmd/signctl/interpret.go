package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"parking-sign-backend/internal/imagedata"
	"parking-sign-backend/internal/interpreter"
	"parking-sign-backend/internal/interpreter/openai"
	"parking-sign-backend/internal/model"
	"parking-sign-backend/internal/rules"
)

// Reader is the part of the interpreter the command needs.
type Reader interface {
	Interpret(ctx context.Context, image []byte) (rules.Result, error)
}

type interpretOutput struct {
	PromptVersion string                `json:"promptVersion"`
	Accepted      bool                  `json:"accepted"`
	Reason        string                `json:"reason,omitempty"`
	Description   *string               `json:"description,omitempty"`
	RawText       *string               `json:"rawText,omitempty"`
	Periods       []model.ParkingPeriod `json:"periods,omitempty"`
}

func interpretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interpret <image>",
		Short: "Read a sign photo and print the normalized periods",
		Long: `Send a local photo to the configured vision model and print what would be
stored for it. Nothing is uploaded or written to the database.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			vision, err := openai.New(cfg.Vision)
			if err != nil {
				return err
			}
			reader := interpreter.New(vision, interpreter.Options{
				Timeout:           cfg.Vision.Timeout,
				RequestsPerMinute: cfg.Vision.RequestsPerMinute,
			})
			return runInterpret(cmd.Context(), reader, args[0], cmd.OutOrStdout())
		},
	}
}

func runInterpret(ctx context.Context, reader Reader, path string, out io.Writer) error {
	image, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !imagedata.IsImage(image) {
		return fmt.Errorf("%s is not an image (%s)", path, imagedata.Detect(image).ContentType)
	}

	res, err := reader.Interpret(ctx, image)
	if err != nil {
		return err
	}

	result := interpretOutput{PromptVersion: interpreter.PromptVersion}
	switch r := res.(type) {
	case rules.Accepted:
		spot := model.NewParkingSpot(0, 0, "", r)
		result.Accepted = true
		result.Description = spot.Description
		result.RawText = spot.RawText
		result.Periods = spot.Periods
	case rules.Rejected:
		result.Reason = string(r.Reason)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
