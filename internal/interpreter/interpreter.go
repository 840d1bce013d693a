// Package interpreter turns a sign photo into a validated rules.Result by
// way of a vision-language model.
package interpreter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"parking-sign-backend/internal/imagedata"
	"parking-sign-backend/internal/rules"
)

// ImageRequest is one call to the vision model.
type ImageRequest struct {
	Prompt       string
	ImageDataURI string
	JSONOutput   bool // ask the model for a strict JSON object
}

// VisionModel is the external model collaborator. It returns the model's
// text output or an error for network, auth and quota failures.
type VisionModel interface {
	Complete(ctx context.Context, req ImageRequest) (string, error)
}

// Error reports that the model could not be consulted. It is never the
// result of the model's answer itself.
type Error struct {
	Cause error
}

func (e *Error) Error() string {
	return "sign interpreter unavailable: " + e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options tunes an Interpreter.
type Options struct {
	Timeout           time.Duration
	RequestsPerMinute int
}

// Interpreter drives the model and bounds its output into rules.Result.
type Interpreter struct {
	model   VisionModel
	limiter *rate.Limiter
	timeout time.Duration
}

// New creates an Interpreter. Zero options fall back to 60s and 60 rpm.
func New(model VisionModel, opts Options) *Interpreter {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 60
	}
	burst := opts.RequestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}
	return &Interpreter{
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60), burst),
		timeout: opts.Timeout,
	}
}

// Interpret reads one image. A non-nil error is always an *Error; otherwise
// the result is rules.Accepted or rules.Rejected.
func (i *Interpreter) Interpret(ctx context.Context, image []byte) (rules.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	if err := i.limiter.Wait(ctx); err != nil {
		return nil, &Error{Cause: fmt.Errorf("waiting for model quota: %w", err)}
	}

	started := time.Now()
	content, err := i.model.Complete(ctx, ImageRequest{
		Prompt:       Prompt,
		ImageDataURI: imagedata.DataURI(image),
		JSONOutput:   true,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Printf("Interpreter: model call timed out after %s", time.Since(started).Round(time.Millisecond))
		}
		return nil, &Error{Cause: err}
	}
	log.Printf("Interpreter: model answered in %s (prompt %s, %d bytes)",
		time.Since(started).Round(time.Millisecond), PromptVersion, len(content))

	return rules.ValidateResponse([]byte(unwrapCodeFence(content))), nil
}

var codeFenceRe = regexp.MustCompile("(?s)^```(?:json|JSON)?\\s*\\n?(.*?)\\s*```$")

// unwrapCodeFence strips a markdown code fence around the whole answer.
// Anything else is left for the validator to judge.
func unwrapCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if m := codeFenceRe.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	return content
}
