package interpreter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-sign-backend/internal/rules"
)

type fakeModel struct {
	content string
	err     error
	delay   time.Duration
	got     ImageRequest
	calls   int
}

func (f *fakeModel) Complete(ctx context.Context, req ImageRequest) (string, error) {
	f.calls++
	f.got = req
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.content, f.err
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestInterpret_AcceptedSign(t *testing.T) {
	model := &fakeModel{content: `{"is_parking_sign": true, "description": "2P meter", "raw_text": "2P METER 8AM-6PM",
		"periods": [{"time_limit_mins": 120, "payment_type": "METERED", "days_of_week": ["MON","TUE","WED","THU","FRI"], "start_time": "08:00", "end_time": "18:00", "special_conditions": null}]}`}
	in := New(model, Options{})

	res, err := in.Interpret(context.Background(), pngHeader)
	require.NoError(t, err)

	accepted, ok := res.(rules.Accepted)
	require.True(t, ok, "expected Accepted, got %T", res)
	require.Len(t, accepted.Periods, 1)
	assert.Equal(t, rules.PaymentMetered, accepted.Periods[0].PaymentType)

	assert.Equal(t, Prompt, model.got.Prompt)
	assert.True(t, model.got.JSONOutput)
	assert.True(t, strings.HasPrefix(model.got.ImageDataURI, "data:image/png;base64,"))
}

func TestInterpret_Rejections(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		reason  rules.Reason
	}{
		{"Not a sign", `{"is_parking_sign": false}`, rules.ReasonNotAParkingSign},
		{"Empty answer", "", rules.ReasonMalformedResponse},
		{"Prose", "I think this is a tree.", rules.ReasonMalformedResponse},
		{"Wrong shape", `["is_parking_sign"]`, rules.ReasonSchemaViolation},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := New(&fakeModel{content: tc.content}, Options{})
			res, err := in.Interpret(context.Background(), pngHeader)
			require.NoError(t, err)
			assert.Equal(t, rules.Rejected{Reason: tc.reason}, res)
		})
	}
}

func TestInterpret_CodeFencedAnswer(t *testing.T) {
	in := New(&fakeModel{content: "```json\n{\"is_parking_sign\": false}\n```"}, Options{})
	res, err := in.Interpret(context.Background(), pngHeader)
	require.NoError(t, err)
	assert.Equal(t, rules.Rejected{Reason: rules.ReasonNotAParkingSign}, res)
}

func TestInterpret_ModelFailure(t *testing.T) {
	cause := errors.New("401 unauthorized")
	in := New(&fakeModel{err: cause}, Options{})

	res, err := in.Interpret(context.Background(), pngHeader)
	assert.Nil(t, res)

	var ierr *Error
	require.ErrorAs(t, err, &ierr)
	assert.ErrorIs(t, err, cause)
}

func TestInterpret_Timeout(t *testing.T) {
	in := New(&fakeModel{delay: time.Second, content: `{"is_parking_sign": false}`}, Options{Timeout: 20 * time.Millisecond})

	_, err := in.Interpret(context.Background(), pngHeader)
	var ierr *Error
	require.ErrorAs(t, err, &ierr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUnwrapCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, unwrapCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, unwrapCodeFence("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, unwrapCodeFence("  {\"a\":1}\n"))
	assert.Equal(t, "prefix ```{}```", unwrapCodeFence("prefix ```{}```"))
}
