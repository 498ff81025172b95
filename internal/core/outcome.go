package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/observability"
)

type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Outcome is a model-derived value tagged with where it came from. Cause is
// set when Source is SourceFallback.
type Outcome[T any] struct {
	Value  T
	Source Source
	Cause  error
}

func (o Outcome[T]) IsFallback() bool { return o.Source == SourceFallback }

var errEmptyModelReply = errors.New("model returned no JSON object")

// extractJSON trims markdown fences and any prose around the outermost
// JSON object or array in a model reply.
func extractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", errEmptyModelReply
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return "", errEmptyModelReply
	}
	return s[start : end+1], nil
}

func decodeModelJSON(raw string, v any) error {
	body, err := extractJSON(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("decode model reply: %w", err)
	}
	return nil
}

// generateJSON asks gen for a JSON reply and decodes it into T. Any failure
// on the way, including a rejected validate, yields fallback() instead.
// validate may also normalize the decoded value in place.
func generateJSON[T any](
	ctx context.Context,
	gen Generator,
	log *zap.Logger,
	call string,
	req GenerateRequest,
	validate func(*T) error,
	fallback func() T,
) Outcome[T] {
	req.JSON = true
	out, err := func() (T, error) {
		var v T
		raw, err := gen.Generate(ctx, req)
		if err != nil {
			return v, err
		}
		if err := decodeModelJSON(raw, &v); err != nil {
			return v, err
		}
		if validate != nil {
			if err := validate(&v); err != nil {
				return v, err
			}
		}
		return v, nil
	}()

	if err != nil {
		observability.ModelOutcomes.WithLabelValues(call, string(SourceFallback)).Inc()
		log.Warn("model call degraded to fallback", zap.String("call", call), zap.Error(err))
		return Outcome[T]{Value: fallback(), Source: SourceFallback, Cause: err}
	}
	observability.ModelOutcomes.WithLabelValues(call, string(SourceModel)).Inc()
	return Outcome[T]{Value: out, Source: SourceModel}
}
