// Package source adapts the supported ways of producing choices (a fixed
// list, a synchronous function, an asynchronous function, or a generator)
// to a single pull-based Producer.
package source

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/runger/palette/internal/model"
)

// ErrUnsupportedSource is returned by From for values it cannot adapt.
var ErrUnsupportedSource = errors.New("unsupported choice source")

// Producer is the interface for anything that supplies choices to a prompt.
// Produce returns a lazy, finite sequence of batches for one input; it is
// not restartable. Once ctx is cancelled no further batch is yielded.
// A failing source yields a single *ChoiceSourceError and stops.
type Producer interface {
	Produce(ctx context.Context, input string) iter.Seq2[[]model.Choice, error]

	// Dynamic reports whether the choices depend on the input text, i.e.
	// whether the prompt has to pull again when the input changes.
	Dynamic() bool
}

// ChoiceSourceError wraps a failure of a choice source.
type ChoiceSourceError struct {
	Cause error
}

func (e *ChoiceSourceError) Error() string {
	return fmt.Sprintf("choice source: %v", e.Cause)
}

func (e *ChoiceSourceError) Unwrap() error {
	return e.Cause
}

// SyncFunc computes choices for an input synchronously.
type SyncFunc func(input string) ([]model.Choice, error)

// AsyncFunc computes choices for an input and may block.
type AsyncFunc func(ctx context.Context, input string) ([]model.Choice, error)

// GeneratorFunc produces choices incrementally. It calls yield once per
// batch and must return as soon as yield returns false.
type GeneratorFunc func(ctx context.Context, input string, yield func([]model.Choice) bool) error

type staticSource struct {
	choices []model.Choice
}

// Static returns a source that always yields the same list. The choices
// are used as given; From normalizes them first.
func Static(choices []model.Choice) Producer {
	return staticSource{choices: choices}
}

func (s staticSource) Dynamic() bool { return false }

func (s staticSource) Produce(ctx context.Context, _ string) iter.Seq2[[]model.Choice, error] {
	return func(yield func([]model.Choice, error) bool) {
		if ctx.Err() != nil {
			return
		}
		out := make([]model.Choice, len(s.choices))
		copy(out, s.choices)
		yield(out, nil)
	}
}

type funcSource struct {
	fn SyncFunc
}

// Func returns a source that calls fn for every input.
func Func(fn SyncFunc) Producer {
	return funcSource{fn: normalized(fn)}
}

func (s funcSource) Dynamic() bool { return true }

func (s funcSource) Produce(ctx context.Context, input string) iter.Seq2[[]model.Choice, error] {
	return func(yield func([]model.Choice, error) bool) {
		if ctx.Err() != nil {
			return
		}
		choices, err := call(func() ([]model.Choice, error) { return s.fn(input) })
		if ctx.Err() != nil {
			return
		}
		yield(choices, err)
	}
}

type asyncSource struct {
	fn AsyncFunc
}

// Async returns a source whose function runs in its own goroutine. A
// cancelled call stops waiting immediately, even if fn ignores ctx.
func Async(fn AsyncFunc) Producer {
	return asyncSource{fn: normalizedAsync(fn)}
}

func (s asyncSource) Dynamic() bool { return true }

type asyncResult struct {
	choices []model.Choice
	err     error
}

func (s asyncSource) Produce(ctx context.Context, input string) iter.Seq2[[]model.Choice, error] {
	return func(yield func([]model.Choice, error) bool) {
		if ctx.Err() != nil {
			return
		}
		done := make(chan asyncResult, 1)
		go func() {
			choices, err := call(func() ([]model.Choice, error) { return s.fn(ctx, input) })
			done <- asyncResult{choices: choices, err: err}
		}()

		select {
		case <-ctx.Done():
			return
		case res := <-done:
			if ctx.Err() != nil {
				return
			}
			yield(res.choices, res.err)
		}
	}
}

type generatorSource struct {
	fn GeneratorFunc
}

// Generator returns a source that delivers batches as fn produces them.
func Generator(fn GeneratorFunc) Producer {
	return generatorSource{fn: fn}
}

func (s generatorSource) Dynamic() bool { return true }

func (s generatorSource) Produce(ctx context.Context, input string) iter.Seq2[[]model.Choice, error] {
	return func(yield func([]model.Choice, error) bool) {
		if ctx.Err() != nil {
			return
		}
		stopped := false
		emit := func(batch []model.Choice) bool {
			if stopped || ctx.Err() != nil {
				stopped = true
				return false
			}
			normalized, err := normalize(batch)
			if err != nil {
				stopped = true
				yield(nil, err)
				return false
			}
			if !yield(normalized, nil) {
				stopped = true
				return false
			}
			return true
		}

		err := guard(func() error { return s.fn(ctx, input, emit) })
		if err != nil && !stopped && ctx.Err() == nil {
			yield(nil, wrap(err))
		}
	}
}

type concatSource struct {
	parts []Producer
}

// Concat chains producers: each one's batches follow the previous one's.
// The result is dynamic if any part is.
func Concat(parts ...Producer) Producer {
	return concatSource{parts: parts}
}

func (s concatSource) Dynamic() bool {
	for _, p := range s.parts {
		if p.Dynamic() {
			return true
		}
	}
	return false
}

func (s concatSource) Produce(ctx context.Context, input string) iter.Seq2[[]model.Choice, error] {
	return func(yield func([]model.Choice, error) bool) {
		for _, p := range s.parts {
			for batch, err := range p.Produce(ctx, input) {
				if !yield(batch, err) || err != nil {
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}
}

// From selects the producer for a configured value. The capability check
// happens once here, never per pull.
func From(v any) (Producer, error) {
	switch src := v.(type) {
	case nil:
		return Static(nil), nil
	case Producer:
		return src, nil
	case []model.Choice:
		choices, err := normalize(src)
		if err != nil {
			return nil, err
		}
		return Static(choices), nil
	case []string:
		return Static(model.Strings(src...)), nil
	case []any:
		choices, err := model.Normalize(src...)
		if err != nil {
			return nil, &ChoiceSourceError{Cause: err}
		}
		return Static(choices), nil
	case SyncFunc:
		return Func(src), nil
	case func(string) ([]model.Choice, error):
		return Func(src), nil
	case func(string) []model.Choice:
		return Func(func(in string) ([]model.Choice, error) { return src(in), nil }), nil
	case func(string) []string:
		return Func(func(in string) ([]model.Choice, error) { return model.Strings(src(in)...), nil }), nil
	case AsyncFunc:
		return Async(src), nil
	case func(context.Context, string) ([]model.Choice, error):
		return Async(src), nil
	case GeneratorFunc:
		return Generator(src), nil
	case func(context.Context, string, func([]model.Choice) bool) error:
		return Generator(src), nil
	case iter.Seq[model.Choice]:
		return Generator(fromSeq(src)), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedSource, v)
	}
}

// fromSeq adapts a plain iterator, yielding one choice per batch.
func fromSeq(seq iter.Seq[model.Choice]) GeneratorFunc {
	return func(ctx context.Context, _ string, yield func([]model.Choice) bool) error {
		for c := range seq {
			if !yield([]model.Choice{c}) {
				return nil
			}
		}
		return nil
	}
}

func normalized(fn SyncFunc) SyncFunc {
	return func(input string) ([]model.Choice, error) {
		choices, err := fn(input)
		if err != nil {
			return nil, err
		}
		return normalize(choices)
	}
}

func normalizedAsync(fn AsyncFunc) AsyncFunc {
	return func(ctx context.Context, input string) ([]model.Choice, error) {
		choices, err := fn(ctx, input)
		if err != nil {
			return nil, err
		}
		return normalize(choices)
	}
}

func normalize(choices []model.Choice) ([]model.Choice, error) {
	items := make([]any, len(choices))
	for i, c := range choices {
		items[i] = c
	}
	out, err := model.Normalize(items...)
	if err != nil {
		return nil, &ChoiceSourceError{Cause: err}
	}
	return out, nil
}

// call runs fn, converting panics and errors into ChoiceSourceError.
func call(fn func() ([]model.Choice, error)) (choices []model.Choice, err error) {
	err = guard(func() error {
		var ferr error
		choices, ferr = fn()
		return ferr
	})
	if err != nil {
		return nil, wrap(err)
	}
	return choices, nil
}

func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func wrap(err error) error {
	var cse *ChoiceSourceError
	if errors.As(err, &cse) {
		return err
	}
	return &ChoiceSourceError{Cause: err}
}
