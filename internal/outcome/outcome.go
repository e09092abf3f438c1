// Package outcome models the loading/success/error state of an asynchronous value.
package outcome

import (
	"encoding/json"
	"fmt"
)

// Status is the variant tag of an Outcome
type Status int

const (
	StatusLoading Status = iota
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is a tagged union. Data is only meaningful for StatusSuccess,
// Err only for StatusError.
type Outcome[T any] struct {
	Status Status
	Data   T
	Err    error
}

func Loading[T any]() Outcome[T] {
	return Outcome[T]{Status: StatusLoading}
}

func Success[T any](v T) Outcome[T] {
	return Outcome[T]{Status: StatusSuccess, Data: v}
}

func Failure[T any](err error) Outcome[T] {
	return Outcome[T]{Status: StatusError, Err: err}
}

func (o Outcome[T]) IsLoading() bool { return o.Status == StatusLoading }
func (o Outcome[T]) IsSuccess() bool { return o.Status == StatusSuccess }
func (o Outcome[T]) IsError() bool   { return o.Status == StatusError }

// Settled reports whether the outcome is no longer loading
func (o Outcome[T]) Settled() bool { return o.Status != StatusLoading }

// Fold dispatches on the variant. Every consumer must handle all three.
func Fold[T, R any](o Outcome[T], loading func() R, success func(T) R, failure func(error) R) R {
	switch o.Status {
	case StatusSuccess:
		return success(o.Data)
	case StatusError:
		return failure(o.Err)
	default:
		return loading()
	}
}

type outcomeJSON[T any] struct {
	Status string `json:"status"`
	Data   *T     `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// MarshalJSON encodes as {"status":"success","data":...} or {"status":"error","error":"..."}
func (o Outcome[T]) MarshalJSON() ([]byte, error) {
	out := outcomeJSON[T]{Status: o.Status.String()}
	switch o.Status {
	case StatusSuccess:
		data := o.Data
		out.Data = &data
	case StatusError:
		if o.Err != nil {
			out.Error = o.Err.Error()
		}
	}
	return json.Marshal(out)
}
