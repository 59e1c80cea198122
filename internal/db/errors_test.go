package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/surrealdb/surrealdb.go"
)

func TestWrapQueryError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{
			"already exists",
			&surrealdb.QueryError{Message: "Database record `panel:x` already exists"},
			ErrAlreadyExists,
		},
		{
			"transaction conflict",
			&surrealdb.QueryError{Message: "Transaction conflict, retry the transaction"},
			ErrTransactionConflict,
		},
		{
			"unknown passes through",
			errors.New("connection reset"),
			nil,
		},
		{
			"wrapped query error",
			fmt.Errorf("query: %w", &surrealdb.QueryError{Message: "already exists"}),
			ErrAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapQueryError(tt.err)
			if tt.want == nil {
				if tt.err == nil {
					if got != nil {
						t.Errorf("wrapQueryError(nil) = %v", got)
					}
					return
				}
				if !errors.Is(got, tt.err) {
					t.Errorf("unknown error should pass through, got %v", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("wrapQueryError() = %v, want %v sentinel", got, tt.want)
			}
		})
	}
}
