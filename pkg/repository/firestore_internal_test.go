package repository

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestIsMissingDoc(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{"not found", status.Error(codes.NotFound, "no document"), true},
		{"reserved id", status.Error(codes.InvalidArgument, `document id "__x__" is reserved`), true},
		{"unavailable", status.Error(codes.Unavailable, "connection reset"), false},
		{"permission denied", status.Error(codes.PermissionDenied, "denied"), false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Equal(t, isMissingDoc(tc.err), tc.want)
		})
	}
}
