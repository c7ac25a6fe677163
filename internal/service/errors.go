package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/groupsplit/internal/backend"
	"github.com/mmynk/groupsplit/internal/calculator"
	"github.com/mmynk/groupsplit/internal/expense"
)

// splitError converts an allocation failure to InvalidArgument. The error carries a
// google.protobuf.Struct detail with the error kind and, for mismatches, the sums.
func splitError(err error) error {
	var se *calculator.SplitError
	if !errors.As(err, &se) {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}

	fields := map[string]any{
		"error":  string(se.Kind),
		"detail": se.Detail,
	}
	if se.ParticipantID != "" {
		fields["participantId"] = se.ParticipantID
	}
	if se.HasSums() {
		fields["sum"] = se.Sum.String()
		fields["expected"] = se.Expected.String()
		fields["tolerance"] = se.Tolerance.String()
	}
	return withDetail(connect.CodeInvalidArgument, err, fields)
}

// validationError converts a draft validation failure to InvalidArgument with the
// offending fields as a detail.
func validationError(err error) error {
	var ve *expense.ValidationError
	if !errors.As(err, &ve) {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	fieldMap := make(map[string]any, len(ve.Fields))
	for _, f := range ve.Fields {
		fieldMap[f.Field] = f.Message
	}
	return withDetail(connect.CodeInvalidArgument, err, map[string]any{
		"error":  "ValidationError",
		"fields": fieldMap,
	})
}

func withDetail(code connect.Code, err error, fields map[string]any) error {
	connectErr := connect.NewError(code, err)
	s, serr := structpb.NewStruct(fields)
	if serr != nil {
		slog.Warn("Failed to build error detail", "error", serr)
		return connectErr
	}
	detail, derr := connect.NewErrorDetail(s)
	if derr != nil {
		slog.Warn("Failed to build error detail", "error", derr)
		return connectErr
	}
	connectErr.AddDetail(detail)
	return connectErr
}

// backendError maps a failed backend call to a Connect code.
func backendError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusNotFound:
			return connect.NewError(connect.CodeNotFound, err)
		case http.StatusUnauthorized:
			return connect.NewError(connect.CodeUnauthenticated, err)
		case http.StatusForbidden:
			return connect.NewError(connect.CodePermissionDenied, err)
		}
	}
	return connect.NewError(connect.CodeUnavailable, err)
}

// storageError maps a local journal failure to Internal.
func storageError(err error) error {
	return connect.NewError(connect.CodeInternal, err)
}
