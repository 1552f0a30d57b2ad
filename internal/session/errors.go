package session

import (
	"errors"

	"github.com/DoyleJ11/live-poll-backend/internal/poll"
	"github.com/DoyleJ11/live-poll-backend/internal/roster"
	"github.com/DoyleJ11/live-poll-backend/internal/types"
	pub "github.com/DoyleJ11/live-poll-backend/pkg/types"
)

var ErrUnauthorized = errors.New("unauthorized")
var ErrNotFound = errors.New("participant not found")
var ErrBadRequest = errors.New("bad request")
var ErrUnsupportedCommand = errors.New("unsupported command")

var codes = []struct {
	err  error
	code string
}{
	{roster.ErrInvalidName, pub.CodeInvalidName},
	{roster.ErrNameConflict, pub.CodeNameConflict},
	{poll.ErrInvalidPollData, pub.CodeInvalidPollData},
	{poll.ErrPollAlreadyActive, pub.CodePollAlreadyActive},
	{poll.ErrPendingResponses, pub.CodePendingResponses},
	{poll.ErrNoActivePoll, pub.CodeNoActivePoll},
	{poll.ErrAlreadyVoted, pub.CodeAlreadyVoted},
	{poll.ErrInvalidOption, pub.CodeInvalidOption},
	{ErrUnauthorized, pub.CodeUnauthorized},
	{ErrNotFound, pub.CodeNotFound},
	{ErrBadRequest, pub.CodeBadRequest},
	{ErrUnsupportedCommand, pub.CodeBadRequest},
}

// Code maps a domain error to its wire code.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return pub.CodeBadRequest
}

// ErrorMessage renders err as the envelope sent back to the caller.
func ErrorMessage(err error) types.ServerMessage {
	var verr *poll.ValidationError
	if errors.As(err, &verr) {
		return types.Error(Code(err), "Invalid poll data", verr.Details()...)
	}
	return types.Error(Code(err), err.Error())
}
