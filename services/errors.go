package services

import (
	"errors"

	"debatearena/models"
)

var (
	ErrRoomNotFound     = models.ErrRoomNotFound
	ErrNotSeated        = errors.New("player is not seated in this room")
	ErrRoomFull         = errors.New("room is full")
	ErrInvalidAction    = errors.New("action not allowed in the current phase")
	ErrInvalidInput     = errors.New("invalid input")
	ErrRateLimited      = errors.New("too many actions, slow down")
	ErrMalformedVerdict = errors.New("malformed verdict")
	ErrJudgeUnavailable = errors.New("judge not configured")
	ErrJudgingClosed    = errors.New("judging window already closed")
)
