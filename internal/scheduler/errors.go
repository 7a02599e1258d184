package scheduler

import "github.com/beni69/csengo/internal/errs"

var (
	errPastTime = errs.InvalidInput("scheduled time is in the past")
	errNoTimes  = errs.InvalidInput("recurring task has no times")
)
