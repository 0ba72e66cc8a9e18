package service

import (
	"strconv"
	"strings"
)

// verifyTypedID implements the confirmation gate used before destructive or
// state-changing operations: the caller re-types the target's numeric id and
// it must match exactly. Plain equality, nothing more.
func verifyTypedID(expected int64, typed string) error {
	typed = strings.TrimSpace(typed)
	if typed == "" {
		return ErrVerificationFailed
	}
	id, err := strconv.ParseInt(typed, 10, 64)
	if err != nil || id != expected {
		return ErrVerificationFailed
	}
	return nil
}
