package services

import "errors"

var (
	ErrDuplicateID     = errors.New("rfid already exists")
	ErrNotFound        = errors.New("rfid not found")
	ErrTagBusy         = errors.New("another tag is charging")
	ErrNotCharging     = errors.New("not charging")
	ErrAlreadyCharging = errors.New("already charging")
)
