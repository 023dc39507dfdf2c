package models

import "errors"

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrWrongPassword = errors.New("wrong room password")
)
