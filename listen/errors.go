package listen

import "errors"

var (
	ErrNotFoundDevice          = errors.New("microphone not found")
	ErrNotEnoughDataToParseWav = errors.New("not enough data to parse wav")
	ErrInvalidWav              = errors.New("invalid wav")
	ErrFileIsNotPCM            = errors.New("wav is not pcm")
	ErrAlreadyCapturing        = errors.New("listener is already capturing")
)
