package gmail

import (
	"errors"
	"fmt"
)

// ErrEmptyPayload 邮件没有 payload，通常是没有使用 full 格式获取
var ErrEmptyPayload = errors.New("gmail message has no payload")

// DecodeError 邮件正文 base64 解码失败
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode message body: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
