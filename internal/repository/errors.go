package repository

import "errors"

var ErrNotFound = errors.New("not found")

// ユーザーが見つかりませんを統一
var ErrUserNotFound = errors.New("user not found")
