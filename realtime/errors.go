package realtime

import "errors"

// ErrSubscriptionClosed 订阅在未被主动取消的情况下断开（连接挂了/权限被收回）
var ErrSubscriptionClosed = errors.New("realtime: subscription closed")
